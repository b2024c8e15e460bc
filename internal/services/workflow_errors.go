package services

import (
	"context"
	"errors"

	"jobsboard-backend/internal/chain"
	"jobsboard-backend/internal/clients"
)

// ErrorKind buckets workflow failures by who can act on them
type ErrorKind string

const (
	// ErrorKindValidation means the input was rejected before anything ran
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindAuthorization means the caller lacks the poster credential
	ErrorKindAuthorization ErrorKind = "authorization"
	// ErrorKindSigner means signing failed before anything reached the network
	ErrorKindSigner ErrorKind = "signer"
	// ErrorKindReverted means a transaction was mined (or simulated) and reverted
	ErrorKindReverted ErrorKind = "reverted"
	// ErrorKindNetwork means an RPC endpoint, the job store, or a confirmation
	// wait failed; on-chain state may or may not have changed
	ErrorKindNetwork ErrorKind = "network"
	// ErrorKindNotFound means the referenced entity does not exist
	ErrorKindNotFound ErrorKind = "not_found"
)

// WorkflowError pairs a failure with its classification so handlers can map
// it to a status code and callers can decide whether a retry is safe.
type WorkflowError struct {
	Kind ErrorKind `json:"kind"`
	Err  error     `json:"-"`
}

func (e *WorkflowError) Error() string {
	return e.Err.Error()
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps a local input rejection
func NewValidationError(err error) *WorkflowError {
	return &WorkflowError{Kind: ErrorKindValidation, Err: err}
}

// NewAuthorizationError wraps a missing-credential rejection
func NewAuthorizationError(err error) *WorkflowError {
	return &WorkflowError{Kind: ErrorKindAuthorization, Err: err}
}

// Classify maps an arbitrary failure into the workflow taxonomy. Already
// classified errors pass through unchanged.
func Classify(err error) *WorkflowError {
	if err == nil {
		return nil
	}

	var we *WorkflowError
	if errors.As(err, &we) {
		return we
	}

	var signerErr *chain.SignerError
	if errors.As(err, &signerErr) {
		return &WorkflowError{Kind: ErrorKindSigner, Err: err}
	}
	var revertErr *chain.RevertError
	if errors.As(err, &revertErr) {
		return &WorkflowError{Kind: ErrorKindReverted, Err: err}
	}
	var timeoutErr *chain.ConfirmTimeoutError
	if errors.As(err, &timeoutErr) {
		// The transaction may still confirm later; the caller decides whether
		// to retry, never this layer.
		return &WorkflowError{Kind: ErrorKindNetwork, Err: err}
	}
	if errors.Is(err, chain.ErrNotFound) {
		return &WorkflowError{Kind: ErrorKindNotFound, Err: err}
	}
	if errors.Is(err, clients.ErrNoCredential) {
		return &WorkflowError{Kind: ErrorKindAuthorization, Err: err}
	}

	var apiErr *clients.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401 || apiErr.Status == 403:
			return &WorkflowError{Kind: ErrorKindAuthorization, Err: err}
		case apiErr.Status == 404:
			return &WorkflowError{Kind: ErrorKindNotFound, Err: err}
		case apiErr.Status >= 400 && apiErr.Status < 500:
			return &WorkflowError{Kind: ErrorKindValidation, Err: err}
		default:
			return &WorkflowError{Kind: ErrorKindNetwork, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &WorkflowError{Kind: ErrorKindNetwork, Err: err}
	}

	return &WorkflowError{Kind: ErrorKindNetwork, Err: err}
}
