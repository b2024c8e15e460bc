package chain

import "fmt"

// SignerError marks failures before any transaction reached the network:
// missing key, signer refusal, chain mismatch. Safe to retry after the signer
// is fixed; no funds have moved.
type SignerError struct {
	Err error
}

func (e *SignerError) Error() string {
	return fmt.Sprintf("signer: %v", e.Err)
}

func (e *SignerError) Unwrap() error {
	return e.Err
}

// RevertError marks a transaction that was mined but reverted. Terminal for
// the attempt; the hash identifies the failed transaction on-chain.
type RevertError struct {
	TxHash string
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s reverted", e.TxHash)
	}
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash, e.Reason)
}

// ConfirmTimeoutError marks a confirmation wait that hit its deadline. The
// transaction may still confirm later; the caller must not blindly resubmit.
type ConfirmTimeoutError struct {
	TxHash string
}

func (e *ConfirmTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for confirmation of %s", e.TxHash)
}
