package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"jobsboard-backend/internal/config"
	"jobsboard-backend/internal/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// TxResult is the confirmed outcome of one submitted transaction
type TxResult struct {
	TxHash      string `json:"tx_hash"`
	GasUsed     uint64 `json:"gas_used"`
	BlockNumber uint64 `json:"block_number"`

	receipt *types.Receipt
}

// txBackend is the slice of ethclient.Client the writer needs
type txBackend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Writer submits signed contract transactions and waits for confirmation.
// Every submit call blocks until the receipt is available, a revert is
// detected, or the configured confirmation timeout elapses.
type Writer struct {
	backend        txBackend
	signer         Signer
	abis           *parsedABIs
	chainID        *big.Int
	submitMu       sync.Mutex
	identity       common.Address
	repute         common.Address
	escrow         common.Address
	token          common.Address
	gasLimit       uint64
	confirmTimeout time.Duration
	pollInterval   time.Duration
}

// NewWriter creates a Writer; signer may be nil when no key is configured,
// in which case every submit fails with a SignerError.
func NewWriter(backend txBackend, signer Signer, cfg *config.ChainConfig) *Writer {
	return &Writer{
		backend:        backend,
		signer:         signer,
		abis:           contractABIs(),
		chainID:        big.NewInt(cfg.ChainID),
		identity:       common.HexToAddress(cfg.Contracts.IdentityRegistry),
		repute:         common.HexToAddress(cfg.Contracts.ReputationRegistry),
		escrow:         common.HexToAddress(cfg.Contracts.Escrow),
		token:          common.HexToAddress(cfg.Contracts.Token),
		gasLimit:       cfg.GasLimit,
		confirmTimeout: time.Duration(cfg.ConfirmTimeout) * time.Second,
		pollInterval:   time.Duration(cfg.PollInterval) * time.Second,
	}
}

// SenderAddress returns the signing wallet address, or "" without a signer
func (w *Writer) SenderAddress() string {
	if w.signer == nil {
		return ""
	}
	return w.signer.Address().Hex()
}

// Approve grants the escrow contract an ERC-20 allowance
func (w *Writer) Approve(ctx context.Context, amount *big.Int) (*TxResult, error) {
	data, err := w.abis.erc20.Pack("approve", w.escrow, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	return w.submit(ctx, "approve", w.token, data)
}

// FundJob moves the reward amount into escrow for the job
func (w *Writer) FundJob(ctx context.Context, jobID string, amount *big.Int) (*TxResult, error) {
	data, err := w.abis.escrow.Pack("fundJob", jobID, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack fundJob: %w", err)
	}
	return w.submit(ctx, "fundJob", w.escrow, data)
}

// SelectWinner records the winning wallet in the escrow contract
func (w *Writer) SelectWinner(ctx context.Context, jobID, winner string) (*TxResult, error) {
	data, err := w.abis.escrow.Pack("selectWinner", jobID, common.HexToAddress(winner))
	if err != nil {
		return nil, fmt.Errorf("failed to pack selectWinner: %w", err)
	}
	return w.submit(ctx, "selectWinner", w.escrow, data)
}

// ReleaseFunds pays the selected winner out of escrow
func (w *Writer) ReleaseFunds(ctx context.Context, jobID string) (*TxResult, error) {
	data, err := w.abis.escrow.Pack("releaseFunds", jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack releaseFunds: %w", err)
	}
	return w.submit(ctx, "releaseFunds", w.escrow, data)
}

// RefundJob returns escrowed funds to the poster
func (w *Writer) RefundJob(ctx context.Context, jobID string) (*TxResult, error) {
	data, err := w.abis.escrow.Pack("refundJob", jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack refundJob: %w", err)
	}
	return w.submit(ctx, "refundJob", w.escrow, data)
}

// RegisterAgent mints an identity for the signing wallet. The assigned agent
// id is recovered from the Registered event in the receipt.
func (w *Writer) RegisterAgent(ctx context.Context, agentURI string) (*TxResult, uint64, error) {
	data, err := w.abis.identity.Pack("register", agentURI)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to pack register: %w", err)
	}
	result, err := w.submit(ctx, "register", w.identity, data)
	if err != nil {
		return nil, 0, err
	}

	event := w.abis.identity.Events["Registered"]
	for _, lg := range result.receipt.Logs {
		if lg.Address == w.identity && len(lg.Topics) >= 3 && lg.Topics[0] == event.ID {
			agentID := new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64()
			return result, agentID, nil
		}
	}
	return result, 0, nil
}

// GiveFeedback records a 0-100 rating against an agent identity
func (w *Writer) GiveFeedback(ctx context.Context, agentID uint64, rating int64, jobID, feedbackURI string, feedbackHash [32]byte) (*TxResult, error) {
	data, err := w.abis.reputation.Pack("giveFeedback",
		new(big.Int).SetUint64(agentID),
		big.NewInt(rating), // value, 0-100 unscaled
		uint8(0),           // valueDecimals
		"job-completed",    // tag1
		jobID,              // tag2
		"",                 // endpoint
		feedbackURI,
		feedbackHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack giveFeedback: %w", err)
	}
	return w.submit(ctx, "giveFeedback", w.repute, data)
}

// submit signs and sends one transaction, then waits for its receipt
func (w *Writer) submit(ctx context.Context, method string, to common.Address, data []byte) (*TxResult, error) {
	if w.signer == nil {
		return nil, &SignerError{Err: errors.New("no signing key configured")}
	}

	signedTx, callMsg, err := w.signAndSend(ctx, method, to, data)
	if err != nil {
		return nil, err
	}

	txHash := signedTx.Hash()
	logrus.WithFields(logrus.Fields{
		"method":  method,
		"tx_hash": txHash.Hex(),
		"from":    w.signer.Address().Hex(),
		"to":      to.Hex(),
	}).Info("Transaction submitted, waiting for confirmation")
	metrics.ChainTxSubmitted.WithLabelValues(method).Inc()

	receipt, err := w.waitMined(ctx, txHash)
	if err != nil {
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.ChainTxReverted.WithLabelValues(method).Inc()
		reason := w.replayForReason(ctx, callMsg, receipt.BlockNumber)
		return nil, &RevertError{TxHash: txHash.Hex(), Reason: reason}
	}

	metrics.ChainTxConfirmed.WithLabelValues(method).Inc()
	return &TxResult{
		TxHash:      txHash.Hex(),
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber.Uint64(),
		receipt:     receipt,
	}, nil
}

// signAndSend covers nonce fetch through SendTransaction under one lock, so
// concurrent workflows never reuse the signing wallet's pending nonce. The
// receipt wait happens outside the lock.
func (w *Writer) signAndSend(ctx context.Context, method string, to common.Address, data []byte) (*types.Transaction, ethereum.CallMsg, error) {
	w.submitMu.Lock()
	defer w.submitMu.Unlock()

	from := w.signer.Address()

	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, ethereum.CallMsg{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, ethereum.CallMsg{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	callMsg := ethereum.CallMsg{From: from, To: &to, Data: data}
	gasLimit, err := w.backend.EstimateGas(ctx, callMsg)
	if err != nil {
		if isRevert(err) {
			// The node simulated the call and it reverts; report it as a
			// revert without burning gas on a doomed transaction.
			return nil, ethereum.CallMsg{}, &RevertError{Reason: revertReason(err)}
		}
		gasLimit = w.gasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signedTx, err := w.signer.SignTx(tx, w.chainID)
	if err != nil {
		return nil, ethereum.CallMsg{}, &SignerError{Err: err}
	}

	if err := w.backend.SendTransaction(ctx, signedTx); err != nil {
		return nil, ethereum.CallMsg{}, fmt.Errorf("failed to send %s transaction: %w", method, err)
	}
	return signedTx, callMsg, nil
}

// waitMined polls for the receipt until the confirmation timeout. There is no
// automatic resubmission; a timeout is reported and retry is the caller's
// explicit decision.
func (w *Writer) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, w.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(waitCtx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) && waitCtx.Err() == nil {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-waitCtx.Done():
			return nil, &ConfirmTimeoutError{TxHash: txHash.Hex()}
		case <-ticker.C:
		}
	}
}

// replayForReason re-executes the call at the failing block to recover the
// revert reason. Best effort; an empty string is acceptable.
func (w *Writer) replayForReason(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) string {
	_, err := w.backend.CallContract(ctx, msg, blockNumber)
	if err != nil && isRevert(err) {
		return revertReason(err)
	}
	return ""
}

// revertReason trims RPC boilerplate from a revert error string
func revertReason(err error) string {
	msg := err.Error()
	const marker = "execution reverted"
	if idx := strings.Index(strings.ToLower(msg), marker); idx >= 0 {
		trimmed := strings.TrimLeft(msg[idx+len(marker):], ": ")
		if trimmed != "" {
			return trimmed
		}
		return marker
	}
	return msg
}
