package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"jobsboard-backend/internal/chain"
	"jobsboard-backend/internal/clients"
	"jobsboard-backend/internal/config"
	"jobsboard-backend/internal/credentials"
	"jobsboard-backend/internal/metrics"
	"jobsboard-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"
)

// defaultPlatformFeeBps is used for payout previews when the escrow contract
// cannot be read.
const defaultPlatformFeeBps = 200

// Workflow names
const (
	WorkflowFund         = "fund"
	WorkflowSelectWinner = "select_winner"
	WorkflowRelease      = "release"
	WorkflowMarkPaid     = "mark_paid"
	WorkflowRefund       = "refund"
	WorkflowRegister     = "register_agent"
	WorkflowFeedback     = "give_feedback"
)

// Step statuses
const (
	StepStatusConfirmed = "confirmed"
	StepStatusSkipped   = "skipped"
	StepStatusFailed    = "failed"
)

// StepResult records one step of a workflow run. A confirmed step stays
// confirmed even when a later step fails; it is never re-run.
type StepResult struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	TxHash    string    `json:"tx_hash,omitempty"`
	GasUsed   uint64    `json:"gas_used,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	Duration  float64   `json:"duration_seconds"`
}

// WorkflowRun is the surfaced outcome of one workflow invocation
type WorkflowRun struct {
	RunID     string       `json:"run_id"`
	Workflow  string       `json:"workflow"`
	JobID     string       `json:"job_id,omitempty"`
	Steps     []StepResult `json:"steps"`
	Outcome   string       `json:"outcome"` // "success" | "failed"
	AgentID   uint64       `json:"agent_id,omitempty"`
	PromptFor string       `json:"prompt_for,omitempty"` // follow-up the caller should offer
	StartedAt time.Time    `json:"started_at"`
}

// PayoutPreview shows the fee split a release would produce
type PayoutPreview struct {
	Amount string `json:"amount"`
	FeeBps int64  `json:"fee_bps"`
	Fee    string `json:"fee"`
	Payout string `json:"payout"`
}

// txSubmitter is the slice of chain.Writer the orchestrator uses; tests
// substitute a fake.
type txSubmitter interface {
	SenderAddress() string
	Approve(ctx context.Context, amount *big.Int) (*chain.TxResult, error)
	FundJob(ctx context.Context, jobID string, amount *big.Int) (*chain.TxResult, error)
	SelectWinner(ctx context.Context, jobID, winner string) (*chain.TxResult, error)
	ReleaseFunds(ctx context.Context, jobID string) (*chain.TxResult, error)
	RefundJob(ctx context.Context, jobID string) (*chain.TxResult, error)
	RegisterAgent(ctx context.Context, agentURI string) (*chain.TxResult, uint64, error)
	GiveFeedback(ctx context.Context, agentID uint64, rating int64, jobID, feedbackURI string, feedbackHash [32]byte) (*chain.TxResult, error)
}

// EventPublisher fans lifecycle events out to the message bus. Implementations
// must be best-effort; publishing never fails a workflow.
type EventPublisher interface {
	PublishJobEvent(eventType, jobID string, payload map[string]interface{})
}

// ProgressNotifier pushes step-by-step run state to connected clients
type ProgressNotifier interface {
	NotifyWorkflow(run *WorkflowRun)
}

// WorkflowService sequences the multi-step transaction workflows. Each step
// submits at most one signed transaction (or one job store call) and waits for
// it to confirm before the next step issues. Nothing is retried implicitly.
type WorkflowService struct {
	reader   chain.Reader
	writer   txSubmitter
	jobStore *clients.JobStoreClient
	tokens   *credentials.Store
	events   EventPublisher
	notifier ProgressNotifier
	chainCfg *config.ChainConfig
	manifest *config.ManifestConfig
}

// NewWorkflowService creates the orchestrator. events and notifier may be nil.
func NewWorkflowService(
	reader chain.Reader,
	writer txSubmitter,
	jobStore *clients.JobStoreClient,
	tokens *credentials.Store,
	events EventPublisher,
	notifier ProgressNotifier,
	chainCfg *config.ChainConfig,
	manifest *config.ManifestConfig,
) *WorkflowService {
	return &WorkflowService{
		reader:   reader,
		writer:   writer,
		jobStore: jobStore,
		tokens:   tokens,
		events:   events,
		notifier: notifier,
		chainCfg: chainCfg,
		manifest: manifest,
	}
}

// FundJob escrows the reward for a job: allowance check, approve only when
// the current allowance falls short, then the fund call. The approve must
// confirm before fund is submitted.
func (s *WorkflowService) FundJob(ctx context.Context, jobID, amount string) (*WorkflowRun, error) {
	run := s.newRun(WorkflowFund, jobID)

	units, err := utils.ParseUnits(amount, s.chainCfg.TokenDecimals)
	if err != nil {
		return s.finish(run, NewValidationError(err))
	}
	if units.Sign() <= 0 {
		return s.finish(run, NewValidationError(fmt.Errorf("amount must be positive")))
	}

	sender := s.writer.SenderAddress()
	if sender == "" {
		return s.finish(run, Classify(&chain.SignerError{Err: errors.New("no signing key configured")}))
	}

	allowance, err := s.reader.Allowance(ctx, sender, s.chainCfg.Contracts.Escrow)
	if err != nil {
		s.failStep(run, "check_allowance", err)
		return s.finish(run, err)
	}
	s.recordStep(run, StepResult{
		Name:   "check_allowance",
		Status: StepStatusConfirmed,
		Detail: fmt.Sprintf("allowance %s", utils.FormatUnits(allowance, s.chainCfg.TokenDecimals)),
	})

	if allowance.Cmp(units) >= 0 {
		s.recordStep(run, StepResult{
			Name:   "approve",
			Status: StepStatusSkipped,
			Detail: "existing allowance covers the amount",
		})
	} else {
		if _, err := s.runTxStep(ctx, run, "approve", func(ctx context.Context) (*chain.TxResult, error) {
			return s.writer.Approve(ctx, units)
		}); err != nil {
			return s.finish(run, err)
		}
	}

	result, err := s.runTxStep(ctx, run, "fund", func(ctx context.Context) (*chain.TxResult, error) {
		return s.writer.FundJob(ctx, jobID, units)
	})
	if err != nil {
		return s.finish(run, err)
	}

	s.publishEvent("job.funded", jobID, map[string]interface{}{
		"amount":  amount,
		"tx_hash": result.TxHash,
	})
	return s.finish(run, nil)
}

// SelectWinner records the winning submission. The on-chain call only runs
// when the job is actually escrowed and still open on-chain; the job store
// update always runs.
func (s *WorkflowService) SelectWinner(ctx context.Context, jobID, submissionID, winnerWallet string) (*WorkflowRun, error) {
	run := s.newRun(WorkflowSelectWinner, jobID)

	if !utils.IsEvmAddress(winnerWallet) {
		return s.finish(run, NewValidationError(fmt.Errorf("invalid winner wallet: %s", winnerWallet)))
	}

	cred := s.posterCredential(jobID)
	if !cred.Present() {
		return s.finish(run, NewAuthorizationError(clients.ErrNoCredential))
	}

	escrowed, err := s.reader.EscrowJob(ctx, jobID)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		s.failStep(run, "check_escrow", err)
		return s.finish(run, err)
	}

	if escrowed.Funded() && !escrowed.Released && !escrowed.Refunded {
		if _, err := s.runTxStep(ctx, run, "select_winner_onchain", func(ctx context.Context) (*chain.TxResult, error) {
			return s.writer.SelectWinner(ctx, jobID, winnerWallet)
		}); err != nil {
			return s.finish(run, err)
		}
	} else {
		s.recordStep(run, StepResult{
			Name:   "select_winner_onchain",
			Status: StepStatusSkipped,
			Detail: "job is not escrowed on-chain",
		})
	}

	if err := s.runStoreStep(ctx, run, "select_winner_store", func(ctx context.Context) error {
		return s.jobStore.SelectWinner(ctx, jobID, submissionID, cred)
	}); err != nil {
		return s.finish(run, err)
	}

	s.publishEvent("job.winner_selected", jobID, map[string]interface{}{
		"submission_id": submissionID,
		"winner_wallet": winnerWallet,
	})
	return s.finish(run, nil)
}

// Release pays the escrowed reward to the on-chain winner, then records the
// payment in the job store. When the release confirms but mark-paid fails,
// the run reports exactly that: the release step stays confirmed.
func (s *WorkflowService) Release(ctx context.Context, jobID string) (*WorkflowRun, error) {
	run := s.newRun(WorkflowRelease, jobID)

	cred := s.posterCredential(jobID)
	if !cred.Present() {
		return s.finish(run, NewAuthorizationError(clients.ErrNoCredential))
	}

	result, err := s.runTxStep(ctx, run, "release_funds", func(ctx context.Context) (*chain.TxResult, error) {
		return s.writer.ReleaseFunds(ctx, jobID)
	})
	if err != nil {
		return s.finish(run, err)
	}

	if err := s.runStoreStep(ctx, run, "mark_paid", func(ctx context.Context) error {
		return s.jobStore.MarkPaid(ctx, jobID, result.TxHash, cred)
	}); err != nil {
		return s.finish(run, err)
	}

	// Payment is done; the natural follow-up is rating the winner.
	run.PromptFor = "feedback"

	s.publishEvent("job.released", jobID, map[string]interface{}{
		"tx_hash": result.TxHash,
	})
	return s.finish(run, nil)
}

// MarkPaid records a payment that happened outside escrow (a never-funded job
// settled wallet to wallet). Pure job store update, no transaction; txHash is
// the poster's own reference and may be empty.
func (s *WorkflowService) MarkPaid(ctx context.Context, jobID, txHash string) (*WorkflowRun, error) {
	run := s.newRun(WorkflowMarkPaid, jobID)

	cred := s.posterCredential(jobID)
	if !cred.Present() {
		return s.finish(run, NewAuthorizationError(clients.ErrNoCredential))
	}

	if err := s.runStoreStep(ctx, run, "mark_paid", func(ctx context.Context) error {
		return s.jobStore.MarkPaid(ctx, jobID, txHash, cred)
	}); err != nil {
		return s.finish(run, err)
	}

	run.PromptFor = "feedback"

	s.publishEvent("job.paid", jobID, map[string]interface{}{
		"tx_hash": txHash,
	})
	return s.finish(run, nil)
}

// Refund returns escrowed funds to the poster. Destructive for the worker's
// expectations, so it only runs with an explicit confirmation and only while
// no winner has been selected on-chain.
func (s *WorkflowService) Refund(ctx context.Context, jobID string, confirm bool) (*WorkflowRun, error) {
	run := s.newRun(WorkflowRefund, jobID)

	if !confirm {
		return s.finish(run, NewValidationError(fmt.Errorf("refund requires explicit confirmation")))
	}

	escrowed, err := s.reader.EscrowJob(ctx, jobID)
	if err != nil && !errors.Is(err, chain.ErrNotFound) {
		s.failStep(run, "check_escrow", err)
		return s.finish(run, err)
	}
	if !escrowed.Funded() {
		return s.finish(run, NewValidationError(fmt.Errorf("job %s holds no escrowed funds", jobID)))
	}
	if !utils.IsZeroAddress(escrowed.Winner.Hex()) {
		return s.finish(run, NewValidationError(fmt.Errorf("job %s already has a winner selected", jobID)))
	}
	if escrowed.Released || escrowed.Refunded {
		return s.finish(run, NewValidationError(fmt.Errorf("job %s escrow is already settled", jobID)))
	}

	result, err := s.runTxStep(ctx, run, "refund", func(ctx context.Context) (*chain.TxResult, error) {
		return s.writer.RefundJob(ctx, jobID)
	})
	if err != nil {
		return s.finish(run, err)
	}

	s.publishEvent("job.refunded", jobID, map[string]interface{}{
		"tx_hash": result.TxHash,
	})
	return s.finish(run, nil)
}

// RegisterAgent mints an identity for the signing wallet. The agent card is
// embedded in the token URI as a base64 data URI, so the registry needs no
// external hosting to resolve it.
func (s *WorkflowService) RegisterAgent(ctx context.Context) (*WorkflowRun, error) {
	run := s.newRun(WorkflowRegister, "")

	agentURI, err := s.agentCardURI()
	if err != nil {
		return s.finish(run, NewValidationError(err))
	}

	var agentID uint64
	if _, err := s.runTxStep(ctx, run, "register", func(ctx context.Context) (*chain.TxResult, error) {
		result, id, err := s.writer.RegisterAgent(ctx, agentURI)
		agentID = id
		return result, err
	}); err != nil {
		return s.finish(run, err)
	}

	run.AgentID = agentID
	logrus.WithFields(logrus.Fields{
		"agent_id": agentID,
		"wallet":   s.writer.SenderAddress(),
	}).Info("Agent registered")
	return s.finish(run, nil)
}

// GiveFeedback records a 0-100 rating for the agent that completed a job.
// The feedback content travels as a data URI and its keccak256 hash anchors
// it on-chain.
func (s *WorkflowService) GiveFeedback(ctx context.Context, jobID string, agentID uint64, rating int64, comment string) (*WorkflowRun, error) {
	run := s.newRun(WorkflowFeedback, jobID)

	if rating < 0 || rating > 100 {
		return s.finish(run, NewValidationError(fmt.Errorf("rating must be between 0 and 100, got %d", rating)))
	}
	if agentID == 0 {
		return s.finish(run, NewValidationError(fmt.Errorf("agent id is required")))
	}

	feedbackURI, feedbackHash := encodeFeedback(jobID, rating, comment)

	if _, err := s.runTxStep(ctx, run, "give_feedback", func(ctx context.Context) (*chain.TxResult, error) {
		return s.writer.GiveFeedback(ctx, agentID, rating, jobID, feedbackURI, feedbackHash)
	}); err != nil {
		return s.finish(run, err)
	}

	s.publishEvent("job.feedback", jobID, map[string]interface{}{
		"agent_id": agentID,
		"rating":   rating,
	})
	return s.finish(run, nil)
}

// PreviewPayout computes the winner's payout after the platform fee. The fee
// rate comes from the escrow contract, falling back to the default when the
// chain is unreachable.
func (s *WorkflowService) PreviewPayout(ctx context.Context, amount string) (*PayoutPreview, error) {
	units, err := utils.ParseUnits(amount, s.chainCfg.TokenDecimals)
	if err != nil {
		return nil, NewValidationError(err)
	}

	feeBps, err := s.reader.PlatformFeeBps(ctx)
	if err != nil {
		logrus.WithField("error", err.Error()).Debug("Fee rate read failed, using default")
		feeBps = defaultPlatformFeeBps
	}

	payout := utils.ApplyFeeBps(units, feeBps)
	fee := new(big.Int).Sub(units, payout)
	return &PayoutPreview{
		Amount: utils.FormatUnits(units, s.chainCfg.TokenDecimals),
		FeeBps: feeBps,
		Fee:    utils.FormatUnits(fee, s.chainCfg.TokenDecimals),
		Payout: utils.FormatUnits(payout, s.chainCfg.TokenDecimals),
	}, nil
}

// posterCredential assembles the proof of poster identity for a job: the
// stored bearer token when held, plus the signing wallet.
func (s *WorkflowService) posterCredential(jobID string) clients.Credential {
	cred := clients.Credential{Wallet: s.writer.SenderAddress()}
	if s.tokens != nil {
		if token, ok := s.tokens.Get(jobID); ok {
			cred.Token = token
		}
	}
	return cred
}

// agentCardURI builds the registry token URI from the configured manifest
func (s *WorkflowService) agentCardURI() (string, error) {
	if s.manifest == nil || s.manifest.Name == "" {
		return "", fmt.Errorf("agent manifest is not configured")
	}
	card := map[string]interface{}{
		"name":        s.manifest.Name,
		"description": s.manifest.Description,
		"version":     s.manifest.Version,
		"url":         s.manifest.BaseURL,
	}
	data, err := json.Marshal(card)
	if err != nil {
		return "", fmt.Errorf("failed to encode agent card: %w", err)
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// encodeFeedback packs the feedback content into a data URI and hashes it
func encodeFeedback(jobID string, rating int64, comment string) (string, [32]byte) {
	payload, _ := json.Marshal(map[string]interface{}{
		"job_id":  jobID,
		"rating":  rating,
		"comment": comment,
	})
	uri := "data:application/json;base64," + base64.StdEncoding.EncodeToString(payload)

	var hash [32]byte
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(uri))
	copy(hash[:], hasher.Sum(nil))
	return uri, hash
}

func (s *WorkflowService) newRun(workflow, jobID string) *WorkflowRun {
	return &WorkflowRun{
		RunID:     uuid.New().String(),
		Workflow:  workflow,
		JobID:     jobID,
		Steps:     make([]StepResult, 0, 4),
		StartedAt: time.Now(),
	}
}

// runTxStep executes one transaction step and records its result
func (s *WorkflowService) runTxStep(ctx context.Context, run *WorkflowRun, name string, fn func(ctx context.Context) (*chain.TxResult, error)) (*chain.TxResult, error) {
	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)
	metrics.WorkflowStepDuration.WithLabelValues(run.Workflow, name).Observe(elapsed.Seconds())

	if err != nil {
		classified := Classify(err)
		step := StepResult{
			Name:      name,
			Status:    StepStatusFailed,
			ErrorKind: classified.Kind,
			Error:     classified.Error(),
			Duration:  elapsed.Seconds(),
		}
		var revertErr *chain.RevertError
		if errors.As(err, &revertErr) {
			step.TxHash = revertErr.TxHash
		}
		var timeoutErr *chain.ConfirmTimeoutError
		if errors.As(err, &timeoutErr) {
			step.TxHash = timeoutErr.TxHash
		}
		s.recordStep(run, step)
		return nil, classified
	}

	s.recordStep(run, StepResult{
		Name:     name,
		Status:   StepStatusConfirmed,
		TxHash:   result.TxHash,
		GasUsed:  result.GasUsed,
		Duration: elapsed.Seconds(),
	})
	return result, nil
}

// runStoreStep executes one job store step and records its result
func (s *WorkflowService) runStoreStep(ctx context.Context, run *WorkflowRun, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.WorkflowStepDuration.WithLabelValues(run.Workflow, name).Observe(elapsed.Seconds())

	if err != nil {
		classified := Classify(err)
		s.recordStep(run, StepResult{
			Name:      name,
			Status:    StepStatusFailed,
			ErrorKind: classified.Kind,
			Error:     classified.Error(),
			Duration:  elapsed.Seconds(),
		})
		return classified
	}

	s.recordStep(run, StepResult{
		Name:     name,
		Status:   StepStatusConfirmed,
		Duration: elapsed.Seconds(),
	})
	return nil
}

// failStep records a failure for a step that never reached execution helpers
func (s *WorkflowService) failStep(run *WorkflowRun, name string, err error) {
	classified := Classify(err)
	s.recordStep(run, StepResult{
		Name:      name,
		Status:    StepStatusFailed,
		ErrorKind: classified.Kind,
		Error:     classified.Error(),
	})
}

func (s *WorkflowService) recordStep(run *WorkflowRun, step StepResult) {
	run.Steps = append(run.Steps, step)
	if s.notifier != nil {
		s.notifier.NotifyWorkflow(run)
	}
}

// finish closes out a run: outcome, metrics, final push. Returns the
// classified error alongside the run so handlers can map status codes while
// still rendering the per-step record.
func (s *WorkflowService) finish(run *WorkflowRun, err error) (*WorkflowRun, error) {
	if err != nil {
		run.Outcome = "failed"
	} else {
		run.Outcome = "success"
	}
	metrics.WorkflowRuns.WithLabelValues(run.Workflow, run.Outcome).Inc()
	if s.notifier != nil {
		s.notifier.NotifyWorkflow(run)
	}
	if err != nil {
		return run, Classify(err)
	}
	return run, nil
}

// publishEvent fans a lifecycle event out when a publisher is configured
func (s *WorkflowService) publishEvent(eventType, jobID string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.PublishJobEvent(eventType, jobID, payload)
}
