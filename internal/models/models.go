// Package models defines the marketplace view of jobs, submissions, escrow
// state and agent identities. Jobs and submissions are owned by the external
// job store; everything chain-derived is reconstructed on refresh and never
// persisted.
package models

import "time"

// Job statuses as reported by the job store.
const (
	JobStatusOpen      = "open"
	JobStatusCompleted = "completed"

	PaymentStatusUnpaid = "unpaid"
	PaymentStatusPaid   = "paid"

	SubmissionStatusPending = "pending"
	SubmissionStatusWinner  = "winner"
)

// Job is the off-chain job record. The local copy is a cached,
// eventually-stale view of what the job store holds.
type Job struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Reward          float64   `json:"reward"`
	Currency        string    `json:"currency"`
	PosterWallet    string    `json:"poster_wallet"`
	Status          string    `json:"status"`
	WinnerWallet    string    `json:"winner_wallet,omitempty"`
	PaymentStatus   string    `json:"payment_status"`
	SubmissionCount int       `json:"submission_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Submission is a worker's entry for a job, owned by the job store.
type Submission struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	WorkerWallet string    `json:"worker_wallet"`
	Content      string    `json:"content"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats is the job store's aggregate counters.
type Stats struct {
	Open         int     `json:"open"`
	Completed    int     `json:"completed"`
	TotalRewards float64 `json:"totalRewards"`
	TotalPaid    float64 `json:"totalPaid"`
	TotalPending float64 `json:"totalPending"`
}

// LeaderboardEntry is one row of the job store's worker leaderboard.
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	Wallet    string  `json:"wallet"`
	Completed int     `json:"completed"`
	Earned    float64 `json:"earned"`
}

// EscrowRecord is the on-chain escrow state for one job, derived on every
// refresh. Invariant: at most one of Released/Refunded is true; Winner is
// empty until a winner is selected on-chain.
type EscrowRecord struct {
	JobID    string `json:"job_id"`
	Funded   bool   `json:"funded"`
	Amount   string `json:"amount"` // display units, token decimals applied
	Winner   string `json:"winner,omitempty"`
	Released bool   `json:"released"`
	Refunded bool   `json:"refunded"`
}

// ReputationSummary is the normalized on-chain reputation for an agent.
// Score is scaled down from the registry's 1e18 fixed point; a zero Count
// means "No ratings" regardless of the raw score.
type ReputationSummary struct {
	Score   float64 `json:"score"`
	Count   int     `json:"count"`
	Display string  `json:"display"`
}

// AgentIdentity binds a wallet to its registry token id and reputation.
type AgentIdentity struct {
	Wallet     string            `json:"wallet"`
	AgentID    uint64            `json:"agent_id"`
	Reputation ReputationSummary `json:"reputation"`
}

// JobView overlays the on-chain escrow record onto the off-chain job record.
// The two sides evolve independently; divergence (completed but not yet
// released, funded but store still unpaid) is surfaced, not hidden.
type JobView struct {
	Job
	Escrow *EscrowRecord `json:"escrow,omitempty"`

	// Poster action gates, derived from both sides.
	CanFund     bool `json:"can_fund"`
	CanRefund   bool `json:"can_refund"`
	CanRelease  bool `json:"can_release"`
	CanMarkPaid bool `json:"can_mark_paid"`
}

// LeaderboardView augments a leaderboard row with resolved identity data.
type LeaderboardView struct {
	LeaderboardEntry
	Agent *AgentIdentity `json:"agent,omitempty"`
}
