package services

import (
	"context"
	"errors"

	"jobsboard-backend/internal/chain"
	"jobsboard-backend/internal/models"
	"jobsboard-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

// EscrowReconcilerService merges the job store's records with on-chain escrow
// state. On-chain facts are derived fresh on every refresh and never
// persisted; the two sides evolve independently and disagreement is surfaced
// in the merged view rather than hidden.
type EscrowReconcilerService struct {
	reader        chain.Reader
	tokenDecimals uint8
}

// NewEscrowReconcilerService creates the reconciler
func NewEscrowReconcilerService(reader chain.Reader, tokenDecimals uint8) *EscrowReconcilerService {
	return &EscrowReconcilerService{
		reader:        reader,
		tokenDecimals: tokenDecimals,
	}
}

// EscrowStates fetches the escrow record for each job id. Jobs that were
// never funded on-chain (zero poster) are omitted, and a failed read skips
// that job only; the rest of the batch still reconciles.
func (s *EscrowReconcilerService) EscrowStates(ctx context.Context, jobIDs []string) map[string]*models.EscrowRecord {
	records := make(map[string]*models.EscrowRecord, len(jobIDs))
	for _, jobID := range jobIDs {
		record, err := s.EscrowState(ctx, jobID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"job_id": jobID,
				"error":  err.Error(),
			}).Warn("Escrow read failed, skipping job")
			continue
		}
		if record != nil {
			records[jobID] = record
		}
	}
	return records
}

// EscrowState fetches one job's escrow record, nil when the job was never
// funded on-chain.
func (s *EscrowReconcilerService) EscrowState(ctx context.Context, jobID string) (*models.EscrowRecord, error) {
	job, err := s.reader.EscrowJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !job.Funded() {
		return nil, nil
	}

	record := &models.EscrowRecord{
		JobID:    jobID,
		Funded:   true,
		Amount:   utils.FormatUnits(job.Amount, s.tokenDecimals),
		Released: job.Released,
		Refunded: job.Refunded,
	}
	if !utils.IsZeroAddress(job.Winner.Hex()) {
		record.Winner = job.Winner.Hex()
	}
	return record, nil
}

// MergeJobs overlays escrow records onto job store records. The merge is
// keyed strictly by job id; list order on either side carries no meaning.
func (s *EscrowReconcilerService) MergeJobs(jobs []models.Job, escrow map[string]*models.EscrowRecord) []models.JobView {
	views := make([]models.JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, s.mergeJob(job, escrow[job.ID]))
	}
	return views
}

// mergeJob builds one merged view and derives the poster action gates
func (s *EscrowReconcilerService) mergeJob(job models.Job, escrow *models.EscrowRecord) models.JobView {
	view := models.JobView{
		Job:    job,
		Escrow: escrow,
	}

	funded := escrow != nil && escrow.Funded
	released := escrow != nil && escrow.Released
	refunded := escrow != nil && escrow.Refunded
	hasWinner := escrow != nil && escrow.Winner != ""
	completed := job.Status == models.JobStatusCompleted

	view.CanFund = !funded && job.Status == models.JobStatusOpen
	view.CanRefund = funded && !hasWinner && !released && !refunded
	view.CanRelease = completed && funded && !released && !refunded
	view.CanMarkPaid = completed && !funded && job.PaymentStatus == models.PaymentStatusUnpaid

	return view
}
