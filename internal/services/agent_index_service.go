package services

import (
	"context"
	"fmt"
	"time"

	"jobsboard-backend/internal/chain"
	"jobsboard-backend/internal/metrics"
	"jobsboard-backend/internal/models"
	"jobsboard-backend/internal/repository"
	"jobsboard-backend/internal/utils"

	"github.com/sirupsen/logrus"
)

// maxReplaySpan caps the block range of a single FilterLogs call; public RPC
// endpoints reject very wide ranges.
const maxReplaySpan = 10000

// AgentIndexService maintains the local wallet -> agent id reverse index by
// replaying Registered events from the identity registry. The index trails
// the chain head by at most one sync interval; the resolver treats it as a
// hint and verifies ownership before trusting it.
type AgentIndexService struct {
	reader     chain.Reader
	repo       repository.AgentIndexRepository
	startBlock uint64
	interval   time.Duration
	stop       chan struct{}
}

// NewAgentIndexService creates the index maintainer
func NewAgentIndexService(reader chain.Reader, repo repository.AgentIndexRepository, startBlock uint64, interval time.Duration) *AgentIndexService {
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	return &AgentIndexService{
		reader:     reader,
		repo:       repo,
		startBlock: startBlock,
		interval:   interval,
		stop:       make(chan struct{}),
	}
}

// Start launches the periodic replay loop
func (s *AgentIndexService) Start() {
	go s.loop()
	logrus.WithField("interval", s.interval.String()).Info("Agent index sync started")
}

// Stop halts the replay loop
func (s *AgentIndexService) Stop() {
	close(s.stop)
}

func (s *AgentIndexService) loop() {
	// First sync immediately so a fresh process is useful without waiting a
	// full interval.
	s.syncOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.syncOnce()
		}
	}
}

func (s *AgentIndexService) syncOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.Sync(ctx); err != nil {
		logrus.WithField("error", err.Error()).Warn("Agent index sync failed")
	}
}

// Sync replays Registered events from the checkpoint to the current head and
// folds them into the index. Chunked so a long-idle index catches up without
// a single oversized log query.
func (s *AgentIndexService) Sync(ctx context.Context) error {
	head, err := s.reader.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chain head: %w", err)
	}

	from, err := s.repo.Checkpoint(ctx)
	if err != nil {
		return fmt.Errorf("failed to load index checkpoint: %w", err)
	}
	if from < s.startBlock {
		from = s.startBlock
	} else if from > 0 {
		from++
	}
	if from > head {
		return nil
	}

	indexed := 0
	for from <= head {
		to := from + maxReplaySpan - 1
		if to > head {
			to = head
		}

		registrations, err := s.reader.RegisteredEvents(ctx, from, to)
		if err != nil {
			return fmt.Errorf("failed to replay blocks %d-%d: %w", from, to, err)
		}

		if len(registrations) > 0 {
			entries := make([]*models.AgentIndexEntry, 0, len(registrations))
			for _, reg := range registrations {
				entries = append(entries, &models.AgentIndexEntry{
					Wallet:      utils.NormalizeAddress(reg.Owner),
					AgentID:     reg.AgentID,
					BlockNumber: reg.BlockNumber,
				})
			}
			if err := s.repo.UpsertMany(ctx, entries); err != nil {
				return fmt.Errorf("failed to store index entries: %w", err)
			}
			indexed += len(entries)
		}

		if err := s.repo.SaveCheckpoint(ctx, to); err != nil {
			return fmt.Errorf("failed to save index checkpoint: %w", err)
		}
		metrics.AgentIndexLastBlock.Set(float64(to))
		from = to + 1
	}

	if indexed > 0 {
		logrus.WithFields(logrus.Fields{
			"registrations": indexed,
			"head":          head,
		}).Info("Agent index updated")
	}
	return nil
}
