// Package repository provides data access interfaces and implementations
package repository

import (
	"context"
	"errors"
	"time"

	"jobsboard-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentIndexRepository defines the interface for the wallet -> agent id
// reverse index
type AgentIndexRepository interface {
	GetByWallet(ctx context.Context, wallet string) (*models.AgentIndexEntry, error)
	UpsertMany(ctx context.Context, entries []*models.AgentIndexEntry) error
	Count(ctx context.Context) (int64, error)

	Checkpoint(ctx context.Context) (uint64, error)
	SaveCheckpoint(ctx context.Context, lastBlock uint64) error
}

// agentIndexRepository implements AgentIndexRepository
type agentIndexRepository struct {
	db *gorm.DB
}

// NewAgentIndexRepository creates a new AgentIndexRepository instance
func NewAgentIndexRepository(db *gorm.DB) AgentIndexRepository {
	return &agentIndexRepository{db: db}
}

// GetByWallet retrieves the index entry for a wallet, nil when unknown
func (r *agentIndexRepository) GetByWallet(ctx context.Context, wallet string) (*models.AgentIndexEntry, error) {
	var entry models.AgentIndexEntry
	err := r.db.WithContext(ctx).Where("wallet = ?", wallet).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpsertMany inserts or replaces a batch of index entries. A wallet that
// re-registers keeps only its newest agent id.
func (r *agentIndexRepository) UpsertMany(ctx context.Context, entries []*models.AgentIndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	for _, entry := range entries {
		entry.UpdatedAt = now
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet"}},
			DoUpdates: clause.AssignmentColumns([]string{"agent_id", "block_number", "updated_at"}),
		}).
		Create(entries).Error
}

// Count returns the number of indexed wallets
func (r *agentIndexRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.AgentIndexEntry{}).Count(&total).Error
	return total, err
}

// Checkpoint returns the last replayed block, 0 when no replay has run yet
func (r *agentIndexRepository) Checkpoint(ctx context.Context) (uint64, error) {
	var cp models.IndexCheckpoint
	err := r.db.WithContext(ctx).Where("id = ?", 1).First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return cp.LastBlock, nil
}

// SaveCheckpoint records the last replayed block
func (r *agentIndexRepository) SaveCheckpoint(ctx context.Context, lastBlock uint64) error {
	cp := models.IndexCheckpoint{
		ID:           1,
		LastBlock:    lastBlock,
		LastSyncedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_block", "last_synced_at"}),
		}).
		Create(&cp).Error
}
