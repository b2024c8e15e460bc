package models

import "time"

// AgentIndexEntry is one row of the persistent wallet -> agent id reverse
// index, maintained by replaying registry Registered events. It exists so
// resolution does not have to fall back to the O(totalAgents) ownership scan.
type AgentIndexEntry struct {
	Wallet      string    `gorm:"primaryKey;size:42" json:"wallet"` // lowercased 0x address
	AgentID     uint64    `gorm:"index" json:"agent_id"`
	BlockNumber uint64    `json:"block_number"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName overrides the gorm default
func (AgentIndexEntry) TableName() string {
	return "agent_index"
}

// IndexCheckpoint records the last block whose registration events have been
// replayed into the index.
type IndexCheckpoint struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	LastBlock    uint64    `json:"last_block"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// TableName overrides the gorm default
func (IndexCheckpoint) TableName() string {
	return "index_checkpoints"
}
