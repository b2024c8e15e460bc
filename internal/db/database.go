// Package db opens the client-local database backing the agent reverse
// index. Sqlite keeps the store a single unsynced file, matching the rest of
// the client-side state.
package db

import (
	"fmt"

	"jobsboard-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (creating if needed) the local index database and migrates its
// schema.
func Open(path string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	if err := database.AutoMigrate(&models.AgentIndexEntry{}, &models.IndexCheckpoint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local database: %w", err)
	}

	logrus.WithField("path", path).Info("Local index database ready")
	return database, nil
}
