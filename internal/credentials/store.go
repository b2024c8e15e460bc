// Package credentials holds the poster bearer tokens issued at job-creation
// time. The store is deliberately local and unsynced: losing it is recoverable
// by connecting the original posting wallet.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is a file-backed map of job id -> poster token. All writes merge into
// the existing map; a token for one job never clobbers tokens for others.
type Store struct {
	mu     sync.RWMutex
	path   string
	tokens map[string]string
}

// NewStore loads the token map from path, starting empty when the file does
// not exist yet.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:   path,
		tokens: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token store: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.tokens); err != nil {
			return nil, fmt.Errorf("failed to parse token store: %w", err)
		}
	}
	return s, nil
}

// Get returns the poster token for a job, if one is held
func (s *Store) Get(jobID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[jobID]
	return token, ok
}

// Put merges a single token into the store and persists the result
func (s *Store) Put(jobID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[jobID] = token
	return s.persist()
}

// Merge adds every entry of incoming into the store. Existing entries for
// other jobs are preserved; entries for the same job are overwritten by the
// incoming value.
func (s *Store) Merge(incoming map[string]string) error {
	if len(incoming) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for jobID, token := range incoming {
		s.tokens[jobID] = token
	}
	return s.persist()
}

// Delete removes the token for a job, if present
func (s *Store) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[jobID]; !ok {
		return nil
	}
	delete(s.tokens, jobID)
	return s.persist()
}

// Len returns the number of held tokens
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// persist writes the map atomically. Caller holds the write lock.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create token store directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace token store: %w", err)
	}
	return nil
}
