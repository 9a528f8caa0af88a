package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"TrendAdvisor/internal/model"
)

// LoadSnapshot reads the portfolio from a JSON file. Returns an empty
// portfolio if the file doesn't exist.
func LoadSnapshot(filePath string) (*model.PortfolioSnapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.PortfolioSnapshot{}, nil
		}
		return nil, err
	}
	var snap model.PortfolioSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return &snap, nil
}

// SaveSnapshot writes the portfolio to a JSON file, replacing it atomically.
func SaveSnapshot(filePath string, snap *model.PortfolioSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}

// Store keeps the live portfolio in memory and mirrors every change to disk.
type Store struct {
	mu       sync.RWMutex
	snap     *model.PortfolioSnapshot
	filePath string
}

// NewStore creates a Store, loading any existing snapshot from disk.
func NewStore(filePath string) (*Store, error) {
	snap, err := LoadSnapshot(filePath)
	if err != nil {
		return nil, err
	}
	return &Store{snap: snap, filePath: filePath}, nil
}

// Snapshot returns a copy of the current portfolio.
func (s *Store) Snapshot() model.PortfolioSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := *s.snap
	out.Holdings = append([]model.Holding(nil), s.snap.Holdings...)
	return out
}

// Holdings returns a copy of the current holdings.
func (s *Store) Holdings() []model.Holding {
	return s.Snapshot().Holdings
}

// Replace swaps in freshly synced holdings and persists them.
func (s *Store) Replace(holdings []model.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &model.PortfolioSnapshot{
		LastUpdated: time.Now(),
		Holdings:    append([]model.Holding(nil), holdings...),
	}
	return SaveSnapshot(s.filePath, s.snap)
}

// Reload re-reads the file, picking up changes written by an external sync.
func (s *Store) Reload() error {
	snap, err := LoadSnapshot(s.filePath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Path is the file backing the store.
func (s *Store) Path() string { return s.filePath }
