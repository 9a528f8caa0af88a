// Package session persists the broker access token and tracks whether the
// broker has rejected it.
package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"TrendAdvisor/internal/collector"
)

// placeholders are token values shipped in sample configs.
var placeholders = map[string]bool{
	"":                       true,
	"placeholder":            true,
	"your_access_token_here": true,
}

// Data is the on-disk session file.
type Data struct {
	AccessToken string `json:"accessToken"`
	PublicToken string `json:"publicToken,omitempty"`
}

// Store keeps the access token in memory and in a JSON file so an
// authenticated session survives restarts.
type Store struct {
	mu       sync.RWMutex
	data     Data
	filePath string
	expired  atomic.Bool
}

// NewStore loads the session file if present. A non-empty fallback token
// (from config) is used when the file has none.
func NewStore(filePath, fallbackToken string) *Store {
	s := &Store{filePath: filePath}
	if d, err := load(filePath); err != nil {
		log.Printf("[WARN] read session file %s: %v, login required", filePath, err)
	} else if d != nil {
		s.data = *d
		log.Printf("[INFO] loaded broker session from %s", filePath)
	}
	if placeholders[strings.TrimSpace(s.data.AccessToken)] && fallbackToken != "" {
		s.data.AccessToken = fallbackToken
	}
	return s
}

func load(filePath string) (*Data, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save stores new tokens after a successful login and clears the expired
// flag.
func (s *Store) Save(accessToken, publicToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = Data{AccessToken: accessToken, PublicToken: publicToken}
	s.expired.Store(false)
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath, raw, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	log.Printf("[INFO] broker session saved to %s", s.filePath)
	return nil
}

// Reload re-reads the session file so a login saved by another process is
// picked up. A changed token clears the expired flag.
func (s *Store) Reload() error {
	d, err := load(s.filePath)
	if err != nil {
		return fmt.Errorf("read session file: %w", err)
	}
	if d == nil || placeholders[strings.TrimSpace(d.AccessToken)] {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.AccessToken != s.data.AccessToken {
		s.data = *d
		s.expired.Store(false)
		log.Printf("[INFO] new broker session loaded from %s", s.filePath)
	}
	return nil
}

// AccessToken returns the token, or an AuthenticationError when none is set
// or the broker has rejected it.
func (s *Store) AccessToken() (string, error) {
	if s.expired.Load() {
		return "", &collector.AuthenticationError{Provider: "session", Reason: "session expired, login required"}
	}
	s.mu.RLock()
	tok := strings.TrimSpace(s.data.AccessToken)
	s.mu.RUnlock()
	if placeholders[tok] {
		return "", &collector.AuthenticationError{Provider: "session", Reason: "access token not set, login required"}
	}
	return tok, nil
}

// Valid reports whether a usable token is present.
func (s *Store) Valid() bool {
	_, err := s.AccessToken()
	return err == nil
}

// MarkExpired flags the session as rejected by the broker.
func (s *Store) MarkExpired() {
	if !s.expired.Swap(true) {
		log.Println("[WARN] broker session expired, login required")
	}
}

// ClearExpired lifts the expired flag so the next sync can proceed.
func (s *Store) ClearExpired() {
	s.expired.Store(false)
}

// Expired reports whether the broker rejected the session.
func (s *Store) Expired() bool { return s.expired.Load() }

// Observe marks the session expired when err is an AuthenticationError and
// returns err unchanged.
func (s *Store) Observe(err error) error {
	if collector.IsAuth(err) {
		s.MarkExpired()
	}
	return err
}
