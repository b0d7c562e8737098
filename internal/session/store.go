package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Jack-Penn/AlgoRhythms/internal/models"
	"github.com/Jack-Penn/AlgoRhythms/internal/shared"
)

// TokenStore holds the active credential behind a mutex, optionally mirrored
// to a JSON cache file.
type TokenStore struct {
	mu   sync.Mutex
	path string
	cred *models.Credential
}

// NewTokenStore builds a store backed by the cache file at path, or a purely
// in-memory store when path is empty. A missing cache file is not an error.
// An unreadable or corrupt one returns the empty store alongside the error so
// callers can warn and continue.
func NewTokenStore(path string) (*TokenStore, error) {
	s := &TokenStore{path: path}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading session cache: %w", err)
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return s, fmt.Errorf("decoding session cache: %w", err)
	}

	s.cred = &cred
	return s, nil
}

// Set replaces the stored credential and persists it when a cache path is
// configured.
func (s *TokenStore) Set(cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
	return s.persist()
}

// Current returns the stored credential when it is present and unexpired. It
// never hands out an expired credential.
func (s *TokenStore) Current(now time.Time) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if !s.cred.Valid(now) {
		return nil, fmt.Errorf("%w: expired at %s", shared.ErrTokenExpired, s.cred.ExpiresAt.Format(time.RFC3339))
	}

	cred := *s.cred
	return &cred, nil
}

// Peek returns the stored credential even when expired, or nil. Refreshing
// needs the refresh token after the access token has lapsed.
func (s *TokenStore) Peek() *models.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil {
		return nil
	}
	cred := *s.cred
	return &cred
}

// Clear drops the credential and removes the cache file. Clearing an empty
// store is a no-op.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session cache: %w", err)
	}
	return nil
}

func (s *TokenStore) persist() error {
	if s.path == "" || s.cred == nil {
		return nil
	}

	data, err := json.MarshalIndent(s.cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session cache: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing session cache: %w", err)
	}
	return nil
}
