// Package session holds the in-memory session, its durable projection, and
// the local token validity check.
package session

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/sam-app/cli/internal/common"
	"github.com/sam-app/cli/internal/models"
	"github.com/sam-app/cli/internal/storage"
	"github.com/sam-app/cli/internal/utils"
)

// StorageKey is the durable storage key holding the persisted session
const StorageKey = "sam_auth_state"

// Session is the authenticated identity bound to the running client
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	IsLoading    bool
	Error        *utils.AuthError
}

// IsAuthenticated is true iff both a user and an access token are present
func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// Store holds the current Session and synchronizes it with durable storage.
// Reads are open to any caller; writes go through Update.
type Store struct {
	mu      sync.RWMutex
	current Session
	backend storage.Backend
	logger  *common.Logger
}

// NewStore creates a store whose session starts in the loading state
func NewStore(backend storage.Backend, logger *common.Logger) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Store{
		current: Session{IsLoading: true},
		backend: backend,
		logger:  logger,
	}
}

// Snapshot returns a copy of the current session
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.current
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	if snap.Error != nil {
		e := *snap.Error
		snap.Error = &e
	}
	return snap
}

// Update applies fn to the session under the write lock
func (s *Store) Update(fn func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.current)
}

// Reset returns the session to its initial loading state
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{IsLoading: true}
}

// Load reads the persisted session. A missing key, unreadable storage or a
// malformed entry all yield nil.
func (s *Store) Load() *models.StoredAuthState {
	raw, err := s.backend.Get(StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read stored auth state")
		}
		return nil
	}

	var state models.StoredAuthState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.Warn().Err(err).Msg("discarding malformed stored auth state")
		return nil
	}
	return &state
}

// Save persists state, or removes the key when state is nil. Failures are
// logged and swallowed; the in-memory session stays authoritative.
func (s *Store) Save(state *models.StoredAuthState) {
	if state == nil {
		if err := s.backend.Remove(StorageKey); err != nil {
			s.logger.Warn().Err(err).Msg("failed to clear stored auth state")
		}
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode auth state")
		return
	}
	if err := s.backend.Set(StorageKey, string(data)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist auth state")
	}
}
