package world

import (
	"errors"
	"sync"
)

var (
	ErrNotFound      = errors.New("user state not found")
	ErrAlreadyExists = errors.New("user state already exists")
	ErrInvalidID     = errors.New("invalid session ID")
	ErrStale         = errors.New("stale user state")
)

// AcceptFunc decides whether next may replace current. It runs while the
// Store holds its write lock and must not call back into the Store.
type AcceptFunc func(current, next UserState) bool

// Store is the id -> UserState mapping shared by all sessions
type Store struct {
	users map[string]UserState
	mu    sync.RWMutex
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users: make(map[string]UserState),
	}
}

// Insert adds a new entry. It fails if id is already present.
func (s *Store) Insert(id string, state UserState) error {
	if id == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; exists {
		return ErrAlreadyExists
	}
	s.users[id] = state
	return nil
}

// Snapshot returns a copy of every entry taken at a single instant.
func (s *Store) Snapshot() WorldState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return WorldState(s.users).Clone()
}

// Set replaces the whole state for id.
func (s *Store) Set(id string, state UserState) error {
	return s.SetIf(id, state, nil)
}

// SetIf replaces the state for id when accept approves it. A nil accept
// always approves. Returns ErrNotFound if id is absent and ErrStale if accept
// rejects the write.
func (s *Store) SetIf(id string, state UserState, accept AcceptFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.users[id]
	if !exists {
		return ErrNotFound
	}
	if accept != nil && !accept(current, state) {
		return ErrStale
	}
	s.users[id] = state
	return nil
}

// Remove deletes id and reports whether it was present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return false
	}
	delete(s.users, id)
	return true
}

// Get returns a copy of the state for id.
func (s *Store) Get(id string) (UserState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[id]
	return st, ok
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
