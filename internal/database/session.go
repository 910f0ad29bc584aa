package database

import (
	"sync"

	"gorm.io/gorm"
)

// Session is a unit of work on the active schema, scoped to one request.
// It is not safe for use by more than one request.
type Session struct {
	id       uint64
	schema   string
	db       *gorm.DB
	registry *Registry

	closeOnce sync.Once
	mu        sync.Mutex
	detached  bool
}

// DB returns the session's handle. Transactions opened on it are owned by
// the caller.
func (s *Session) DB() *gorm.DB { return s.db }

// Schema is the schema the session was acquired on.
func (s *Session) Schema() string { return s.schema }

// Close returns the session to the registry. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		detached := s.detached
		s.mu.Unlock()
		if !detached {
			s.registry.release(s.id)
		}
	})
}

// detach is called by the registry when it stops tracking the session.
func (s *Session) detach() {
	s.mu.Lock()
	s.detached = true
	s.mu.Unlock()
}
