// Package session holds the authenticated identity. Sessions are immutable
// snapshots; the Store swaps whole snapshots on login and logout.
package session

import (
	"sync/atomic"

	"github.com/sdejongh/greenbox/pkg/api"
	"github.com/sdejongh/greenbox/pkg/models"
)

// Session is the authenticated identity plus bearer token
type Session struct {
	Username string    `json:"username"`
	Token    string    `json:"token"`
	ID       models.ID `json:"id,omitempty"`
	Nickname string    `json:"nickname,omitempty"`
}

// Authenticated reports whether the session can authorize requests
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != ""
}

// Require is the gate applied before any authenticated request
func Require(s *Session) error {
	if !s.Authenticated() {
		return api.ErrUnauthenticated
	}
	return nil
}

// Store holds the current session snapshot. Reads never block; writes happen
// only on explicit login and logout.
type Store struct {
	current atomic.Pointer[Session]
}

// NewStore creates an empty (logged out) store
func NewStore() *Store {
	return &Store{}
}

// Current returns the current snapshot, or nil when logged out
func (st *Store) Current() *Session {
	return st.current.Load()
}

// Login installs a copy of s and returns the new snapshot
func (st *Store) Login(s Session) *Session {
	snapshot := s
	st.current.Store(&snapshot)
	return &snapshot
}

// Logout clears the store
func (st *Store) Logout() {
	st.current.Store(nil)
}
