// Package services contains the application services of the vault client:
// session management, credential mutation, and the sync engine.
package services

import (
	"sync"

	"github.com/noodlevault/noodlevault/internal/common"
)

// nowFn supplies change timestamps. Tests swap it for a fixed clock.
var nowFn = common.Now

// State is the single active session's context: current user, the two
// password salts fetched from the remote service, and the login flag.
// It is shared by the background workers and guarded internally.
type State struct {
	mu       sync.Mutex
	username string
	salt1    []byte
	salt2    []byte
	loggedIn bool
}

func NewState() *State {
	return &State{}
}

func (s *State) establish(username string, salt1, salt2 []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	s.salt1 = salt1
	s.salt2 = salt2
	s.loggedIn = true
}

func (s *State) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.salt1 = nil
	s.salt2 = nil
	s.loggedIn = false
}

// LoggedIn reports whether a session is active.
func (s *State) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Username returns the current user, or "" when logged out.
func (s *State) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Salts returns the session's two password salts.
func (s *State) Salts() (salt1, salt2 []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.salt1, s.salt2
}
