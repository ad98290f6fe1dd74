package devserver

import (
	"crypto/subtle"
	"sync"

	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/cryptox"
)

// entry is one stored key on the server side. A deleted entry stays as a
// tombstone so /check can report the deletion.
type entry struct {
	value     []byte
	deleted   bool
	timestamp int64
}

type account struct {
	password   []byte
	passSalt1  []byte
	passSalt2  []byte
	q1, q2     string
	recovery1  []byte
	recovery2  []byte
	dataSalt11 []byte
	dataSalt12 []byte
	dataSalt21 []byte
	dataSalt22 []byte
	recoveryKey []byte
	header      []byte
	entries     map[string]entry
}

// Store is the in-memory account database behind the development server.
// Conflict resolution mirrors the client: a stored entry is only replaced
// by a strictly newer one.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*account
	now      func() int64
}

func NewStore() *Store {
	return &Store{accounts: make(map[string]*account), now: common.Now}
}

// Registration carries everything /register receives.
type Registration struct {
	Password    []byte
	PassSalt1   []byte
	PassSalt2   []byte
	Q1, Q2      string
	Recovery1   []byte
	Recovery2   []byte
	DataSalt11  []byte
	DataSalt12  []byte
	DataSalt21  []byte
	DataSalt22  []byte
	RecoveryKey []byte
	Header      []byte
}

func (s *Store) CreateAccount(username string, reg Registration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; ok {
		return 0, common.ErrKeyExists
	}
	s.accounts[username] = &account{
		password:    reg.Password,
		passSalt1:   reg.PassSalt1,
		passSalt2:   reg.PassSalt2,
		q1:          reg.Q1,
		q2:          reg.Q2,
		recovery1:   reg.Recovery1,
		recovery2:   reg.Recovery2,
		dataSalt11:  reg.DataSalt11,
		dataSalt12:  reg.DataSalt12,
		dataSalt21:  reg.DataSalt21,
		dataSalt22:  reg.DataSalt22,
		recoveryKey: reg.RecoveryKey,
		header:      reg.Header,
		entries:     make(map[string]entry),
	}
	return s.now(), nil
}

func (s *Store) Salts(username string) (salt1, salt2 []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, nil, common.ErrNotFound
	}
	return acc.passSalt1, acc.passSalt2, nil
}

// RecoveryData returns the questions and per-answer salts for a user.
func (s *Store) RecoveryData(username string) (q1, q2 string, salts [4][]byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return "", "", salts, common.ErrNotFound
	}
	return acc.q1, acc.q2, [4][]byte{acc.dataSalt11, acc.dataSalt12, acc.dataSalt21, acc.dataSalt22}, nil
}

// Authenticate checks the derived server password for a user.
func (s *Store) Authenticate(username string, password []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare(acc.password, password) == 1
}

// VerifyRecovery checks the two recovery responses against the stored
// verifiers and returns the wrapped recovery key on success.
func (s *Store) VerifyRecovery(username string, r1, r2 []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	v1 := cryptox.Verifier(r1)
	v2 := cryptox.Verifier(r2)
	if subtle.ConstantTimeCompare(acc.recovery1, v1) != 1 || subtle.ConstantTimeCompare(acc.recovery2, v2) != 1 {
		return nil, common.ErrUnauthorized
	}
	return acc.recoveryKey, nil
}

// ChangePassword replaces the account's password material after a verified
// recovery.
func (s *Store) ChangePassword(username string, r1, r2, newPassword, newSalt1, newSalt2, newHeader []byte) error {
	if _, err := s.VerifyRecovery(username, r1, r2); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[username]
	acc.password = newPassword
	acc.passSalt1 = newSalt1
	acc.passSalt2 = newSalt2
	acc.header = newHeader
	return nil
}

// ChangesSince lists entries modified strictly after the given time,
// tombstones included.
func (s *Store) ChangesSince(username string, since int64) (map[string]entry, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, s.now()
	}
	changes := make(map[string]entry)
	for key, e := range acc.entries {
		if e.timestamp > since {
			changes[key] = e
		}
	}
	return changes, s.now()
}

// ApplyUpdates merges pushed changes. A pushed entry wins unless the stored
// one is strictly newer; clients resolve ties in their own favor and push
// them, so a tie must land here or same-second writes would be dropped.
func (s *Store) ApplyUpdates(username string, updates map[string]entry) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return s.now()
	}
	for key, incoming := range updates {
		existing, ok := acc.entries[key]
		if ok && existing.timestamp > incoming.timestamp {
			continue
		}
		acc.entries[key] = incoming
	}
	return s.now()
}

// Snapshot returns the header and all live entries for a full download.
func (s *Store) Snapshot(username string) (header []byte, entries map[string]entry, t int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, nil, s.now()
	}
	live := make(map[string]entry)
	for key, e := range acc.entries {
		if e.deleted {
			continue
		}
		live[key] = e
	}
	return acc.header, live, s.now()
}
