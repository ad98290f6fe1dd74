// Package vaultstore provides the encrypted on-disk credential store.
//
// Each user has one vault file. Record payloads are sealed with a random
// 32-byte master key; the master key itself is wrapped under a key derived
// from the user's password and kept in the vault header, so the whole vault
// can be rebuilt from (password, header, records).
package vaultstore

import "context"

// Kind classifies a stored record.
type Kind uint8

const (
	// KindCredentialPair is an encoded username+password bundle.
	KindCredentialPair Kind = 0
	// KindSingleValue is a single opaque secret.
	KindSingleValue Kind = 1
)

// Record is one stored entry as it travels between the store and the sync
// layer. Payload is always the encrypted form.
type Record struct {
	Key        string
	Kind       Kind
	Payload    []byte
	ModifiedAt int64
}

// RecoverySalts are the four per-answer salts handed out by the remote
// service: saltN1 feeds the verifier for answer N, saltN2 the wrap-key share.
type RecoverySalts struct {
	Salt11 []byte
	Salt12 []byte
	Salt21 []byte
	Salt22 []byte
}

// RegistrationData is everything the remote service needs to enroll a new
// account. All fields are derived; the plaintext password and answers never
// leave the process.
type RegistrationData struct {
	ServerPassword []byte
	PassSalt1      []byte
	PassSalt2      []byte
	Verifier1      []byte
	Verifier2      []byte
	Salts          RecoverySalts
	RecoveryKey    []byte
	// Header is filled in by the enrollment flow from Store.Header.
	Header []byte
}

// RewrapResult carries the artifacts of a password reset through recovery,
// to be pushed to the remote service.
type RewrapResult struct {
	ServerPassword []byte
	PassSalt1      []byte
	PassSalt2      []byte
	Header         []byte
	RecoveryKey    []byte
}

// Store is the encrypted credential store consumed by the access coordinator.
// A Store manages at most one open vault at a time; Open or Create while a
// vault is open fails with common.ErrVaultOpen, and every record operation
// on a closed store fails with common.ErrVaultClosed.
type Store interface {
	// Create makes a fresh vault for the user and leaves it open.
	Create(ctx context.Context, username, password string) error

	// CreateFromServerData materializes a vault from a downloaded header and
	// record set, verifies the password can unwrap the header, and leaves the
	// vault open.
	CreateFromServerData(ctx context.Context, username, password string, header []byte, records []Record, lastContact int64) error

	// Open unlocks an existing vault file.
	Open(ctx context.Context, username, password string) error

	// Close locks the vault and wipes key material.
	Close() error

	// Exists reports whether a vault file exists for the user.
	Exists(username string) bool

	// Remove deletes the user's vault file. The vault must be closed; used
	// to unwind a partially completed enrollment.
	Remove(username string) error

	// Add inserts a new record, sealing plaintext under the master key.
	// Fails with common.ErrKeyExists when the key is present.
	Add(ctx context.Context, kind Kind, key string, plaintext []byte, ts int64) error

	// AddEncrypted inserts a record whose payload is already sealed
	// (server-originated values during sync).
	AddEncrypted(ctx context.Context, kind Kind, key string, payload []byte, ts int64) error

	// Update replaces an existing record with newly sealed plaintext.
	Update(ctx context.Context, kind Kind, key string, plaintext []byte, ts int64) error

	// Delete removes a record; common.ErrNotFound when absent.
	Delete(ctx context.Context, key string) error

	// Get returns the decrypted payload for key.
	Get(ctx context.Context, key string) (Kind, []byte, error)

	// GetEncrypted returns the sealed payload and its timestamp, as pushed
	// to the remote service.
	GetEncrypted(ctx context.Context, key string) (Kind, []byte, int64, error)

	// Keys lists all stored keys.
	Keys(ctx context.Context) ([]string, error)

	// DecryptValue opens a sealed payload with the vault's master key without
	// storing it.
	DecryptValue(payload []byte) ([]byte, error)

	// LastContactTime and SetLastContactTime track the server's authoritative
	// time of the last completed reconciliation.
	LastContactTime(ctx context.Context) (int64, error)
	SetLastContactTime(ctx context.Context, t int64) error

	// Header returns the opaque wrapped-master-key blob.
	Header(ctx context.Context) ([]byte, error)

	// DeriveServerPassword derives the remote authenticator from the open
	// vault's password and the given salt.
	DeriveServerPassword(salt []byte) ([]byte, error)

	// RegistrationData derives the full enrollment bundle from the recovery
	// answers. Requires an open vault.
	RegistrationData(answer1, answer2 string) (*RegistrationData, error)

	// RewrapFromRecovery unwraps the master key from a recovery blob using
	// the two answers, re-wraps the local vault under newPassword, and
	// returns the material to push remotely. Works on a closed vault.
	RewrapFromRecovery(ctx context.Context, username, answer1, answer2 string, recoveryBlob []byte, salts RecoverySalts, newPassword string) (*RewrapResult, error)
}
