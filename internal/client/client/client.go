// Package client is the transport to the remote vault service. The remote
// contract is JSON over HTTPS; all binary fields travel base64-encoded.
package client

import (
	"context"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

// RecoveryQuestions carries a user's security questions and the per-answer
// salts needed to derive verification responses locally.
type RecoveryQuestions struct {
	Q1    string
	Q2    string
	Salts vaultstore.RecoverySalts
}

// VaultDownload is a full vault snapshot from the remote service.
type VaultDownload struct {
	Header  []byte
	Records []vaultstore.Record
	Time    int64
}

// Client defines the remote operations used by the session manager and the
// sync engine. The password argument is always the derived server password,
// never the user's plaintext.
type Client interface {
	// GetSalts fetches the user's two password salts.
	GetSalts(ctx context.Context, username string) (salt1, salt2 []byte, err error)

	// Register enrolls a new account and returns the server's time.
	Register(ctx context.Context, username, q1, q2 string, reg *vaultstore.RegistrationData) (int64, error)

	// RecoveryQuestions fetches the questions and per-answer salts.
	RecoveryQuestions(ctx context.Context, username string) (*RecoveryQuestions, error)

	// Recover submits the two answer verifiers and returns the wrapped
	// recovery key on success.
	Recover(ctx context.Context, username string, r1, r2 []byte) ([]byte, error)

	// RecoveryChange pushes the re-wrapped vault material after a password
	// reset through recovery.
	RecoveryChange(ctx context.Context, username string, r1, r2 []byte, res *vaultstore.RewrapResult) error

	// Check returns the server-side changes since the given time plus the
	// server's current time.
	Check(ctx context.Context, username string, password []byte, since int64) (map[string]changeset.Change, int64, error)

	// Update pushes local changes; the server acks with its time. Not safe
	// to blindly retry.
	Update(ctx context.Context, username string, password []byte, updates map[string]changeset.Change) (int64, error)

	// Download fetches the full vault snapshot.
	Download(ctx context.Context, username string, password []byte) (*VaultDownload, error)
}
