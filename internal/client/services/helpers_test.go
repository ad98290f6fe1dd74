package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/client/client"
	"github.com/noodlevault/noodlevault/internal/client/vaultaccess"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
	"github.com/stretchr/testify/require"
)

// fakeRemote implements client.Client with overridable call sites. Calls
// without an override fail as unreachable.
type fakeRemote struct {
	getSalts          func(ctx context.Context, username string) ([]byte, []byte, error)
	register          func(ctx context.Context, username, q1, q2 string, reg *vaultstore.RegistrationData) (int64, error)
	recoveryQuestions func(ctx context.Context, username string) (*client.RecoveryQuestions, error)
	recover           func(ctx context.Context, username string, r1, r2 []byte) ([]byte, error)
	recoveryChange    func(ctx context.Context, username string, r1, r2 []byte, res *vaultstore.RewrapResult) error
	check             func(ctx context.Context, username string, password []byte, since int64) (map[string]changeset.Change, int64, error)
	update            func(ctx context.Context, username string, password []byte, updates map[string]changeset.Change) (int64, error)
	download          func(ctx context.Context, username string, password []byte) (*client.VaultDownload, error)
}

func (f *fakeRemote) GetSalts(ctx context.Context, username string) ([]byte, []byte, error) {
	if f.getSalts == nil {
		return nil, nil, common.ErrUnavailable
	}
	return f.getSalts(ctx, username)
}

func (f *fakeRemote) Register(ctx context.Context, username, q1, q2 string, reg *vaultstore.RegistrationData) (int64, error) {
	if f.register == nil {
		return 0, common.ErrUnavailable
	}
	return f.register(ctx, username, q1, q2, reg)
}

func (f *fakeRemote) RecoveryQuestions(ctx context.Context, username string) (*client.RecoveryQuestions, error) {
	if f.recoveryQuestions == nil {
		return nil, common.ErrUnavailable
	}
	return f.recoveryQuestions(ctx, username)
}

func (f *fakeRemote) Recover(ctx context.Context, username string, r1, r2 []byte) ([]byte, error) {
	if f.recover == nil {
		return nil, common.ErrUnavailable
	}
	return f.recover(ctx, username, r1, r2)
}

func (f *fakeRemote) RecoveryChange(ctx context.Context, username string, r1, r2 []byte, res *vaultstore.RewrapResult) error {
	if f.recoveryChange == nil {
		return common.ErrUnavailable
	}
	return f.recoveryChange(ctx, username, r1, r2, res)
}

func (f *fakeRemote) Check(ctx context.Context, username string, password []byte, since int64) (map[string]changeset.Change, int64, error) {
	if f.check == nil {
		return nil, 0, common.ErrUnavailable
	}
	return f.check(ctx, username, password, since)
}

func (f *fakeRemote) Update(ctx context.Context, username string, password []byte, updates map[string]changeset.Change) (int64, error) {
	if f.update == nil {
		return 0, common.ErrUnavailable
	}
	return f.update(ctx, username, password, updates)
}

func (f *fakeRemote) Download(ctx context.Context, username string, password []byte) (*client.VaultDownload, error) {
	if f.download == nil {
		return nil, common.ErrUnavailable
	}
	return f.download(ctx, username, password)
}

// env wires a full service stack over a real sqlite store in a temp dir.
type env struct {
	store   *vaultstore.SQLiteStore
	coord   *vaultaccess.Coordinator
	pending *changeset.Pending
	state   *State
	remote  *fakeRemote
	creds   CredentialService
	sync    *SyncEngine
	session SessionService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e := &env{
		store:   vaultstore.NewSQLiteStore(t.TempDir()),
		pending: changeset.NewPending(),
		state:   NewState(),
		remote:  &fakeRemote{},
	}
	e.coord = vaultaccess.New(e.store)
	e.creds = NewCredentialService(e.coord, e.pending, log)
	e.sync = NewSyncEngine(e.coord, e.pending, e.remote, e.state, e.creds, log)
	e.session = NewSessionService(e.coord, e.remote, e.state, e.sync, log)

	t.Cleanup(func() { _ = e.store.Close() })
	return e
}

// openVault creates a fresh vault and marks the session logged in, without
// going through the remote enrollment path.
func (e *env) openVault(t *testing.T, username, password string) {
	t.Helper()
	err := e.coord.WithVault(func(store vaultstore.Store) error {
		return store.Create(context.Background(), username, password)
	})
	require.NoError(t, err)
	e.state.establish(username, []byte("salt-one-16bytes"), []byte("salt-two-16bytes"))
}

// fixedClock pins nowFn for the duration of the test.
func fixedClock(t *testing.T, ts int64) {
	t.Helper()
	prev := nowFn
	nowFn = func() int64 { return ts }
	t.Cleanup(func() { nowFn = prev })
}
