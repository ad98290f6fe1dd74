package services

import (
	"context"
	"testing"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
	"github.com/stretchr/testify/require"
)

func TestCredentialAddRecordsPendingChange(t *testing.T) {
	e := newEnv(t)
	e.openVault(t, "alice", "pw")
	fixedClock(t, 1234)
	ctx := context.Background()

	require.NoError(t, e.creds.Add(ctx, "example.com", "alice", "secret"))

	change := e.pending.Get("example.com")
	require.Equal(t, changeset.Updated, change.Kind)
	require.Equal(t, int64(1234), change.Timestamp)

	var sealed []byte
	var ts int64
	err := e.coord.WithVault(func(store vaultstore.Store) error {
		var err error
		_, sealed, ts, err = store.GetEncrypted(ctx, "example.com")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, sealed, change.Value)
	require.Equal(t, ts, change.Timestamp)
}

func TestCredentialAddDuplicateKey(t *testing.T) {
	e := newEnv(t)
	e.openVault(t, "alice", "pw")
	ctx := context.Background()

	require.NoError(t, e.creds.Add(ctx, "example.com", "alice", "secret"))
	err := e.creds.Add(ctx, "example.com", "alice", "other")
	require.ErrorIs(t, err, common.ErrKeyExists)
}

func TestCredentialModify(t *testing.T) {
	e := newEnv(t)
	e.openVault(t, "alice", "pw")
	ctx := context.Background()

	require.NoError(t, e.creds.Add(ctx, "example.com", "alice", "old"))
	fixedClock(t, 2000)
	require.NoError(t, e.creds.Modify(ctx, "example.com", "alice", "new"))

	cred, err := e.creds.Get(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, "alice", cred.Username)
	require.Equal(t, "new", cred.Password)

	change := e.pending.Get("example.com")
	require.Equal(t, changeset.Updated, change.Kind)
	require.Equal(t, int64(2000), change.Timestamp)
}

func TestCredentialModifyMissing(t *testing.T) {
	e := newEnv(t)
	e.openVault(t, "alice", "pw")

	err := e.creds.Modify(context.Background(), "nope.com", "x", "y")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.Equal(t, changeset.NoChange, e.pending.Get("nope.com").Kind)
}

func TestCredentialDeleteRecordsTombstone(t *testing.T) {
	e := newEnv(t)
	e.openVault(t, "alice", "pw")
	ctx := context.Background()

	require.NoError(t, e.creds.Add(ctx, "example.com", "alice", "secret"))
	fixedClock(t, 3000)
	require.NoError(t, e.creds.Delete(ctx, "example.com"))

	_, err := e.creds.Get(ctx, "example.com")
	require.ErrorIs(t, err, common.ErrNotFound)

	change := e.pending.Get("example.com")
	require.Equal(t, changeset.Deleted, change.Kind)
	require.Equal(t, int64(3000), change.Timestamp)
}

func TestCredentialDeleteMissing(t *testing.T) {
	e := newEnv(t)
	e.openVault(t, "alice", "pw")

	err := e.creds.Delete(context.Background(), "nope.com")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.Equal(t, changeset.NoChange, e.pending.Get("nope.com").Kind)
}

func TestCredentialWebsites(t *testing.T) {
	e := newEnv(t)
	e.openVault(t, "alice", "pw")
	ctx := context.Background()

	require.NoError(t, e.creds.Add(ctx, "b.com", "u", "p"))
	require.NoError(t, e.creds.Add(ctx, "a.com", "u", "p"))

	sites, err := e.creds.Websites(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a.com", "b.com"}, sites)
}

func TestCredentialVaultClosed(t *testing.T) {
	e := newEnv(t)

	err := e.creds.Add(context.Background(), "example.com", "u", "p")
	require.ErrorIs(t, err, common.ErrVaultClosed)
}
