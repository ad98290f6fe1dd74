package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/client/client"
	"github.com/noodlevault/noodlevault/internal/client/models"
	"github.com/noodlevault/noodlevault/internal/client/vaultaccess"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

// SyncEngine reconciles the local vault with the remote service. Conflicts
// resolve last-write-wins on timestamps, with ties kept local. Network calls
// happen outside the vault lock; only the apply steps take it, per key.
type SyncEngine struct {
	coord   *vaultaccess.Coordinator
	pending *changeset.Pending
	remote  client.Client
	state   *State
	creds   CredentialService
	log     logging.Logger
}

func NewSyncEngine(coord *vaultaccess.Coordinator, pending *changeset.Pending, remote client.Client, state *State, creds CredentialService, log logging.Logger) *SyncEngine {
	return &SyncEngine{coord: coord, pending: pending, remote: remote, state: state, creds: creds, log: log}
}

// Sync runs one full reconciliation round:
//
//  1. fetch server changes since the last contact time
//  2. merge them against the pending set, newest timestamp wins
//  3. apply server-won changes to the vault
//  4. push locally-won changes and drop the pending set
//  5. re-check and fold in any server corrections to the push
//  6. record the server's time as the new last contact time
//
// The pending set is dropped as soon as the push request completes, even
// when the push itself failed; a change lost that way only resurfaces
// through a later server correction.
func (e *SyncEngine) Sync(ctx context.Context) error {
	if !e.state.LoggedIn() {
		return common.ErrNotLoggedIn
	}
	username := e.state.Username()
	_, salt2 := e.state.Salts()

	var serverPass []byte
	var lastContact int64
	err := e.coord.WithVault(func(store vaultstore.Store) error {
		var err error
		if serverPass, err = store.DeriveServerPassword(salt2); err != nil {
			return err
		}
		lastContact, err = store.LastContactTime(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("reading sync state: %w", err)
	}

	serverChanges, serverTime, err := e.remote.Check(ctx, username, serverPass, lastContact)
	if err != nil {
		return fmt.Errorf("checking remote changes: %w", err)
	}

	applyLocal, push := merge(serverChanges, e.pending.Snapshot())

	for key, change := range applyLocal {
		if err := e.applyServerChange(ctx, key, change); err != nil {
			return fmt.Errorf("applying server change for %q: %w", key, err)
		}
	}

	pushErr := func() error {
		defer e.pending.Clear()
		_, err := e.remote.Update(ctx, username, serverPass, push)
		return err
	}()
	if pushErr != nil {
		return fmt.Errorf("pushing local changes: %w", pushErr)
	}

	corrections, finalTime, err := e.remote.Check(ctx, username, serverPass, serverTime)
	if err != nil {
		return fmt.Errorf("confirming push: %w", err)
	}
	for key, change := range corrections {
		if change.Equal(push[key]) {
			continue
		}
		if err := e.applyCorrection(ctx, key, change); err != nil {
			e.log.Warn(ctx, "server correction failed", "key", key, "error", err)
		}
	}

	return e.coord.WithVault(func(store vaultstore.Store) error {
		prev, err := store.LastContactTime(ctx)
		if err != nil {
			return err
		}
		if finalTime <= prev {
			return nil
		}
		return store.SetLastContactTime(ctx, finalTime)
	})
}

// merge splits the union of both change sets by timestamp. Strictly newer
// server entries are applied locally; everything else, including ties, is
// pushed back.
func merge(server, local map[string]changeset.Change) (applyLocal, push map[string]changeset.Change) {
	applyLocal = make(map[string]changeset.Change)
	push = make(map[string]changeset.Change)

	seen := make(map[string]struct{}, len(server)+len(local))
	for key := range server {
		seen[key] = struct{}{}
	}
	for key := range local {
		seen[key] = struct{}{}
	}

	for key := range seen {
		sc, ok := server[key]
		if !ok {
			sc = changeset.None()
		}
		lc, ok := local[key]
		if !ok {
			lc = changeset.None()
		}
		if sc.Time() > lc.Time() {
			applyLocal[key] = sc
		} else {
			push[key] = lc
		}
	}
	return applyLocal, push
}

// applyServerChange writes a server-won change into the vault, keeping the
// server's timestamp and the payload sealed as received.
func (e *SyncEngine) applyServerChange(ctx context.Context, key string, change changeset.Change) error {
	return e.coord.WithVault(func(store vaultstore.Store) error {
		if err := store.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if change.Kind != changeset.Updated {
			return nil
		}
		return store.AddEncrypted(ctx, vaultstore.KindCredentialPair, key, change.Value, change.Timestamp)
	})
}

// applyCorrection folds a post-push server disagreement back in through the
// normal mutation path, so it lands in the pending set and gets pushed on
// the next round.
func (e *SyncEngine) applyCorrection(ctx context.Context, key string, change changeset.Change) error {
	if change.Kind != changeset.Updated {
		err := e.creds.Delete(ctx, key)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	plaintext, err := vaultaccess.Do(e.coord, func(store vaultstore.Store) ([]byte, error) {
		return store.DecryptValue(change.Value)
	})
	if err != nil {
		return err
	}
	cred, err := models.DecodeCredentials(plaintext)
	if err != nil {
		return err
	}

	err = e.creds.Modify(ctx, key, cred.Username, cred.Password)
	if errors.Is(err, common.ErrNotFound) {
		return e.creds.Add(ctx, key, cred.Username, cred.Password)
	}
	return err
}
