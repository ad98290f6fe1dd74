package services

import (
	"context"
	"fmt"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/client/models"
	"github.com/noodlevault/noodlevault/internal/client/vaultaccess"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

// CredentialService is the single entry point for credential mutations and
// lookups. Every mutation goes through the vault coordinator and mirrors
// itself into the pending change set with the same timestamp, so the store
// and the change set never disagree.
type CredentialService interface {
	Add(ctx context.Context, website, username, password string) error
	Modify(ctx context.Context, website, username, password string) error
	Delete(ctx context.Context, website string) error
	Get(ctx context.Context, website string) (models.Credential, error)
	Websites(ctx context.Context) ([]string, error)
}

type credentialService struct {
	coord   *vaultaccess.Coordinator
	pending *changeset.Pending
	log     logging.Logger
}

func NewCredentialService(coord *vaultaccess.Coordinator, pending *changeset.Pending, log logging.Logger) CredentialService {
	return &credentialService{coord: coord, pending: pending, log: log}
}

// Add stores a new credential pair under the website key. The pending entry
// carries the sealed payload the store produced, at the same timestamp as
// the store write.
func (s *credentialService) Add(ctx context.Context, website, username, password string) error {
	now := nowFn()
	payload := models.EncodeCredentials(username, password)

	return s.coord.WithVault(func(store vaultstore.Store) error {
		if err := store.Add(ctx, vaultstore.KindCredentialPair, website, payload, now); err != nil {
			return fmt.Errorf("adding credential for %q: %w", website, err)
		}
		_, sealed, _, err := store.GetEncrypted(ctx, website)
		if err != nil {
			return err
		}
		s.pending.Record(website, changeset.NewUpdate(sealed, now))
		return nil
	})
}

// Modify replaces an existing credential pair.
func (s *credentialService) Modify(ctx context.Context, website, username, password string) error {
	now := nowFn()
	payload := models.EncodeCredentials(username, password)

	return s.coord.WithVault(func(store vaultstore.Store) error {
		if err := store.Update(ctx, vaultstore.KindCredentialPair, website, payload, now); err != nil {
			return fmt.Errorf("updating credential for %q: %w", website, err)
		}
		_, sealed, _, err := store.GetEncrypted(ctx, website)
		if err != nil {
			return err
		}
		s.pending.Record(website, changeset.NewUpdate(sealed, now))
		return nil
	})
}

// Delete removes the credential and records a tombstone.
func (s *credentialService) Delete(ctx context.Context, website string) error {
	now := nowFn()

	return s.coord.WithVault(func(store vaultstore.Store) error {
		if err := store.Delete(ctx, website); err != nil {
			return fmt.Errorf("deleting credential for %q: %w", website, err)
		}
		s.pending.Record(website, changeset.NewDelete(now))
		return nil
	})
}

// Get returns the decoded credential pair for the website.
func (s *credentialService) Get(ctx context.Context, website string) (models.Credential, error) {
	return vaultaccess.Do(s.coord, func(store vaultstore.Store) (models.Credential, error) {
		kind, plaintext, err := store.Get(ctx, website)
		if err != nil {
			return models.Credential{}, err
		}
		if kind != vaultstore.KindCredentialPair {
			// Single-value records have no username component.
			return models.Credential{Password: string(plaintext)}, nil
		}
		return models.DecodeCredentials(plaintext)
	})
}

// Websites lists every stored key.
func (s *credentialService) Websites(ctx context.Context) ([]string, error) {
	return vaultaccess.Do(s.coord, func(store vaultstore.Store) ([]string, error) {
		return store.Keys(ctx)
	})
}
