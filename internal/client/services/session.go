package services

import (
	"context"
	"fmt"

	"github.com/noodlevault/noodlevault/internal/client/client"
	"github.com/noodlevault/noodlevault/internal/client/vaultaccess"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

// SessionService drives account lifecycle: enrollment, login, logout, vault
// download onto a fresh machine, and password recovery.
type SessionService interface {
	// SignUp creates a local vault and enrolls the account remotely. The
	// recovery pairs are (question, answer). On remote failure the local
	// vault is removed again.
	SignUp(ctx context.Context, username, password, q1, a1, q2, a2 string) error

	// LogIn opens the local vault and fetches the account salts.
	LogIn(ctx context.Context, username, password string) error

	// DownloadVault rebuilds the vault from the remote snapshot and logs in.
	DownloadVault(ctx context.Context, username, password string) error

	// LogOut syncs best-effort, then locks the vault.
	LogOut(ctx context.Context) error

	// RecoveryQuestions fetches the user's two security questions.
	RecoveryQuestions(ctx context.Context, username string) (q1, q2 string, err error)

	// ForgotPassword resets the vault password through the recovery answers.
	// The vault must be closed.
	ForgotPassword(ctx context.Context, username, newPassword, answer1, answer2 string) error

	// VaultExists reports whether a local vault file exists for the user.
	VaultExists(username string) bool
}

type sessionService struct {
	coord  *vaultaccess.Coordinator
	remote client.Client
	state  *State
	sync   *SyncEngine
	log    logging.Logger
}

func NewSessionService(coord *vaultaccess.Coordinator, remote client.Client, state *State, sync *SyncEngine, log logging.Logger) SessionService {
	return &sessionService{coord: coord, remote: remote, state: state, sync: sync, log: log}
}

func (s *sessionService) SignUp(ctx context.Context, username, password, q1, a1, q2, a2 string) error {
	reg, err := vaultaccess.Do(s.coord, func(store vaultstore.Store) (*vaultstore.RegistrationData, error) {
		if err := store.Create(ctx, username, password); err != nil {
			return nil, err
		}
		reg, err := store.RegistrationData(a1, a2)
		if err != nil {
			return nil, err
		}
		if reg.Header, err = store.Header(ctx); err != nil {
			return nil, err
		}
		return reg, nil
	})
	if err != nil {
		return fmt.Errorf("creating vault: %w", err)
	}

	serverTime, err := s.remote.Register(ctx, username, q1, q2, reg)
	if err != nil {
		s.rollbackVault(ctx, username)
		return fmt.Errorf("enrolling %q: %w", username, err)
	}

	if err := s.coord.WithVault(func(store vaultstore.Store) error {
		return store.SetLastContactTime(ctx, serverTime)
	}); err != nil {
		return err
	}

	// The salts the remote hands out are the ones just enrolled, so they
	// are already in hand.
	s.state.establish(username, reg.PassSalt1, reg.PassSalt2)
	return nil
}

// rollbackVault unwinds a vault left over from a failed enrollment.
func (s *sessionService) rollbackVault(ctx context.Context, username string) {
	err := s.coord.WithVault(func(store vaultstore.Store) error {
		if err := store.Close(); err != nil {
			return err
		}
		return store.Remove(username)
	})
	if err != nil {
		s.log.Warn(ctx, "enrollment rollback failed", "username", username, "error", err)
	}
}

func (s *sessionService) LogIn(ctx context.Context, username, password string) error {
	if username == "" {
		return common.ErrUnauthorized
	}
	if err := s.coord.WithVault(func(store vaultstore.Store) error {
		return store.Open(ctx, username, password)
	}); err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	salt1, salt2, err := s.remote.GetSalts(ctx, username)
	if err != nil {
		closeErr := s.coord.WithVault(func(store vaultstore.Store) error {
			return store.Close()
		})
		if closeErr != nil {
			s.log.Warn(ctx, "closing vault after salt fetch failure", "error", closeErr)
		}
		return fmt.Errorf("fetching salts: %w", err)
	}

	s.state.establish(username, salt1, salt2)
	return nil
}

func (s *sessionService) DownloadVault(ctx context.Context, username, password string) error {
	salt1, salt2, err := s.remote.GetSalts(ctx, username)
	if err != nil {
		return fmt.Errorf("fetching salts: %w", err)
	}

	serverPass := vaultstore.ServerPasswordFromPassword(password, salt2)
	dl, err := s.remote.Download(ctx, username, serverPass)
	if err != nil {
		return fmt.Errorf("downloading vault: %w", err)
	}

	if err := s.coord.WithVault(func(store vaultstore.Store) error {
		return store.CreateFromServerData(ctx, username, password, dl.Header, dl.Records, dl.Time)
	}); err != nil {
		return fmt.Errorf("rebuilding vault: %w", err)
	}

	s.state.establish(username, salt1, salt2)
	return nil
}

func (s *sessionService) LogOut(ctx context.Context) error {
	if !s.state.LoggedIn() {
		return common.ErrNotLoggedIn
	}
	if err := s.sync.Sync(ctx); err != nil {
		s.log.Warn(ctx, "final sync before logout failed", "error", err)
	}
	s.state.clear()
	return s.coord.WithVault(func(store vaultstore.Store) error {
		return store.Close()
	})
}

func (s *sessionService) RecoveryQuestions(ctx context.Context, username string) (string, string, error) {
	q, err := s.remote.RecoveryQuestions(ctx, username)
	if err != nil {
		return "", "", err
	}
	return q.Q1, q.Q2, nil
}

func (s *sessionService) ForgotPassword(ctx context.Context, username, newPassword, answer1, answer2 string) error {
	q, err := s.remote.RecoveryQuestions(ctx, username)
	if err != nil {
		return fmt.Errorf("fetching recovery questions: %w", err)
	}

	r1, r2 := vaultstore.RecoveryResponses(answer1, answer2, q.Salts)

	blob, err := s.remote.Recover(ctx, username, r1, r2)
	if err != nil {
		return fmt.Errorf("verifying recovery answers: %w", err)
	}

	res, err := vaultaccess.Do(s.coord, func(store vaultstore.Store) (*vaultstore.RewrapResult, error) {
		return store.RewrapFromRecovery(ctx, username, answer1, answer2, blob, q.Salts, newPassword)
	})
	if err != nil {
		return fmt.Errorf("re-wrapping vault: %w", err)
	}

	if err := s.remote.RecoveryChange(ctx, username, r1, r2, res); err != nil {
		return fmt.Errorf("pushing recovered credentials: %w", err)
	}
	return nil
}

func (s *sessionService) VaultExists(username string) bool {
	exists, _ := vaultaccess.Do(s.coord, func(store vaultstore.Store) (bool, error) {
		return store.Exists(username), nil
	})
	return exists
}
