// Package cli is the interactive surface of the vault client: a small REPL
// driving the session, credential, and sync services, with the background
// workers running alongside.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/noodlevault/noodlevault/internal/client/changeset"
	"github.com/noodlevault/noodlevault/internal/client/client"
	"github.com/noodlevault/noodlevault/internal/client/clipboard"
	"github.com/noodlevault/noodlevault/internal/client/config"
	"github.com/noodlevault/noodlevault/internal/client/extension"
	"github.com/noodlevault/noodlevault/internal/client/services"
	"github.com/noodlevault/noodlevault/internal/client/vaultaccess"
	"github.com/noodlevault/noodlevault/internal/client/workers"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

type App struct {
	config  *config.Config
	state   *services.State
	creds   services.CredentialService
	session services.SessionService
	sync    *services.SyncEngine

	scheduler  *workers.SyncScheduler
	dispatcher *workers.Dispatcher
	clip       *workers.ClipboardWorker
	extension  *extension.Server

	log    logging.Logger
	reader *bufio.Reader
}

func NewApp(cfg *config.Config, log logging.Logger) *App {
	store := vaultstore.NewSQLiteStore(cfg.VaultDir)
	coord := vaultaccess.New(store)
	pending := changeset.NewPending()
	state := services.NewState()
	remote := client.NewHTTPClient(cfg.ServerBaseURL)

	creds := services.NewCredentialService(coord, pending, log)
	sync := services.NewSyncEngine(coord, pending, remote, state, creds, log)
	session := services.NewSessionService(coord, remote, state, sync, log)

	hub := extension.NewHub()

	return &App{
		config:     cfg,
		state:      state,
		creds:      creds,
		session:    session,
		sync:       sync,
		scheduler:  workers.NewSyncScheduler(state, coord, sync, cfg.SyncStaleAfter, cfg.SyncInterval, log),
		dispatcher: workers.NewDispatcher(hub, creds, cfg.DispatchInterval, log),
		clip:       workers.NewClipboardWorker(clipboard.NewSystem(), cfg.ClipboardClearAfter, cfg.ClipboardPollInterval, log),
		extension:  extension.NewServer(cfg.ExtensionListenAddr, hub, log),
		log:        log,
		reader:     bufio.NewReader(os.Stdin),
	}
}

// Run starts the background workers and hands control to the REPL. All
// workers stop when the REPL exits.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.scheduler.Run(ctx)
	go a.dispatcher.Run(ctx)
	go a.clip.Run(ctx)
	go func() {
		if err := a.extension.Run(ctx); err != nil {
			a.log.Error(ctx, "extension server stopped", "error", err)
		}
	}()

	a.Root(ctx)

	if a.state.LoggedIn() {
		if err := a.session.LogOut(ctx); err != nil {
			a.log.Warn(ctx, "logout on exit", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.state.LoggedIn()
}
