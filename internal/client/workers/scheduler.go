// Package workers holds the client's background loops: periodic sync,
// extension request dispatch, and clipboard hygiene. Every worker runs
// until its context is cancelled and checks for cancellation at each poll
// boundary.
package workers

import (
	"context"
	"time"

	"github.com/noodlevault/noodlevault/internal/client/vaultaccess"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/logging"
	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

// timeNow is a seam for the clipboard worker's idle timer.
var timeNow = time.Now

// now is a seam for staleness arithmetic on Unix timestamps.
var now = common.Now

// Syncer runs one sync round.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Session reports whether a user is logged in.
type Session interface {
	LoggedIn() bool
}

// SyncScheduler triggers a sync whenever the vault has not heard from the
// remote service for longer than the staleness threshold. Errors are logged
// and the loop continues; the worker never exits on failure.
type SyncScheduler struct {
	session    Session
	coord      *vaultaccess.Coordinator
	syncer     Syncer
	staleAfter time.Duration
	interval   time.Duration
	log        logging.Logger
}

func NewSyncScheduler(session Session, coord *vaultaccess.Coordinator, syncer Syncer, staleAfter, interval time.Duration, log logging.Logger) *SyncScheduler {
	return &SyncScheduler{
		session:    session,
		coord:      coord,
		syncer:     syncer,
		staleAfter: staleAfter,
		interval:   interval,
		log:        log,
	}
}

func (s *SyncScheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
		s.tick(ctx)
	}
}

func (s *SyncScheduler) tick(ctx context.Context) {
	if !s.session.LoggedIn() {
		return
	}

	last, err := vaultaccess.Do(s.coord, func(store vaultstore.Store) (int64, error) {
		return store.LastContactTime(ctx)
	})
	if err != nil {
		s.log.Warn(ctx, "reading last contact time", "error", err)
		return
	}
	if now()-last <= int64(s.staleAfter/time.Second) {
		return
	}

	if err := s.syncer.Sync(ctx); err != nil {
		s.log.Warn(ctx, "periodic sync failed", "error", err)
	}
}
