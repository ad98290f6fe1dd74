package workers

import (
	"context"
	"time"

	"github.com/noodlevault/noodlevault/internal/client/clipboard"
	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/noodlevault/noodlevault/internal/logging"
)

// ClipboardWorker serializes clipboard writes and wipes the clipboard once
// it has sat idle past the clear timeout, once per idle period.
type ClipboardWorker struct {
	clip       clipboard.Clipboard
	requests   chan string
	clearAfter time.Duration
	poll       time.Duration
	log        logging.Logger
}

func NewClipboardWorker(clip clipboard.Clipboard, clearAfter, poll time.Duration, log logging.Logger) *ClipboardWorker {
	return &ClipboardWorker{
		clip:       clip,
		requests:   make(chan string, 32),
		clearAfter: clearAfter,
		poll:       poll,
		log:        log,
	}
}

// Copy queues text for the clipboard. Fails when the worker is backlogged.
func (w *ClipboardWorker) Copy(text string) error {
	select {
	case w.requests <- text:
		return nil
	default:
		return common.ErrUnavailable
	}
}

func (w *ClipboardWorker) Run(ctx context.Context) {
	var lastCopy time.Time
	cleared := true

	for {
		select {
		case <-ctx.Done():
			return
		case text := <-w.requests:
			if err := w.clip.Write(text); err != nil {
				w.log.Warn(ctx, "clipboard write failed", "error", err)
				continue
			}
			lastCopy = timeNow()
			cleared = false
		case <-time.After(w.poll):
			if cleared || timeNow().Sub(lastCopy) <= w.clearAfter {
				continue
			}
			if err := w.clip.Write(""); err != nil {
				w.log.Warn(ctx, "clipboard clear failed", "error", err)
			}
			cleared = true
		}
	}
}
