package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/noodlevault/noodlevault/internal/common"
	"github.com/stretchr/testify/require"
)

type fakeClip struct {
	mu     sync.Mutex
	writes []string
}

func (c *fakeClip) Write(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, text)
	return nil
}

func (c *fakeClip) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func (c *fakeClip) count(text string) int {
	n := 0
	for _, w := range c.all() {
		if w == text {
			n++
		}
	}
	return n
}

func TestClipboardCopiesAndClearsOnce(t *testing.T) {
	clip := &fakeClip{}
	w := NewClipboardWorker(clip, 40*time.Millisecond, 5*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Copy("s3cret"))

	require.Eventually(t, func() bool {
		return clip.count("s3cret") == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return clip.count("") == 1
	}, time.Second, 5*time.Millisecond)

	// No repeated clears while nothing new is copied.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, 1, clip.count(""))
}

func TestClipboardNewCopyRestartsIdlePeriod(t *testing.T) {
	clip := &fakeClip{}
	w := NewClipboardWorker(clip, 40*time.Millisecond, 5*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Copy("first"))
	require.Eventually(t, func() bool { return clip.count("") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Copy("second"))
	require.Eventually(t, func() bool { return clip.count("second") == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return clip.count("") == 2 }, time.Second, 5*time.Millisecond)
}

func TestClipboardCopyBacklogged(t *testing.T) {
	w := NewClipboardWorker(&fakeClip{}, time.Minute, time.Minute, discardLogger())

	for i := 0; i < 32; i++ {
		require.NoError(t, w.Copy("x"))
	}
	require.ErrorIs(t, w.Copy("x"), common.ErrUnavailable)
}
