package changeset

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet_AbsentKeyYieldsSentinel(t *testing.T) {
	p := NewPending()
	c := p.Get("nosuch.example.com")
	require.Equal(t, NoChange, c.Kind)
	require.Equal(t, int64(-1), c.Time())
}

func TestRecord_ReplacesPrevious(t *testing.T) {
	p := NewPending()
	p.Record("example.com", NewUpdate([]byte("v1"), 10))
	p.Record("example.com", NewDelete(20))

	c := p.Get("example.com")
	require.Equal(t, Deleted, c.Kind)
	require.Equal(t, int64(20), c.Time())
	require.Equal(t, 1, p.Len())
}

func TestSnapshot_IsACopy(t *testing.T) {
	p := NewPending()
	p.Record("a.com", NewUpdate([]byte("v"), 1))

	snap := p.Snapshot()
	p.Clear()

	require.Len(t, snap, 1)
	require.Equal(t, 0, p.Len())
}

func TestChange_TimeSentinelAlwaysLoses(t *testing.T) {
	none := None()
	for _, ts := range []int64{0, 1, 999999} {
		require.Greater(t, NewUpdate(nil, ts).Time(), none.Time())
		require.Greater(t, NewDelete(ts).Time(), none.Time())
	}
}

func TestChange_Equal(t *testing.T) {
	require.True(t, NewUpdate([]byte("x"), 5).Equal(NewUpdate([]byte("x"), 5)))
	require.False(t, NewUpdate([]byte("x"), 5).Equal(NewUpdate([]byte("y"), 5)))
	require.False(t, NewUpdate([]byte("x"), 5).Equal(NewUpdate([]byte("x"), 6)))
	require.False(t, NewUpdate(nil, 5).Equal(NewDelete(5)))
	require.True(t, NewDelete(5).Equal(NewDelete(5)))
	require.True(t, None().Equal(None()))
}

func TestPending_ConcurrentAccess(t *testing.T) {
	p := NewPending()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("site-%d.com", n%4)
			for j := 0; j < 100; j++ {
				p.Record(key, NewUpdate([]byte{byte(j)}, int64(j)))
				_ = p.Get(key)
				_ = p.Snapshot()
			}
		}(i)
	}
	wg.Wait()
	require.LessOrEqual(t, p.Len(), 4)
}
