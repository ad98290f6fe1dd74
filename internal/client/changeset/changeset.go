// Package changeset tracks local credential mutations that have not yet been
// reconciled with the remote service.
package changeset

import (
	"bytes"
	"sync"
)

// Kind discriminates the states a key can be in.
type Kind int

const (
	// NoChange means no known change for the key. It always loses a
	// timestamp comparison against a real change.
	NoChange Kind = iota
	// Updated carries a new encrypted payload for the key.
	Updated
	// Deleted is a tombstone: the key was removed.
	Deleted
)

// Change is one pending or remote mutation of a single key.
type Change struct {
	Kind      Kind
	Value     []byte
	Timestamp int64
}

// None is the sentinel for an absent change; its timestamp of -1 loses to
// any real change.
func None() Change {
	return Change{Kind: NoChange, Timestamp: -1}
}

// NewUpdate returns a change carrying a new encrypted value.
func NewUpdate(value []byte, ts int64) Change {
	return Change{Kind: Updated, Value: value, Timestamp: ts}
}

// NewDelete returns a tombstone change.
func NewDelete(ts int64) Change {
	return Change{Kind: Deleted, Timestamp: ts}
}

// Time returns the change's timestamp; NoChange always reports -1.
func (c Change) Time() int64 {
	if c.Kind == NoChange {
		return -1
	}
	return c.Timestamp
}

// Equal reports whether two changes carry the same state: same kind, same
// timestamp, and (for updates) the same value bytes.
func (c Change) Equal(o Change) bool {
	if c.Kind != o.Kind || c.Time() != o.Time() {
		return false
	}
	if c.Kind == Updated {
		return bytes.Equal(c.Value, o.Value)
	}
	return true
}

// Pending is the process-wide set of unsynced local mutations, keyed by
// website. All access is guarded; any vault-mutating call records into it
// and the sync engine snapshots and clears it.
type Pending struct {
	mu      sync.Mutex
	changes map[string]Change
}

func NewPending() *Pending {
	return &Pending{changes: make(map[string]Change)}
}

// Record registers a change for key, replacing any previous one.
func (p *Pending) Record(key string, c Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes[key] = c
}

// Get returns the pending change for key, or the None sentinel when there
// is no local change; lookups never fail.
func (p *Pending) Get(key string) Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.changes[key]; ok {
		return c
	}
	return None()
}

// Snapshot returns a copy of the current change map.
func (p *Pending) Snapshot() map[string]Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]Change, len(p.changes))
	for k, v := range p.changes {
		out[k] = v
	}
	return out
}

// Clear drops all pending changes.
func (p *Pending) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = make(map[string]Change)
}

// Len returns the number of keys with pending changes.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changes)
}
