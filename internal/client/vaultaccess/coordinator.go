// Package vaultaccess owns the exclusive-access discipline around the vault
// store. Every component reaches the store through Coordinator; no store
// reference escapes it.
package vaultaccess

import (
	"sync"

	"github.com/noodlevault/noodlevault/internal/vaultstore"
)

// Coordinator serializes all vault store operations. Acquisition is scoped:
// the lock is released on every exit path, including panics inside the
// operation. Calls must never re-enter WithVault from inside an operation;
// doing so deadlocks by construction.
type Coordinator struct {
	mu    sync.Mutex
	store vaultstore.Store
}

func New(store vaultstore.Store) *Coordinator {
	return &Coordinator{store: store}
}

// WithVault runs op with exclusive ownership of the store.
func (c *Coordinator) WithVault(op func(store vaultstore.Store) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return op(c.store)
}

// Do is WithVault for operations that produce a value.
func Do[T any](c *Coordinator, op func(store vaultstore.Store) (T, error)) (T, error) {
	var out T
	err := c.WithVault(func(store vaultstore.Store) error {
		var opErr error
		out, opErr = op(store)
		return opErr
	})
	return out, err
}
