// Package common defines shared constants and sentinel errors used across
// the vault client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrNotFound  = errors.New("not found")
	ErrKeyExists = errors.New("key already exists")

	// State errors, rejected before any side effect.
	ErrVaultOpen    = errors.New("vault already open")
	ErrVaultClosed  = errors.New("vault not open")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrVaultExists  = errors.New("vault file already exists")
	ErrVaultMissing = errors.New("no local vault for user")

	// Remote errors.
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")

	// Crypto/format errors.
	ErrWrongPassword = errors.New("wrong password")
	ErrBadPayload    = errors.New("malformed payload")
)
