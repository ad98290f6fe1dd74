// Package cryptox holds the key-derivation and symmetric-encryption
// primitives shared by the vault store and the recovery flows.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/noodlevault/noodlevault/internal/common"
)

const (
	KeySize   = 32
	SaltSize  = 16
	nonceSize = 12
)

// DeriveKey stretches a low-entropy secret into a 32-byte key with argon2id.
func DeriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, KeySize)
}

// ServerPassword derives the per-user authenticator sent to the remote
// service in place of the plaintext password.
func ServerPassword(password, salt []byte) []byte {
	return DeriveKey(password, salt)
}

// Verifier hashes a derived key into a value safe to store for comparison.
func Verifier(key []byte) []byte {
	h := sha256.Sum256(key)
	return h[:]
}

// RecoveryWrapKey combines the two answer-derived keys into the single key
// that wraps the master key for account recovery.
func RecoveryWrapKey(k1, k2 []byte) []byte {
	h := sha256.New()
	h.Write(k1)
	h.Write(k2)
	return h.Sum(nil)
}

// Seal encrypts plaintext with AES-GCM under key and returns a self-contained
// blob of the form nonce ‖ ciphertext.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	nonce := common.RandBytes(nonceSize)
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal. Authentication failure (wrong key
// or tampered data) is reported as common.ErrWrongPassword.
func Open(key, blob []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < nonceSize {
		return nil, common.ErrBadPayload
	}
	plaintext, err := aead.Open(nil, blob[:nonceSize], blob[nonceSize:], nil)
	if err != nil {
		return nil, common.ErrWrongPassword
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
