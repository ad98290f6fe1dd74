// Package models defines the credential record types stored in the vault
// and their binary encoding.
package models

import (
	"encoding/binary"
	"fmt"

	"github.com/noodlevault/noodlevault/internal/common"
)

// Credential is a decoded username/password pair.
type Credential struct {
	Username string
	Password string
}

// EncodeCredentials packs a username and password into the storage payload:
// a 4-byte little-endian username length, the username bytes, then the
// password bytes.
func EncodeCredentials(username, password string) []byte {
	u := []byte(username)
	p := []byte(password)
	out := make([]byte, 4+len(u)+len(p))
	binary.LittleEndian.PutUint32(out, uint32(len(u)))
	copy(out[4:], u)
	copy(out[4+len(u):], p)
	return out
}

// DecodeCredentials unpacks a payload produced by EncodeCredentials.
func DecodeCredentials(payload []byte) (Credential, error) {
	if len(payload) < 4 {
		return Credential{}, fmt.Errorf("payload of %d bytes: %w", len(payload), common.ErrBadPayload)
	}
	userLen := int(binary.LittleEndian.Uint32(payload))
	if userLen < 0 || 4+userLen > len(payload) {
		return Credential{}, fmt.Errorf("username length %d exceeds payload: %w", userLen, common.ErrBadPayload)
	}
	return Credential{
		Username: string(payload[4 : 4+userLen]),
		Password: string(payload[4+userLen:]),
	}, nil
}
