package common

import (
	"crypto/rand"
	"time"
)

// RandBytes returns size cryptographically random bytes. It panics if the
// system source of randomness fails, which is unrecoverable anyway.
func RandBytes(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeBytes overwrites the contents of b with zeros. Useful for passwords
// and key material that should not linger in memory. A nil slice is a no-op.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Now returns the current Unix time in seconds. It is a variable so tests
// can substitute a deterministic clock.
var Now = func() int64 { return time.Now().Unix() }
