// Package gameid generates sortable game identifiers. IDs are UUIDv7
// values (millisecond timestamp + random tail) rendered in Crockford
// base32, so lexical order matches creation order and the strings are
// safe in URLs and log lines.
package gameid

import (
	crand "crypto/rand"
	"fmt"
	"strings"
	"time"
)

const (
	encoding  = "0123456789abcdefghjkmnpqrstvwxyz"
	idLength  = 26
	rawLength = 16
)

// New returns a fresh identifier, e.g. "0gw5vyyr4vb7cvwmtcy4jtcf5w".
func New() string {
	var b [rawLength]byte

	ms := uint64(time.Now().UnixMilli())
	b[0] = byte(ms >> 40)
	b[1] = byte(ms >> 32)
	b[2] = byte(ms >> 24)
	b[3] = byte(ms >> 16)
	b[4] = byte(ms >> 8)
	b[5] = byte(ms)

	if _, err := crand.Read(b[6:]); err != nil {
		panic("gameid: crypto source unavailable: " + err.Error())
	}

	// version 7, RFC 4122 variant
	b[6] = (b[6] & 0x0f) | 0x70
	b[8] = (b[8] & 0x3f) | 0x80

	return encode(b)
}

// Validate reports whether s looks like an identifier produced by New.
func Validate(s string) error {
	if len(s) != idLength {
		return fmt.Errorf("gameid: expected %d characters, got %d", idLength, len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(encoding, r) {
			return fmt.Errorf("gameid: invalid character %q", r)
		}
	}
	return nil
}

// encode renders 16 bytes as 26 base32 characters, high bits first.
func encode(b [rawLength]byte) string {
	var out [idLength]byte
	// 128 bits into 26 five-bit groups, left-aligned (last group has 2 bits
	// of data padded with zeros).
	var acc uint64
	bits := 0
	n := 0
	for _, by := range b {
		acc = acc<<8 | uint64(by)
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[n] = encoding[(acc>>uint(bits))&0x1f]
			n++
		}
	}
	if bits > 0 {
		out[n] = encoding[(acc<<uint(5-bits))&0x1f]
		n++
	}
	return string(out[:n])
}
