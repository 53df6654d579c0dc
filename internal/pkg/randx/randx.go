/*
Package randx generates identifiers, default nicknames and random orderings.

Identifiers use UUIDv4; nicknames draw from crypto/rand. Shuffle uses the runtime-seeded
math/rand/v2 source: partitions are independent per call and never reproducible.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"

	"github.com/google/uuid"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	nicknameSuffixLength = 6
)

// ID returns a new UUIDv4 string.
func ID() string {
	return uuid.NewString()
}

// IsValidID reports whether s parses as a UUID.
func IsValidID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// Nickname returns "Rabbit_" followed by six random Base62 characters.
func Nickname() (string, error) {
	suffix := make([]byte, nicknameSuffixLength)
	alphabet := big.NewInt(int64(len(base62Chars)))

	for i := range suffix {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", fmt.Errorf("randx: nickname: %w", err)
		}
		suffix[i] = base62Chars[n.Int64()]
	}

	return "Rabbit_" + string(suffix), nil
}

// Shuffle returns a shuffled copy of ids; the input is left untouched.
func Shuffle(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)

	mrand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}
