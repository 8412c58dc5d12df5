// Package id mints identifiers. Batch runs and event subscribers get short
// prefixed NanoIDs that are easy to grep for in logs; recitations without a
// configured key get a UUID.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	PrefixRun        = "run"
	PrefixSubscriber = "sub"
)

// alphabet leaves out 0/o and 1/l/i.
const (
	alphabet = "23456789abcdefghjkmnpqrstuvwxyz"
	length   = 12
)

// Generate returns prefix, a dash and a random suffix, e.g. "run-7kq2m9xt4hbe".
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return prefix + "-" + suffix, nil
}

// MustGenerate panics where Generate would fail, which only happens when the
// system's random source is broken.
func MustGenerate(prefix string) string {
	s, err := Generate(prefix)
	if err != nil {
		panic(err)
	}
	return s
}

func NewRecitationID() string {
	return uuid.NewString()
}
