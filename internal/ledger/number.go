package ledger

import (
	"crypto/rand"
	"fmt"
)

// numberAlphabet deliberately omits 0/O and 1/I to keep transaction numbers
// legible on statements and over the phone.
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const numberSuffixLen = 8

// NumberGenerator produces transaction numbers of the form PREFIX-XXXXXXXX.
// Suffixes come from crypto/rand; uniqueness is still verified by the store
// before commit and generation is retried on collision.
type NumberGenerator struct {
	prefix string
}

// NewNumberGenerator builds a generator with the given prefix.
func NewNumberGenerator(prefix string) *NumberGenerator {
	if prefix == "" {
		prefix = "TXN"
	}
	return &NumberGenerator{prefix: prefix}
}

// Next returns a fresh transaction number.
func (g *NumberGenerator) Next() (string, error) {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate transaction number: %w", err)
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return g.prefix + "-" + string(buf), nil
}
