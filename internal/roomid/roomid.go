// Package roomid generates the short join codes players type to enter a
// room.
package roomid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Crockford's base32 alphabet: no i, l, o, u, so codes survive being read
// aloud or retyped from a screenshot.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the number of characters in a room code.
const Length = 6

// RandSource interface for dependency injection of randomness
type RandSource interface {
	Intn(n int) int
}

// Generator produces room codes with configurable randomness.
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator with optional RandSource
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new room code using crypto/rand.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new room code using the generator's RandSource.
func (g *Generator) Generate() string {
	code := make([]byte, Length)

	if g.randSource != nil {
		// Use provided RandSource for deterministic testing
		for i := range code {
			code[i] = alphabet[g.randSource.Intn(len(alphabet))]
		}
		return string(code)
	}

	var buf [Length]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	// 256 is a multiple of 32, so the modulo introduces no bias.
	for i := range code {
		code[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(code)
}

// Normalize lowercases a code and maps the easily-confused letters onto
// their alphabet equivalents, so "AB0O12" and "ab0012" name the same room.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	r := strings.NewReplacer("i", "1", "l", "1", "o", "0", "u", "v")
	return r.Replace(code)
}

// Validate checks that a code is exactly Length characters of the alphabet.
func Validate(code string) error {
	if len(code) != Length {
		return fmt.Errorf("room code must be exactly %d characters, got %d", Length, len(code))
	}
	for i, char := range code {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
