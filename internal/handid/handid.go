// Package handid generates identifiers for hands played at a table.
//
// An identifier is a UUIDv7 rendered as 26 characters of Crockford base32, so
// ids sort by creation time and stay short enough to read in logs.
package handid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the number of characters in an encoded id.
const Length = 26

// Generator produces hand ids from an optional entropy source.
type Generator struct {
	entropy io.Reader
}

// NewGenerator returns a generator reading random bits from entropy. A nil
// reader uses crypto/rand.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// New returns a fresh hand id using crypto/rand.
func New() string {
	return NewGenerator(nil).Generate()
}

// Generate returns a new hand id.
func (g *Generator) Generate() string {
	var (
		id  uuid.UUID
		err error
	)
	if g.entropy != nil {
		id, err = uuid.NewV7FromReader(g.entropy)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		// short read from entropy
		id = uuid.New()
	}
	return Encode(id)
}

// Encode renders a UUID as a 26-character base32 string. The 128 bits are
// treated as a 130-bit number with two leading zero bits, so the first
// character is always in 0-7.
func Encode(id uuid.UUID) string {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(id[i])
		lo = lo<<8 | uint64(id[i+8])
	}

	out := make([]byte, Length)
	for i := Length - 1; i >= 0; i-- {
		out[i] = alphabet[lo&0x1f]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out)
}

// Validate checks that id looks like something Encode produced.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("hand id must be %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("hand id first character must be 0-7, got %c", id[0])
	}
	for i, c := range id {
		if !strings.ContainsRune(alphabet, c) {
			return fmt.Errorf("invalid character %c at position %d", c, i)
		}
	}
	return nil
}
