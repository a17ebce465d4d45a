// internal/verify/verify.go
//
// Code verification for hunt stages.
//
// A candidate is normalized (surrounding whitespace trimmed, upper-cased) and
// hashed as hex(sha256(salt ":" CODE ":" pepper)). The pepper comes from
// deployment configuration and is never stored with the catalog.

package verify

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/robalobadob/treasurehunt/internal/stages"
)

// ErrNoPepper is returned by New when the pepper is empty.
var ErrNoPepper = errors.New("verify: pepper is required")

// Verifier checks candidate codes against stage digests. It has no mutable state.
type Verifier struct {
	pepper string
}

// New returns a Verifier bound to pepper.
func New(pepper string) (*Verifier, error) {
	if pepper == "" {
		return nil, ErrNoPepper
	}
	return &Verifier{pepper: pepper}, nil
}

// Normalize trims and upper-cases a candidate code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Digest returns the hex digest a stage must store for code.
func Digest(salt, code, pepper string) string {
	sum := sha256.Sum256([]byte(salt + ":" + Normalize(code) + ":" + pepper))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether candidate solves stage.
func (v *Verifier) Verify(stage stages.Stage, candidate string) bool {
	got := Digest(stage.Salt, candidate, v.pepper)
	return subtle.ConstantTimeCompare([]byte(got), []byte(stage.Digest)) == 1
}

// VerifyAt checks candidate against stage index i of c. The completed index
// (i == c.Len()) has nothing left to check and always passes.
func (v *Verifier) VerifyAt(c *stages.Catalog, i int, candidate string) bool {
	if i == c.Len() {
		return true
	}
	stage, ok := c.At(i)
	if !ok {
		return false
	}
	return v.Verify(stage, candidate)
}
