// internal/store/store.go
//
// Session storage contract. Two strategies implement it:
//   - Memory: server-held map from an opaque random handle to progress.
//   - Tokens: self-contained signed handle carrying the progress itself.
//
// Every failure to resolve a handle (malformed, unknown, expired, forged,
// out-of-range fields) is reported as ErrNotFound.

package store

import (
	"context"
	"errors"

	"github.com/robalobadob/treasurehunt/internal/game"
)

// ErrNotFound is returned for any handle that does not name live progress.
var ErrNotFound = errors.New("store: session not found")

// Store defines how progress is created, resolved and updated.
type Store interface {
	// Create allocates stage-0 progress. owner is informational (e.g. client IP).
	Create(ctx context.Context, owner string) (handle string, p game.Progress, err error)

	// Resolve returns the progress named by handle and the handle to hand back.
	Resolve(ctx context.Context, handle string) (string, game.Progress, error)

	// Update runs fn on a copy of the progress and commits the copy only if fn
	// returns nil. Calls against one handle are serialized where state is shared.
	// fn's error is returned as-is; the progress it saw is returned with it.
	Update(ctx context.Context, handle string, fn func(*game.Progress) error) (string, game.Progress, error)

	// Discard invalidates handle. Unknown handles are not an error.
	Discard(ctx context.Context, handle string) error
}
