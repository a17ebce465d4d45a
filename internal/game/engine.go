// internal/game/engine.go
//
// State machine for a single run.
// Responsibilities:
//   - Create fresh progress at stage 0 with an open attempt window.
//   - Advance one stage on a verified code, saturating at the terminal stage.
//   - Validate decoded progress against the stage count.
//
// Transitions: i → i+1 only on a verified code at stage i; stage N is absorbing.
// Stage never decreases; a restart replaces the Progress wholesale.
package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalid reports progress whose fields fall outside their domains.
var ErrInvalid = errors.New("game: invalid progress")

// NewProgress returns stage-0 progress for a new run starting at now.
func NewProgress(now time.Time) Progress {
	return Progress{
		RunID:       uuid.NewString(),
		Stage:       0,
		StartedAt:   now,
		WindowStart: now,
		WindowCount: 0,
	}
}

// Completed reports whether every one of total stages has been solved.
func (p *Progress) Completed(total int) bool {
	return p.Stage >= total
}

// Advance moves to the next stage. It never goes past total and reports
// whether the stage actually changed.
func (p *Progress) Advance(total int) bool {
	if p.Stage >= total {
		p.Stage = total
		return false
	}
	p.Stage++
	return true
}

// Clone returns a deep copy, so callers can mutate without touching stored state.
func (p Progress) Clone() Progress {
	if p.Attempts != nil {
		p.Attempts = append([]time.Time(nil), p.Attempts...)
	}
	return p
}

// Validate checks p against a catalog of total stages.
func (p *Progress) Validate(total int) error {
	switch {
	case p.Stage < 0 || p.Stage > total:
		return fmt.Errorf("%w: stage %d outside [0,%d]", ErrInvalid, p.Stage, total)
	case p.WindowCount < 0:
		return fmt.Errorf("%w: negative window count", ErrInvalid)
	case p.WindowStart.IsZero():
		return fmt.Errorf("%w: missing window start", ErrInvalid)
	case p.RunID == "":
		return fmt.Errorf("%w: missing run id", ErrInvalid)
	}
	return nil
}
