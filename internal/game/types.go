// internal/game/types.go
//
// Core type definitions for hunt progress.
// Defines:
//   - Progress: the minimal mutable record for one player.
//   - Limiter: the attempt-rate policy applied to a Progress.

package game

import "time"

// Progress is the per-player state. Stage N (the catalog length) is terminal.
type Progress struct {
	RunID       string      // Identifies one play-through (UUID); recreated on restart.
	Stage       int         // Current stage index in [0, N].
	StartedAt   time.Time   // When the run began.
	WindowStart time.Time   // Start of the current attempt-counting window.
	WindowCount int         // Attempts counted in the current window.
	Attempts    []time.Time // Attempt timestamps, kept only by SlidingLog.
}

// Limiter decides whether another submission may be counted against p.
// Implementations mutate p's window bookkeeping as a side effect.
type Limiter interface {
	Allow(p *Progress, now time.Time) bool
}
