package game

import "time"

// Default submission policy: 20 attempts per 60 seconds.
const (
	DefaultWindow   = 60 * time.Second
	DefaultCapacity = 20
)

// FixedWindow is a window-reset counter. Bursts straddling a reset can reach
// twice Capacity within one Window.
type FixedWindow struct {
	Window   time.Duration
	Capacity int
}

// NewFixedWindow returns the default 20-per-minute policy.
func NewFixedWindow() FixedWindow {
	return FixedWindow{Window: DefaultWindow, Capacity: DefaultCapacity}
}

// Allow resets the window when it has elapsed, then counts the attempt if
// there is room. A rejected attempt does not consume quota.
func (f FixedWindow) Allow(p *Progress, now time.Time) bool {
	if now.Sub(p.WindowStart) > f.Window {
		p.WindowStart = now
		p.WindowCount = 0
	}
	if p.WindowCount >= f.Capacity {
		return false
	}
	p.WindowCount++
	return true
}

// SlidingLog keeps the timestamp of every counted attempt and allows at most
// Capacity of them inside any Window-long span.
type SlidingLog struct {
	Window   time.Duration
	Capacity int
}

// Allow drops attempts older than the window and counts this one if there is room.
// WindowStart/WindowCount mirror the oldest retained attempt and the log size.
func (s SlidingLog) Allow(p *Progress, now time.Time) bool {
	cutoff := now.Add(-s.Window)
	kept := p.Attempts[:0]
	for _, ts := range p.Attempts {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	p.Attempts = kept

	allowed := len(p.Attempts) < s.Capacity
	if allowed {
		p.Attempts = append(p.Attempts, now)
	}
	p.WindowCount = len(p.Attempts)
	if len(p.Attempts) > 0 && p.Attempts[0].After(p.WindowStart) {
		p.WindowStart = p.Attempts[0]
	}
	return allowed
}
