// internal/store/memory.go
//
// In-memory implementation of the Store interface.
//
// Characteristics:
//   - Handles are 24 random bytes, hex encoded.
//   - Expiry is sliding: every resolve refreshes the entry's last activity.
//   - The map is guarded by an RWMutex; each entry has its own mutex so updates
//     to one session never block another.
//   - Run sweeps expired entries periodically; Resolve re-checks TTL lazily,
//     so sweeping only bounds memory.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/treasurehunt/internal/clock"
	"github.com/robalobadob/treasurehunt/internal/game"
)

const handleBytes = 24

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 30 * time.Minute

// entry is one session; mu serializes all access to its fields.
type entry struct {
	mu       sync.Mutex
	progress game.Progress
	lastSeen time.Time
	owner    string
	gone     bool // evicted or discarded while a caller still held the pointer
}

// Memory is the server-held Store.
type Memory struct {
	mu      sync.RWMutex      // guards entries
	entries map[string]*entry // keyed by handle
	total   int
	ttl     time.Duration
	clock   clock.Clock
}

// NewMemory constructs an empty store for a catalog of total stages.
func NewMemory(total int, ttl time.Duration, clk clock.Clock) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Memory{
		entries: make(map[string]*entry),
		total:   total,
		ttl:     ttl,
		clock:   clk,
	}
}

// Create adds a fresh stage-0 entry under a new random handle.
func (m *Memory) Create(ctx context.Context, owner string) (string, game.Progress, error) {
	id, err := newHandle()
	if err != nil {
		return "", game.Progress{}, err
	}
	now := m.clock.Now()
	e := &entry{progress: game.NewProgress(now), lastSeen: now, owner: owner}

	m.mu.Lock()
	m.entries[id] = e
	m.mu.Unlock()
	log.Debug().Str("owner", owner).Str("run", e.progress.RunID).Msg("session created")
	return id, e.progress.Clone(), nil
}

// Resolve returns a copy of the progress and refreshes its activity time.
func (m *Memory) Resolve(ctx context.Context, handle string) (string, game.Progress, error) {
	return m.Update(ctx, handle, func(*game.Progress) error { return nil })
}

// Update runs fn under the entry's lock. The stored progress is replaced only
// when fn succeeds.
func (m *Memory) Update(ctx context.Context, handle string, fn func(*game.Progress) error) (string, game.Progress, error) {
	if err := ctx.Err(); err != nil {
		return "", game.Progress{}, err
	}
	e := m.lookup(handle)
	if e == nil {
		return "", game.Progress{}, ErrNotFound
	}

	e.mu.Lock()
	now := m.clock.Now()
	if e.gone {
		e.mu.Unlock()
		return "", game.Progress{}, ErrNotFound
	}
	if now.Sub(e.lastSeen) > m.ttl {
		e.gone = true
		e.mu.Unlock()
		m.remove(handle, e)
		return "", game.Progress{}, ErrNotFound
	}
	e.lastSeen = now

	next := e.progress.Clone()
	if err := fn(&next); err != nil {
		cur := e.progress.Clone()
		e.mu.Unlock()
		return handle, cur, err
	}
	if err := next.Validate(m.total); err != nil {
		e.mu.Unlock()
		return "", game.Progress{}, err
	}
	e.progress = next
	out := next.Clone()
	e.mu.Unlock()
	return handle, out, nil
}

// Discard removes handle. Missing handles are ignored.
func (m *Memory) Discard(ctx context.Context, handle string) error {
	m.mu.Lock()
	e, ok := m.entries[handle]
	delete(m.entries, handle)
	m.mu.Unlock()
	if ok {
		e.mu.Lock()
		e.gone = true
		e.mu.Unlock()
	}
	return nil
}

// Len reports the number of entries currently held, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep evicts every entry idle for longer than the TTL and returns how many went.
func (m *Memory) Sweep() int {
	m.mu.RLock()
	snapshot := make(map[string]*entry, len(m.entries))
	for id, e := range m.entries {
		snapshot[id] = e
	}
	m.mu.RUnlock()

	now := m.clock.Now()
	evicted := 0
	for id, e := range snapshot {
		e.mu.Lock()
		expired := !e.gone && now.Sub(e.lastSeen) > m.ttl
		if expired {
			e.gone = true
		}
		e.mu.Unlock()
		if expired {
			m.remove(id, e)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is cancelled.
func (m *Memory) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Int("remaining", m.Len()).Msg("session sweep")
			}
		}
	}
}

func (m *Memory) lookup(handle string) *entry {
	if len(handle) != hex.EncodedLen(handleBytes) {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[handle]
}

// remove deletes id only if it still maps to e.
func (m *Memory) remove(id string, e *entry) {
	m.mu.Lock()
	if m.entries[id] == e {
		delete(m.entries, id)
	}
	m.mu.Unlock()
}

// newHandle returns 24 crypto-random bytes as 48 hex chars.
func newHandle() (string, error) {
	var b [handleBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("store: random handle: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
