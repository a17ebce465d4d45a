// internal/hunt/controller.go
//
// Game controller: the four operations a client can perform.
//   - Start:   new run at stage 0.
//   - Restart: best-effort discard of the old handle, then Start.
//   - Submit:  resolve → rate limit → verify → advance.
//   - View:    read-only projection of a handle's progress.
//
// All validation happens inside the store's Update callback, and the store
// only commits when the callback succeeds, so a failed request never leaves a
// partial transition behind. Ledger hooks run after the commit and never fail
// the request.

package hunt

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/treasurehunt/internal/clock"
	"github.com/robalobadob/treasurehunt/internal/game"
	"github.com/robalobadob/treasurehunt/internal/stages"
	"github.com/robalobadob/treasurehunt/internal/store"
	"github.com/robalobadob/treasurehunt/internal/verify"
)

// Controller wires the catalog, verifier, limiter and store together.
type Controller struct {
	catalog  *stages.Catalog
	verifier *verify.Verifier
	store    store.Store
	limiter  game.Limiter
	clock    clock.Clock
	recorder Recorder
}

// Config lists the controller's collaborators. Limiter, Clock and Recorder
// default to FixedWindow, the system clock and a no-op recorder.
type Config struct {
	Catalog  *stages.Catalog
	Verifier *verify.Verifier
	Store    store.Store
	Limiter  game.Limiter
	Clock    clock.Clock
	Recorder Recorder
}

// New validates cfg and returns a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Catalog == nil || cfg.Verifier == nil || cfg.Store == nil {
		return nil, errors.New("hunt: catalog, verifier and store are required")
	}
	c := &Controller{
		catalog:  cfg.Catalog,
		verifier: cfg.Verifier,
		store:    cfg.Store,
		limiter:  cfg.Limiter,
		clock:    cfg.Clock,
		recorder: cfg.Recorder,
	}
	if c.limiter == nil {
		c.limiter = game.NewFixedWindow()
	}
	if c.clock == nil {
		c.clock = clock.System{}
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	return c, nil
}

// TotalStages returns the catalog length.
func (c *Controller) TotalStages() int { return c.catalog.Len() }

// Start creates a new run.
func (c *Controller) Start(ctx context.Context, owner string) (View, error) {
	handle, p, err := c.store.Create(ctx, owner)
	if err != nil {
		return View{}, fmt.Errorf("hunt: create session: %w", err)
	}
	if err := c.recorder.RunStarted(ctx, p.RunID, p.StartedAt); err != nil {
		log.Warn().Err(err).Str("run", p.RunID).Msg("record run start")
	}
	return c.view(handle, p), nil
}

// Restart discards handle if it still resolves, then starts over.
func (c *Controller) Restart(ctx context.Context, handle, owner string) (View, error) {
	if handle != "" {
		if err := c.store.Discard(ctx, handle); err != nil {
			log.Debug().Err(err).Msg("discard previous session")
		}
	}
	return c.Start(ctx, owner)
}

// View returns the current projection of handle.
func (c *Controller) View(ctx context.Context, handle string) (View, error) {
	h, p, err := c.store.Resolve(ctx, handle)
	if err != nil {
		return View{}, mapStoreErr(err)
	}
	return c.view(h, p), nil
}

type outcome int

const (
	outcomeWrong outcome = iota
	outcomeAdvanced
	outcomeAlreadyCompleted
)

// Submit checks code against the current stage of handle.
// A wrong code is a normal result (OK=false), not an error.
func (c *Controller) Submit(ctx context.Context, handle, code string) (Result, error) {
	total := c.catalog.Len()
	var out outcome

	h, p, err := c.store.Update(ctx, handle, func(p *game.Progress) error {
		if !c.limiter.Allow(p, c.clock.Now()) {
			return ErrRateLimited
		}
		if p.Completed(total) {
			out = outcomeAlreadyCompleted
			return nil
		}
		if !c.verifier.VerifyAt(c.catalog, p.Stage, code) {
			out = outcomeWrong
			return nil
		}
		p.Advance(total)
		out = outcomeAdvanced
		return nil
	})
	if err != nil {
		return Result{}, mapStoreErr(err)
	}

	v := c.view(h, p)
	switch out {
	case outcomeAlreadyCompleted:
		return Result{OK: true, Message: MsgAlreadyCompleted, View: v}, nil
	case outcomeWrong:
		return Result{OK: false, Message: MsgWrong, View: v}, nil
	}

	c.recordSolve(ctx, p)
	if v.Completed {
		return Result{OK: true, Message: MsgCompleted, View: v}, nil
	}
	return Result{OK: true, Message: MsgAdvanced, View: v}, nil
}

// recordSolve reports the stage just solved (and completion) to the recorder.
func (c *Controller) recordSolve(ctx context.Context, p game.Progress) {
	now := c.clock.Now()
	if err := c.recorder.StageSolved(ctx, p.RunID, p.Stage-1, now); err != nil {
		log.Warn().Err(err).Str("run", p.RunID).Int("stage", p.Stage-1).Msg("record stage solve")
	}
	if p.Completed(c.catalog.Len()) {
		if err := c.recorder.RunCompleted(ctx, p.RunID, p.StartedAt, now); err != nil {
			log.Warn().Err(err).Str("run", p.RunID).Msg("record run completion")
		}
	}
}

func (c *Controller) view(handle string, p game.Progress) View {
	total := c.catalog.Len()
	return View{
		Handle:      handle,
		TotalStages: total,
		StageIndex:  p.Stage,
		Completed:   p.Completed(total),
		Hint:        c.catalog.Hint(p.Stage),
	}
}

// mapStoreErr converts store failures into the controller's taxonomy.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ErrRateLimited):
		return ErrRateLimited
	case errors.Is(err, store.ErrNotFound):
		return ErrSessionInvalid
	default:
		return err
	}
}
