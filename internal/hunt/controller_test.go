package hunt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/treasurehunt/internal/clock"
	"github.com/robalobadob/treasurehunt/internal/game"
	"github.com/robalobadob/treasurehunt/internal/stages"
	"github.com/robalobadob/treasurehunt/internal/store"
	"github.com/robalobadob/treasurehunt/internal/verify"
)

const pepper = "controller-test-pepper"

var (
	t0    = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	codes = []string{"LIBRARY", "FRIDGE", "HOOKS", "DOORMAT"}
)

type event struct {
	kind  string
	run   string
	stage int
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []event
	fail   bool
}

func (f *fakeRecorder) add(e event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	if f.fail {
		return errors.New("ledger down")
	}
	return nil
}

func (f *fakeRecorder) RunStarted(_ context.Context, run string, _ time.Time) error {
	return f.add(event{kind: "start", run: run})
}

func (f *fakeRecorder) StageSolved(_ context.Context, run string, stage int, _ time.Time) error {
	return f.add(event{kind: "solve", run: run, stage: stage})
}

func (f *fakeRecorder) RunCompleted(_ context.Context, run string, _, _ time.Time) error {
	return f.add(event{kind: "complete", run: run})
}

type fixture struct {
	ctrl  *Controller
	clock *clock.Manual
	rec   *fakeRecorder
}

func testCatalog(t *testing.T) *stages.Catalog {
	t.Helper()
	var list []stages.Stage
	for i, code := range codes {
		salt := string(rune('a' + i))
		list = append(list, stages.Stage{
			Hint:   "hint " + code,
			Salt:   salt,
			Digest: verify.Digest(salt, code, pepper),
		})
	}
	c, err := stages.New(list)
	require.NoError(t, err)
	return c
}

func newFixture(t *testing.T, mode string) fixture {
	t.Helper()
	clk := clock.NewManual(t0)
	catalog := testCatalog(t)
	v, err := verify.New(pepper)
	require.NoError(t, err)

	var st store.Store
	switch mode {
	case "memory":
		st = store.NewMemory(catalog.Len(), 30*time.Minute, clk)
	case "token":
		st, err = store.NewTokens(pepper, catalog.Len(), 30*time.Minute, clk)
		require.NoError(t, err)
	}

	rec := &fakeRecorder{}
	ctrl, err := New(Config{Catalog: catalog, Verifier: v, Store: st, Clock: clk, Recorder: rec})
	require.NoError(t, err)
	return fixture{ctrl: ctrl, clock: clk, rec: rec}
}

var modes = []string{"memory", "token"}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestEndToEnd(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, mode)

			v, err := f.ctrl.Start(ctx, "10.0.0.1")
			require.NoError(t, err)
			assert.Equal(t, 0, v.StageIndex)
			assert.Equal(t, len(codes), v.TotalStages)
			assert.False(t, v.Completed)
			assert.Equal(t, "hint LIBRARY", v.Hint)
			h := v.Handle

			res, err := f.ctrl.Submit(ctx, h, "wrong")
			require.NoError(t, err)
			assert.False(t, res.OK)
			assert.Equal(t, MsgWrong, res.Message)
			assert.Equal(t, 0, res.StageIndex)
			assert.Equal(t, "hint LIBRARY", res.Hint)
			h = res.Handle

			// out-of-order answer is just wrong
			res, err = f.ctrl.Submit(ctx, h, codes[1])
			require.NoError(t, err)
			assert.False(t, res.OK)
			h = res.Handle

			for i, code := range codes {
				f.clock.Advance(time.Second)
				res, err = f.ctrl.Submit(ctx, h, "  "+code+" ")
				require.NoError(t, err)
				assert.True(t, res.OK)
				assert.Equal(t, i+1, res.StageIndex)
				h = res.Handle
				if i < len(codes)-1 {
					assert.Equal(t, MsgAdvanced, res.Message)
					assert.False(t, res.Completed)
					assert.Equal(t, "hint "+codes[i+1], res.Hint)
				} else {
					assert.Equal(t, MsgCompleted, res.Message)
					assert.True(t, res.Completed)
					assert.Equal(t, stages.CompletedHint, res.Hint)
				}
			}

			for _, in := range []string{"", "anything", codes[0]} {
				res, err = f.ctrl.Submit(ctx, h, in)
				require.NoError(t, err)
				assert.True(t, res.OK)
				assert.Equal(t, MsgAlreadyCompleted, res.Message)
				assert.Equal(t, len(codes), res.StageIndex)
				assert.True(t, res.Completed)
				h = res.Handle
			}

			view, err := f.ctrl.View(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, len(codes), view.StageIndex)
			assert.True(t, view.Completed)

			kinds := map[string]int{}
			for _, e := range f.rec.events {
				kinds[e.kind]++
			}
			assert.Equal(t, map[string]int{"start": 1, "solve": len(codes), "complete": 1}, kinds)
		})
	}
}

func TestStageNeverDecreases(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, mode)
			v, err := f.ctrl.Start(ctx, "")
			require.NoError(t, err)
			h, last := v.Handle, 0

			inputs := []string{codes[0], "x", codes[0], codes[1], codes[3], "y", codes[2]}
			for _, in := range inputs {
				res, err := f.ctrl.Submit(ctx, h, in)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, res.StageIndex, last)
				last, h = res.StageIndex, res.Handle
			}
			assert.Equal(t, 3, last)
		})
	}
}

func TestRateLimit(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, mode)
			v, err := f.ctrl.Start(ctx, "")
			require.NoError(t, err)
			h := v.Handle

			for i := 0; i < game.DefaultCapacity; i++ {
				res, err := f.ctrl.Submit(ctx, h, "nope")
				require.NoError(t, err, "attempt %d", i+1)
				h = res.Handle
			}
			_, err = f.ctrl.Submit(ctx, h, codes[0])
			require.ErrorIs(t, err, ErrRateLimited)

			view, err := f.ctrl.View(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, 0, view.StageIndex, "rate-limited attempt changes nothing")

			f.clock.Advance(game.DefaultWindow + time.Second)
			res, err := f.ctrl.Submit(ctx, h, codes[0])
			require.NoError(t, err)
			assert.True(t, res.OK)
			assert.Equal(t, 1, res.StageIndex)
		})
	}
}

func TestInvalidHandles(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, mode)
			for _, h := range []string{"", "bogus", "a.b.c"} {
				_, err := f.ctrl.Submit(ctx, h, codes[0])
				assert.ErrorIs(t, err, ErrSessionInvalid)
				_, err = f.ctrl.View(ctx, h)
				assert.ErrorIs(t, err, ErrSessionInvalid)
			}
		})
	}
}

func TestExpiry(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, mode)
			v, err := f.ctrl.Start(ctx, "")
			require.NoError(t, err)

			f.clock.Advance(30*time.Minute + time.Second)
			_, err = f.ctrl.Submit(ctx, v.Handle, codes[0])
			require.ErrorIs(t, err, ErrSessionInvalid)
		})
	}
}

func TestRestartAfterCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory")
	v, err := f.ctrl.Start(ctx, "")
	require.NoError(t, err)
	h := v.Handle
	for _, code := range codes {
		res, err := f.ctrl.Submit(ctx, h, code)
		require.NoError(t, err)
		h = res.Handle
	}

	nv, err := f.ctrl.Restart(ctx, h, "")
	require.NoError(t, err)
	assert.Equal(t, 0, nv.StageIndex)
	assert.False(t, nv.Completed)
	assert.NotEqual(t, h, nv.Handle)

	_, err = f.ctrl.Submit(ctx, h, "x")
	require.ErrorIs(t, err, ErrSessionInvalid)
	_, err = f.ctrl.View(ctx, h)
	require.ErrorIs(t, err, ErrSessionInvalid)
}

func TestRestartTokenStartsNewRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "token")
	v, err := f.ctrl.Start(ctx, "")
	require.NoError(t, err)
	res, err := f.ctrl.Submit(ctx, v.Handle, codes[0])
	require.NoError(t, err)

	nv, err := f.ctrl.Restart(ctx, res.Handle, "")
	require.NoError(t, err)
	assert.Equal(t, 0, nv.StageIndex)
	assert.NotEqual(t, res.Handle, nv.Handle)
	assert.Len(t, f.rec.events, 3, "start, solve, start")
}

func TestRestartNeverFails(t *testing.T) {
	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, mode)
			v, err := f.ctrl.Start(ctx, "")
			require.NoError(t, err)
			f.clock.Advance(time.Hour)

			for _, h := range []string{"", "garbage", v.Handle} {
				nv, err := f.ctrl.Restart(ctx, h, "")
				require.NoError(t, err)
				assert.Equal(t, 0, nv.StageIndex)
			}
		})
	}
}

func TestRecorderFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory")
	f.rec.fail = true

	v, err := f.ctrl.Start(ctx, "")
	require.NoError(t, err)
	res, err := f.ctrl.Submit(ctx, v.Handle, codes[0])
	require.NoError(t, err)
	assert.True(t, res.OK)
}

func TestConcurrentSubmitsSameHandle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "memory")
	v, err := f.ctrl.Start(ctx, "")
	require.NoError(t, err)

	// many goroutines race to solve stage 0; exactly one advance happens
	var wg sync.WaitGroup
	results := make(chan Result, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.ctrl.Submit(ctx, v.Handle, codes[0])
			if err == nil {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	advanced := 0
	for res := range results {
		if res.OK && res.StageIndex == 1 {
			advanced++
		}
	}
	assert.Equal(t, 1, advanced)

	view, err := f.ctrl.View(ctx, v.Handle)
	require.NoError(t, err)
	assert.Equal(t, 1, view.StageIndex)
}

func TestSlidingLogLimiter(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(t0)
	catalog := testCatalog(t)
	v, err := verify.New(pepper)
	require.NoError(t, err)
	st, err := store.NewTokens(pepper, catalog.Len(), 30*time.Minute, clk)
	require.NoError(t, err)
	ctrl, err := New(Config{
		Catalog: catalog, Verifier: v, Store: st, Clock: clk,
		Limiter: game.SlidingLog{Window: time.Minute, Capacity: 2},
	})
	require.NoError(t, err)

	view, err := ctrl.Start(ctx, "")
	require.NoError(t, err)
	h := view.Handle
	for i := 0; i < 2; i++ {
		res, err := ctrl.Submit(ctx, h, "no")
		require.NoError(t, err)
		h = res.Handle
	}
	_, err = ctrl.Submit(ctx, h, "no")
	require.ErrorIs(t, err, ErrRateLimited)

	clk.Advance(61 * time.Second)
	_, err = ctrl.Submit(ctx, h, "no")
	require.NoError(t, err)
}
