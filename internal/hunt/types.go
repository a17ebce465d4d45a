package hunt

import (
	"context"
	"errors"
	"time"
)

// Errors surfaced to callers.
var (
	// ErrSessionInvalid: handle missing, malformed, expired or forged. Restart required.
	ErrSessionInvalid = errors.New("hunt: session invalid")
	// ErrRateLimited: too many submissions in the current window.
	ErrRateLimited = errors.New("hunt: rate limited")
)

// Messages returned with submission results. They never mention stage data.
const (
	MsgAdvanced         = "Correct code. New hint unlocked."
	MsgCompleted        = "Correct. Hunt completed."
	MsgWrong            = "Wrong code. Try again."
	MsgAlreadyCompleted = "Hunt already completed."
)

// View is the client-facing projection of one run. Recomputed on every response.
type View struct {
	Handle      string `json:"handle"`
	TotalStages int    `json:"totalStages"`
	StageIndex  int    `json:"stageIndex"`
	Completed   bool   `json:"completed"`
	Hint        string `json:"hint"`
}

// Result is the outcome of Submit.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	View
}

// Recorder receives progress events after they are committed.
type Recorder interface {
	RunStarted(ctx context.Context, runID string, at time.Time) error
	StageSolved(ctx context.Context, runID string, stage int, at time.Time) error
	RunCompleted(ctx context.Context, runID string, startedAt, at time.Time) error
}

type nopRecorder struct{}

func (nopRecorder) RunStarted(context.Context, string, time.Time) error             { return nil }
func (nopRecorder) StageSolved(context.Context, string, int, time.Time) error       { return nil }
func (nopRecorder) RunCompleted(context.Context, string, time.Time, time.Time) error { return nil }
