// internal/store/tokens.go
//
// Stateless Store: the handle is an HS256 JWT that carries the progress.
//
// Claims:
//   stg  current stage index          ws  window start (unix ms)
//   wc   attempts in current window   st  run start (unix ms)
//   att  sliding-log attempts (ms)    jti run id, plus iat/exp
//
// Each issued token expires TTL after issuance; there is no server-side state,
// so Discard cannot revoke a token and a client may replay an older one.
// The signing key is derived from the configured secret with HKDF so the raw
// secret (also used as the verification pepper) never keys the MAC directly.

package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/robalobadob/treasurehunt/internal/clock"
	"github.com/robalobadob/treasurehunt/internal/game"
)

const (
	tokenKeyInfo = "treasurehunt session token v1"
	tokenKeySize = 32
	maxAttempts  = 1024
)

// progressClaims is the token payload. Pointers distinguish absent from zero.
type progressClaims struct {
	jwt.RegisteredClaims
	Stage       *int64  `json:"stg"`
	WindowStart *int64  `json:"ws"`
	WindowCount *int64  `json:"wc"`
	StartedAt   *int64  `json:"st"`
	Attempts    []int64 `json:"att,omitempty"`
}

// Tokens is the signed-token Store.
type Tokens struct {
	key    []byte
	total  int
	ttl    time.Duration
	clock  clock.Clock
	parser *jwt.Parser
}

// NewTokens derives a signing key from secret and returns a store for a
// catalog of total stages.
func NewTokens(secret string, total int, ttl time.Duration, clk clock.Clock) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("store: token secret is required")
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Tokens{
		key:   key,
		total: total,
		ttl:   ttl,
		clock: clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(clk.Now),
		),
	}, nil
}

// Create issues a token for fresh stage-0 progress.
func (t *Tokens) Create(ctx context.Context, owner string) (string, game.Progress, error) {
	p := game.NewProgress(t.clock.Now())
	tok, err := t.issue(p)
	if err != nil {
		return "", game.Progress{}, err
	}
	return tok, p, nil
}

// Resolve verifies handle and decodes its progress. The handle is returned unchanged.
func (t *Tokens) Resolve(ctx context.Context, handle string) (string, game.Progress, error) {
	p, err := t.parse(handle)
	if err != nil {
		return "", game.Progress{}, err
	}
	return handle, p, nil
}

// Update decodes handle, applies fn and issues a new token for the result.
func (t *Tokens) Update(ctx context.Context, handle string, fn func(*game.Progress) error) (string, game.Progress, error) {
	if err := ctx.Err(); err != nil {
		return "", game.Progress{}, err
	}
	cur, err := t.parse(handle)
	if err != nil {
		return "", game.Progress{}, err
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return handle, cur, err
	}
	if err := next.Validate(t.total); err != nil {
		return "", game.Progress{}, err
	}
	tok, err := t.issue(next)
	if err != nil {
		return "", game.Progress{}, err
	}
	return tok, next, nil
}

// Discard is a no-op: a stateless token cannot be revoked before it expires.
func (t *Tokens) Discard(ctx context.Context, handle string) error { return nil }

func (t *Tokens) issue(p game.Progress) (string, error) {
	now := t.clock.Now()
	stage := int64(p.Stage)
	ws := p.WindowStart.UnixMilli()
	wc := int64(p.WindowCount)
	st := p.StartedAt.UnixMilli()
	var att []int64
	for _, a := range p.Attempts {
		att = append(att, a.UnixMilli())
	}
	claims := progressClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.RunID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Stage:       &stage,
		WindowStart: &ws,
		WindowCount: &wc,
		StartedAt:   &st,
		Attempts:    att,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("store: sign token: %w", err)
	}
	return s, nil
}

// parse verifies the MAC (constant-time, inside jwt), expiry and field domains.
func (t *Tokens) parse(handle string) (game.Progress, error) {
	if handle == "" {
		return game.Progress{}, ErrNotFound
	}
	var c progressClaims
	if _, err := t.parser.ParseWithClaims(handle, &c, func(*jwt.Token) (any, error) {
		return t.key, nil
	}); err != nil {
		return game.Progress{}, ErrNotFound
	}

	if c.Stage == nil || c.WindowStart == nil || c.WindowCount == nil || c.StartedAt == nil {
		return game.Progress{}, ErrNotFound
	}
	if *c.Stage < 0 || *c.Stage > int64(t.total) {
		return game.Progress{}, ErrNotFound
	}
	if *c.WindowCount < 0 || *c.WindowStart <= 0 || *c.StartedAt <= 0 {
		return game.Progress{}, ErrNotFound
	}
	if len(c.Attempts) > maxAttempts {
		return game.Progress{}, ErrNotFound
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		return game.Progress{}, ErrNotFound
	}

	p := game.Progress{
		RunID:       c.ID,
		Stage:       int(*c.Stage),
		StartedAt:   time.UnixMilli(*c.StartedAt),
		WindowStart: time.UnixMilli(*c.WindowStart),
		WindowCount: int(*c.WindowCount),
	}
	for _, a := range c.Attempts {
		if a <= 0 {
			return game.Progress{}, ErrNotFound
		}
		p.Attempts = append(p.Attempts, time.UnixMilli(a))
	}
	if err := p.Validate(t.total); err != nil {
		return game.Progress{}, ErrNotFound
	}
	return p, nil
}

// deriveKey expands secret into the token MAC key.
func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(tokenKeyInfo))
	key := make([]byte, tokenKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("store: derive token key: %w", err)
	}
	return key, nil
}
