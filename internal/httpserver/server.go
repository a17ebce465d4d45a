// internal/httpserver/server.go
//
// HTTP server wiring for the treasure hunt.
// Responsibilities:
//   - Router + middleware (JSON, no-store caching, CORS, timeouts, panic recovery,
//     request IDs, request logging).
//   - Hunt endpoints: GET /api/start, POST /api/restart, POST /api/submit, POST /api/view.
//   - Diagnostics: GET /health, GET /api/stats (progress ledger, when configured).
//
// Notes:
//   - Request bodies are capped at 10 KB and fully read before the controller
//     touches any session, so slow clients never hold a store lock.
//   - Error bodies are fixed strings; nothing from the request or the stage
//     catalog is ever echoed back.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/treasurehunt/internal/hunt"
	"github.com/robalobadob/treasurehunt/internal/ledger"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 10_000

// User-visible error messages.
const (
	msgBadRequest       = "Bad request"
	msgSessionExpired   = "Session expired. Restart hunt."
	msgRateLimited      = "Too many attempts. Please wait a minute."
	msgMethodNotAllowed = "Method not allowed"
	msgNotFound         = "Not found"
	msgInternal         = "Internal error"
)

// StatsSource reports aggregate progress. *ledger.Ledger satisfies it.
type StatsSource interface {
	Stats(ctx context.Context, total, limit int) (ledger.Stats, error)
}

// Options configures optional server behaviour.
type Options struct {
	ClientOrigin string      // CORS origin; empty disables CORS headers
	Stats        StatsSource // nil disables /api/stats data
}

// Server bundles the router and the hunt controller.
type Server struct {
	r      *chi.Mux
	hunt   *hunt.Controller
	stats  StatsSource
	origin string
}

// New constructs a Server, installs middleware, and registers routes.
func New(h *hunt.Controller, opts Options) *Server {
	s := &Server{r: chi.NewRouter(), hunt: h, stats: opts.Stats, origin: opts.ClientOrigin}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)                   // zerolog access log
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonNoStore)                     // JSON + never cache
	s.r.Use(s.cors)                          // single-origin CORS

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, msgNotFound)
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	// --- diagnostics ---
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/api/stats", s.handleStats)

	// --- hunt ---
	s.r.Get("/api/start", s.handleStart)
	s.r.Post("/api/restart", s.handleRestart)
	s.r.Post("/api/submit", s.handleSubmit)
	s.r.Post("/api/view", s.handleView)

	return s
}

// Handler exposes the router (useful for tests and custom servers).
func (s *Server) Handler() http.Handler { return s.r }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
