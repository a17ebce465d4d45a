package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/treasurehunt/internal/clock"
	"github.com/robalobadob/treasurehunt/internal/config"
	"github.com/robalobadob/treasurehunt/internal/game"
	"github.com/robalobadob/treasurehunt/internal/httpserver"
	"github.com/robalobadob/treasurehunt/internal/hunt"
	"github.com/robalobadob/treasurehunt/internal/ledger"
	"github.com/robalobadob/treasurehunt/internal/stages"
	"github.com/robalobadob/treasurehunt/internal/store"
	"github.com/robalobadob/treasurehunt/internal/verify"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setLogLevel(cfg.LogLevel)
	if cfg.InsecurePepper {
		log.Warn().Msg("using the public development pepper; set TREASURE_PEPPER before a real event")
	}

	catalog, err := stages.Load(cfg.StagesFile)
	if err != nil {
		return err
	}
	verifier, err := verify.New(cfg.Pepper)
	if err != nil {
		return err
	}

	clk := clock.System{}
	var (
		st  store.Store
		mem *store.Memory
	)
	switch cfg.SessionMode {
	case config.SessionMemory:
		mem = store.NewMemory(catalog.Len(), cfg.SessionTTL, clk)
		st = mem
	default:
		tokens, err := store.NewTokens(cfg.Pepper, catalog.Len(), cfg.SessionTTL, clk)
		if err != nil {
			return err
		}
		st = tokens
	}

	var limiter game.Limiter = game.FixedWindow{Window: cfg.RateWindow, Capacity: cfg.RateCapacity}
	if cfg.Limiter == config.LimiterSliding {
		limiter = game.SlidingLog{Window: cfg.RateWindow, Capacity: cfg.RateCapacity}
	}

	hc := hunt.Config{Catalog: catalog, Verifier: verifier, Store: st, Limiter: limiter, Clock: clk}
	opts := httpserver.Options{ClientOrigin: cfg.ClientOrigin}
	if cfg.LedgerDSN != "" {
		l, err := ledger.Open(cfg.LedgerDSN)
		if err != nil {
			return err
		}
		defer l.Close()
		hc.Recorder = l
		opts.Stats = l
	}

	ctrl, err := hunt.New(hc)
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}
	srv := httpserver.New(ctrl, opts)

	log.Info().
		Str("sessions", cfg.SessionMode).
		Str("limiter", cfg.Limiter).
		Int("stages", catalog.Len()).
		Bool("ledger", cfg.LedgerDSN != "").
		Msg("starting treasure-hunt")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx, cfg.Addr()) })
	if mem != nil {
		g.Go(func() error { return mem.Run(gctx, cfg.SweepInterval) })
	}
	return g.Wait()
}
