package main

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("treasure-hunt exited")
	}
}

// newRootCmd builds the CLI. With no subcommand it serves.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "treasure-hunt",
		Short:         "Multi-stage treasure hunt server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCmd(), newDigestCmd(), newStagesCmd())
	return root
}

// setLogLevel applies LOG_LEVEL; unknown levels keep the default.
func setLogLevel(level string) {
	if lvl, err := zerolog.ParseLevel(level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
}
