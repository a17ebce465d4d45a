package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robalobadob/treasurehunt/internal/config"
	"github.com/robalobadob/treasurehunt/internal/stages"
	"github.com/robalobadob/treasurehunt/internal/verify"
)

// newDigestCmd prints catalog digests for codes using the configured pepper.
func newDigestCmd() *cobra.Command {
	var salt string
	cmd := &cobra.Command{
		Use:   "digest CODE...",
		Short: "Print the catalog digest for each code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			for _, code := range args {
				fmt.Fprintln(cmd.OutOrStdout(), verify.Digest(salt, code, cfg.Pepper))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&salt, "salt", "", "stage salt")
	return cmd
}

// newStagesCmd groups catalog maintenance commands.
func newStagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "Inspect stage catalogs",
	}
	cmd.AddCommand(newStagesCheckCmd())
	return cmd
}

// newStagesCheckCmd validates a catalog and, given --code flags, checks each
// code against the stage at the same position.
func newStagesCheckCmd() *cobra.Command {
	var codes []string
	cmd := &cobra.Command{
		Use:   "check [FILE]",
		Short: "Validate a stage catalog (embedded sample when FILE is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			catalog, err := stages.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d stages OK\n", catalog.Len())
			if len(codes) == 0 {
				return nil
			}
			if len(codes) > catalog.Len() {
				return fmt.Errorf("%d codes given for %d stages", len(codes), catalog.Len())
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			v, err := verify.New(cfg.Pepper)
			if err != nil {
				return err
			}
			failed := false
			for i, code := range codes {
				if v.VerifyAt(catalog, i, code) {
					fmt.Fprintf(out, "stage %d: ok\n", i)
					continue
				}
				failed = true
				fmt.Fprintf(out, "stage %d: MISMATCH\n", i)
			}
			if failed {
				return errors.New("some codes do not match their stage")
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&codes, "code", nil, "code for the next stage (repeatable, in order)")
	return cmd
}
