package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/output"
)

func animateCmd() *cobra.Command {
	cfg := config.Default()
	out := "julia.gif"

	cmd := &cobra.Command{
		Use:   "animate",
		Short: "Write a Julia set animation as a GIF",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			// At this point usage information has already been printed if obviously incorrect.
			cmd.SilenceUsage = true

			if err := cfg.Validate(); err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}

			// Frames delivered before an abort are still encoded.
			sink := output.NewGIF(f, cfg.FPS)
			runErr := run(cmd, &cfg, sink)
			return errors.Join(runErr, sink.Close(), f.Close())
		},
	}

	cfg.Bind(cmd.Flags())
	cmd.Flags().StringVarP(&out, "out", "o", out, "output GIF")

	return cmd
}
