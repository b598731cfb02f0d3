package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/logging"
)

func mainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escape",
		Short: "Render escape-time fractals and Julia set animations",
		Args:  cobra.ExactArgs(0),
	}

	verbose := cmd.PersistentFlags().BoolP("verbose", "v", false, "log frame timing and device events to stderr")
	cmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if *verbose {
			logging.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	}

	cmd.AddCommand(renderCmd(), animateCmd(), serveCmd(), backendsCmd())

	return cmd
}

func main() {
	ctx := context.Background()

	err := mainCmd().ExecuteContext(ctx)
	if err != nil {
		// At this point the error has already been printed; no need to print again.
		os.Exit(1)
	}
}
