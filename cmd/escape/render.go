package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/animation"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/output"
)

func renderCmd() *cobra.Command {
	cfg := config.Mandelbrot()
	out := "mandelbrot.png"

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write frames as still images",
		Long: "Write frames as still images. The format follows the extension of --out.\n" +
			"With more than one frame, each file name gets a frame number.",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			// At this point usage information has already been printed if obviously incorrect.
			cmd.SilenceUsage = true

			if err := cfg.Validate(); err != nil {
				return err
			}
			sink, err := output.NewStill(out, cfg.Frames)
			if err != nil {
				return err
			}
			return run(cmd, &cfg, sink)
		},
	}

	cfg.Bind(cmd.Flags())
	cmd.Flags().StringVarP(&out, "out", "o", out, "output image, .png, .tiff or .bmp")

	return cmd
}

// run drives cfg's frames into sink and reports progress on stderr.
// An interrupt stops the sequence at the next frame boundary.
func run(cmd *cobra.Command, cfg *config.Config, sink animation.Sink) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, closeDispatcher, err := cfg.Dispatcher()
	if err != nil {
		return err
	}
	defer closeDispatcher()

	driver := cfg.Driver(d)
	driver.Progress = func(f animation.Frame) {
		fmt.Fprintf(cmd.ErrOrStderr(), "frame %d/%d t=%.4f\n", f.Index+1, cfg.Frames, f.Time)
	}

	_, err = driver.Run(ctx, sink)
	return err
}
