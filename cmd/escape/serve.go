package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
	"github.com/willbeason/escape-fractal/pkg/config"
	"github.com/willbeason/escape-fractal/pkg/dispatch"
	"github.com/willbeason/escape-fractal/pkg/logging"
	"github.com/willbeason/escape-fractal/pkg/output"
)

func serveCmd() *cobra.Command {
	cfg := config.Default()
	addr := ":8080"

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream the animation to websocket clients on /frames",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			// At this point usage information has already been printed if obviously incorrect.
			cmd.SilenceUsage = true

			if err := cfg.Validate(); err != nil {
				return err
			}
			d, closeDispatcher, err := cfg.Dispatcher()
			if err != nil {
				return err
			}
			defer closeDispatcher()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mux := http.NewServeMux()
			mux.HandleFunc("GET /frames", framesHandler(cfg, d))

			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			go func() {
				<-ctx.Done()
				shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdown)
			}()

			logging.Logger().Info("serving frames", "addr", addr, "dispatcher", d.Name())
			fmt.Fprintf(cmd.ErrOrStderr(), "streaming %d frames per connection on ws://localhost%s/frames\n", cfg.Frames, addr)

			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cfg.Bind(cmd.Flags())
	cmd.Flags().StringVar(&addr, "addr", addr, "listen address")

	return cmd
}

// framesHandler streams one animation per connection, each frame a binary message.
// The optional frames query parameter overrides the configured frame count.
func framesHandler(cfg config.Config, d dispatch.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := cfg
		if s := r.URL.Query().Get("frames"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				http.Error(w, fmt.Sprintf("invalid frame count %q", s), http.StatusBadRequest)
				return
			}
			c.Frames = n
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logging.Logger().Warn("websocket accept failed", "remote", r.RemoteAddr, "err", err)
			return
		}
		defer conn.CloseNow()

		delivered, err := c.Driver(d).Run(r.Context(), &output.Stream{Conn: conn})
		if err != nil {
			logging.Logger().Warn("stream aborted", "remote", r.RemoteAddr, "delivered", delivered, "err", err)
			conn.Close(websocket.StatusInternalError, "animation aborted")
			return
		}

		logging.Logger().Debug("stream complete", "remote", r.RemoteAddr, "frames", delivered)
		conn.Close(websocket.StatusNormalClosure, "")
	}
}
