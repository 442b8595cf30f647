package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kvstore/internal/account"
	"github.com/roach88/kvstore/internal/server"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Ready, if set, receives the bound address once listening (for testing).
	Ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP event trigger",
		Long: `Run the HTTP event trigger on listen_addr (or --addr).

The store is opened once and shared by every request until shutdown
(SIGINT or SIGTERM).

Example:
  kvstore serve --db ./kvstore.db --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides listen_addr)")

	return cmd
}

func runServer(cmd *cobra.Command, opts *ServeOptions) error {
	return withStore(cmd, opts.RootOptions, func(ctx context.Context, sess *session) error {
		svc, err := account.NewService(sess.store, sess.logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build account service", err)
		}

		addr := opts.Addr
		if addr == "" {
			addr = sess.cfg.ListenAddr
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}

		srv := &http.Server{
			Handler:           server.New(svc, sess.logger),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Serve(ln)
		}()

		sess.logger.Info("server listening", "addr", ln.Addr().String(), "driver", sess.cfg.Driver)
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())
		if opts.Ready != nil {
			opts.Ready(ln.Addr().String())
		}

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return WrapExitError(ExitFailure, "server error", err)
			}
			return nil
		case <-ctx.Done():
		}

		sess.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return WrapExitError(ExitFailure, "shutdown failed", err)
		}
		sess.logger.Info("server stopped gracefully")
		return nil
	})
}
