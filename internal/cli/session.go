package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/kvstore/internal/config"
	"github.com/roach88/kvstore/internal/logging"
	"github.com/roach88/kvstore/internal/store"
	"github.com/roach88/kvstore/internal/store/memory"
	"github.com/roach88/kvstore/internal/store/sqlite"
)

// session bundles what a command needs: settings, a logger, an open store
// and an output formatter.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	store  store.Store
	out    *OutputFormatter
}

// loadConfig resolves settings from file, environment and flags.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Driver != "" {
		cfg.Driver = o.Driver
	}
	if o.Database != "" {
		cfg.ConnectionString = o.Database
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, cfg.Validate()
}

// openStore constructs the single store handle for this process.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.Driver == config.DriverMemory {
		s, err := memory.New(cfg.Tables...)
		if err != nil {
			return nil, err
		}
		return s.WithLogger(logger), nil
	}
	return sqlite.Open(ctx, sqlite.Options{
		Driver:      cfg.Driver,
		DSN:         cfg.ConnectionString,
		Tables:      cfg.Tables,
		BusyTimeout: cfg.BusyTimeout,
		Logger:      logger,
	})
}

// withStore opens the store, runs fn and closes the store. Errors from fn
// are reported through the formatter.
func withStore(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, sess *session) error) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return out.Fail("failed to load config", err)
	}
	logger := logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openStore(ctx, cfg, logger)
	if err != nil {
		return out.Fail("failed to open store", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()
	out.VerboseLog("store ready: driver=%s tables=%v", cfg.Driver, cfg.Tables)

	return fn(ctx, &session{cfg: cfg, logger: logger, store: s, out: out})
}
