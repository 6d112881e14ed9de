package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/config"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
)

// loadConfig loads the process configuration and initialises logging on w.
func loadConfig(ctx context.Context, opts *RootOptions, w io.Writer) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	if err := logger.InitWithFormat(cfg.LogFormat, w); err != nil {
		return nil, WrapExitError(ExitCommandError, "init logging", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		logger.SetLevel(slog.LevelInfo)
	}
	if opts.Verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	return cfg, nil
}

// newReader builds the input reader described by cfg.
func newReader(cfg *config.Config) (*ingest.Reader, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "time zone", err)
	}
	return ingest.NewReader(
		ingest.WithColumns(ingest.Columns{
			Time:       cfg.ColumnTime,
			Person:     cfg.ColumnPerson,
			Direction:  cfg.ColumnDirection,
			Checkpoint: cfg.ColumnCheckpoint,
		}),
		ingest.WithTimeLayout(cfg.TimeLayout),
		ingest.WithLabels(cfg.EntryLabel, cfg.ExitLabel),
		ingest.WithLocation(loc),
	), nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
