package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/resync/internal/config"
	"github.com/roach88/resync/internal/model"
	"github.com/roach88/resync/internal/record"
	"github.com/roach88/resync/internal/store"
)

// workspace bundles what the persistent commands share: the loaded
// config, the open store and a logger at the configured level.
type workspace struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
}

// openWorkspace loads the config and opens its database. Errors are
// reported through f and returned as ExitErrors.
func openWorkspace(opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*workspace, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if err := cfg.Validate(); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid config", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid config", err)
	}
	logger := opts.logger(cmd, level)

	dbPath := cfg.DatabasePath()
	if opts.Database != "" {
		dbPath = opts.Database
	}
	logger.Debug("opening database", "path", dbPath, "config", cfg.File)
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	return &workspace{cfg: cfg, store: st, logger: logger}, nil
}

// model builds the configured model called name. With persist it writes
// to the workspace store; without, saves only run the hooks.
func (w *workspace) model(name string, persist bool) (*model.Model, error) {
	mc, err := w.cfg.Model(name)
	if err != nil {
		return nil, err
	}
	opts, err := mc.Options(w.cfg.BaseDir())
	if err != nil {
		return nil, err
	}
	opts = append(opts, model.WithLogger(w.logger))
	if persist {
		opts = append(opts, model.WithStore(w.store))
	}
	return model.New(mc.Name, opts...), nil
}

func (w *workspace) Close() {
	if err := w.store.Close(); err != nil {
		w.logger.Error("error closing database", "error", err)
	}
}

// readRecord parses a JSON or YAML record file, keeping field order.
// "-" reads stdin.
func readRecord(cmd *cobra.Command, path string) (*record.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	doc, err := record.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
