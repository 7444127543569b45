package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/amanthanvi/dashkeep/internal/config"
	"github.com/amanthanvi/dashkeep/internal/layoutstore"
	dklog "github.com/amanthanvi/dashkeep/internal/log"
	"github.com/spf13/cobra"
)

var loadConfigFn = config.Load

// withStore loads configuration, builds the logger and hands fn a lazily
// opened store. The store and the log output are closed when fn returns.
func withStore(cmd *cobra.Command, deps commandDeps, fn func(context.Context, *layoutstore.Store) error) error {
	loadOpts := config.LoadOptions{}
	if deps.globals != nil {
		loadOpts.ConfigPath = strings.TrimSpace(deps.globals.ConfigPath)
		dbPath := strings.TrimSpace(deps.globals.DBPath)
		logLevel := strings.TrimSpace(deps.globals.LogLevel)
		loadOpts.Flags = config.FlagOverrides{StorePath: &dbPath, LogLevel: &logLevel}
	}

	cfg, err := loadConfigFn(loadOpts)
	if err != nil {
		return mapCommandError(fmt.Errorf("load config: %w", err))
	}

	logger, logCloser, err := dklog.New(dklog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}, cmd.ErrOrStderr())
	if err != nil {
		return mapCommandError(fmt.Errorf("init logging: %w", err))
	}
	defer logCloser.Close()

	store := layoutstore.New(layoutstore.Options{
		Path:                 cfg.Store.Path,
		BusyTimeout:          cfg.Store.BusyTimeout,
		DefaultDashboardName: cfg.Store.DefaultDashboardName,
		Logger:               logger,
	})
	defer store.Close()

	return mapCommandError(fn(cmd.Context(), store))
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// readInput returns the contents of path, or of stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	return data, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func boolToState(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
