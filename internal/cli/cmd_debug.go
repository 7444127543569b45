package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	debugpkg "github.com/amanthanvi/dashkeep/internal/debug"
	"github.com/amanthanvi/dashkeep/internal/layoutstore"
	"github.com/spf13/cobra"
)

func newDebugCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "debug",
		Short:   "Diagnostics helpers",
		Example: "  dashkeep debug bundle --output ./dashkeep-debug.json",
	}
	cmd.AddCommand(newDebugBundleCommand(deps))
	return cmd
}

func newDebugBundleCommand(deps commandDeps) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Collect store diagnostics into a JSON bundle",
		Example: "  dashkeep debug bundle --output ./dashkeep-debug.json\n" +
			"  dashkeep --json debug bundle --output ./dashkeep-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("debug bundle does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" {
				return usageErrorf("debug bundle requires --output")
			}

			bundle := debugpkg.NewBundle()
			bundle.Version = map[string]any{
				"version":    deps.build.Version,
				"commit":     deps.build.Commit,
				"build_time": deps.build.BuildTime,
			}

			runErr := withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				stats, err := store.Stats(ctx)
				bundle.AddCheck("store", err, "reachable")
				if err != nil {
					return nil
				}
				bundle.Store = map[string]any{
					"path":                stats.Path,
					"schema_version":      stats.SchemaVersion,
					"code_schema_version": stats.CodeSchemaVersion,
					"dashboards":          stats.Dashboards,
					"layouts":             stats.Layouts,
				}
				var schemaErr error
				if stats.SchemaVersion != stats.CodeSchemaVersion {
					schemaErr = fmt.Errorf("schema version %d differs from code version %d", stats.SchemaVersion, stats.CodeSchemaVersion)
				}
				bundle.AddCheck("schema", schemaErr, fmt.Sprintf("version %d", stats.SchemaVersion))
				if info, err := os.Stat(stats.Path); err == nil {
					bundle.Store["db_size"] = humanize.IBytes(uint64(info.Size()))
				}
				return nil
			})
			if runErr != nil {
				bundle.AddCheck("config", runErr, "")
			}

			if err := debugpkg.WriteBundle(outputPath, bundle); err != nil {
				return mapCommandError(err)
			}
			if deps.globals.JSON {
				return printJSON(deps.out, map[string]any{"output": outputPath, "healthy": bundle.Healthy()})
			}
			if deps.globals.Quiet {
				return nil
			}
			_, err := fmt.Fprintf(deps.out, "wrote debug bundle to %s (healthy=%t)\n", outputPath, bundle.Healthy())
			return mapCommandError(err)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path for the JSON bundle")
	return cmd
}
