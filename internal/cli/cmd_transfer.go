package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/amanthanvi/dashkeep/internal/layoutstore"
	"github.com/amanthanvi/dashkeep/internal/transfer"
	"github.com/spf13/cobra"
)

type importResultView struct {
	Dashboard dashboardView `json:"dashboard"`
	Layouts   int           `json:"layouts"`
}

func newExportCommand(deps commandDeps) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "export <dashboard-id>",
		Short: "Export a dashboard and its layouts as JSON",
		Example: "  dashkeep export 4f1c... > ops.json\n" +
			"  dashkeep export 4f1c... --output-dir ./backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("export requires exactly one dashboard id argument")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				svc := transfer.NewService(store)
				if strings.TrimSpace(outputDir) == "" {
					payload, err := svc.ExportJSON(ctx, args[0])
					if err != nil {
						return err
					}
					_, err = deps.out.Write(payload)
					return err
				}

				path, err := svc.WriteFile(ctx, args[0], outputDir)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]string{"path": path})
				}
				_, err = fmt.Fprintf(deps.out, "exported dashboard %s to %s\n", args[0], path)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Write <name>.json into this directory instead of stdout")
	return cmd
}

func newImportCommand(deps commandDeps) *cobra.Command {
	var fromPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a dashboard export as a new dashboard",
		Example: "  dashkeep import --from ops.json\n" +
			"  cat ops.json | dashkeep import",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("import does not accept positional arguments")
			}
			payload, err := readInput(cmd, fromPath)
			if err != nil {
				return mapCommandError(err)
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				result, err := transfer.NewService(store).ImportJSON(ctx, payload)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, importResultView{
						Dashboard: toDashboardView(result.Dashboard),
						Layouts:   result.Layouts,
					})
				}
				_, err = fmt.Fprintf(
					deps.out,
					"imported dashboard %s (%s) with %d layouts\n",
					result.Dashboard.ID,
					result.Dashboard.Name,
					result.Layouts,
				)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&fromPath, "from", "", "Input path (stdin when empty)")
	return cmd
}
