package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/amanthanvi/dashkeep/internal/layoutstore"
	"github.com/spf13/cobra"
)

type layoutSummaryView struct {
	ID             string `json:"id"`
	NavigationPath string `json:"navigationPath"`
	Cells          int    `json:"cells"`
	Timestamp      string `json:"timestamp"`
}

type layoutRecordView struct {
	ID             string                 `json:"id"`
	DashboardID    string                 `json:"dashboardId"`
	NavigationPath string                 `json:"navigationPath"`
	Layout         []layoutstore.GridCell `json:"layout"`
	Timestamp      string                 `json:"timestamp"`
}

func toLayoutSummaries(records []layoutstore.LayoutRecord) []layoutSummaryView {
	views := make([]layoutSummaryView, 0, len(records))
	for _, record := range records {
		views = append(views, layoutSummaryView{
			ID:             record.ID,
			NavigationPath: record.NavigationPath,
			Cells:          len(record.Layout),
			Timestamp:      formatTime(record.Timestamp),
		})
	}
	return views
}

func newLayoutCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Grid layout operations",
	}
	cmd.AddCommand(
		newLayoutSaveCommand(deps),
		newLayoutGetCommand(deps),
		newLayoutListCommand(deps),
		newLayoutResetCommand(deps),
	)
	return cmd
}

func newLayoutSaveCommand(deps commandDeps) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "save <dashboard-id> <navigation-path>",
		Short: "Save the grid layout for a navigation path",
		Example: "  dashkeep layout save 4f1c... root --file layout.json\n" +
			"  echo '[{\"i\":\"w1\",\"x\":0,\"y\":0,\"w\":2,\"h\":2}]' | dashkeep layout save 4f1c... root",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageErrorf("layout save requires <dashboard-id> <navigation-path>")
			}
			raw, err := readInput(cmd, inputPath)
			if err != nil {
				return mapCommandError(err)
			}
			cells, err := parseCells(raw)
			if err != nil {
				return err
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				record, err := store.SaveLayout(ctx, args[0], args[1], cells)
				if err != nil {
					return err
				}
				return printLayoutRecord(deps, record)
			})
		},
	}
	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "Read the layout JSON array from this file instead of stdin")
	return cmd
}

func newLayoutGetCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dashboard-id> <navigation-path>",
		Short: "Print the saved grid layout as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageErrorf("layout get requires <dashboard-id> <navigation-path>")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				cells, found, err := store.GetLayout(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if !found {
					return notFoundErrorf("no layout saved for dashboard %s at %q", args[0], args[1])
				}
				return printJSON(deps.out, cells)
			})
		},
	}
}

func newLayoutListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <dashboard-id>",
		Short: "List the layouts saved for a dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("layout ls requires exactly one dashboard id argument")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				records, err := store.GetAllLayoutsForDashboard(ctx, args[0])
				if err != nil {
					return err
				}
				views := toLayoutSummaries(records)
				if deps.globals.JSON {
					return printJSON(deps.out, views)
				}
				return printLayoutSummaries(deps, views)
			})
		},
	}
}

func newLayoutResetCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <dashboard-id> <navigation-path>",
		Short: "Clear the grid layout for a navigation path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageErrorf("layout reset requires <dashboard-id> <navigation-path>")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				record, err := store.ResetLayout(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printLayoutRecord(deps, record)
			})
		},
	}
}

func parseCells(raw []byte) ([]layoutstore.GridCell, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, usageErrorf("layout input is empty")
	}
	cells := []layoutstore.GridCell{}
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, usageErrorf("layout input must be a JSON array of grid cells: %v", err)
	}
	return cells, nil
}

func printLayoutRecord(deps commandDeps, record layoutstore.LayoutRecord) error {
	if deps.globals.JSON {
		cells := record.Layout
		if cells == nil {
			cells = []layoutstore.GridCell{}
		}
		return printJSON(deps.out, layoutRecordView{
			ID:             record.ID,
			DashboardID:    record.DashboardID,
			NavigationPath: record.NavigationPath,
			Layout:         cells,
			Timestamp:      formatTime(record.Timestamp),
		})
	}
	if deps.globals.Quiet {
		_, err := fmt.Fprintln(deps.out, record.ID)
		return err
	}
	_, err := fmt.Fprintf(
		deps.out,
		"id=%s dashboard=%s path=%s cells=%d timestamp=%s\n",
		record.ID,
		record.DashboardID,
		record.NavigationPath,
		len(record.Layout),
		formatTime(record.Timestamp),
	)
	return err
}

func printLayoutSummaries(deps commandDeps, views []layoutSummaryView) error {
	for _, view := range views {
		if _, err := fmt.Fprintf(deps.out, "%s\t%d cells\t%s\n", view.NavigationPath, view.Cells, view.Timestamp); err != nil {
			return err
		}
	}
	return nil
}
