package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/amanthanvi/dashkeep/internal/layoutstore"
	"github.com/spf13/cobra"
)

type dashboardView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	CreatedAt string `json:"createdAt"`
}

type dashboardDetailView struct {
	dashboardView
	Layouts []layoutSummaryView `json:"layouts"`
}

func toDashboardView(d layoutstore.Dashboard) dashboardView {
	return dashboardView{
		ID:        d.ID,
		Name:      d.Name,
		IsDefault: d.IsDefault,
		CreatedAt: formatTime(d.CreatedAt),
	}
}

func newDashboardCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Dashboard management",
	}
	cmd.AddCommand(
		newDashboardListCommand(deps),
		newDashboardCreateCommand(deps),
		newDashboardShowCommand(deps),
		newDashboardRenameCommand(deps),
		newDashboardSetDefaultCommand(deps),
		newDashboardRemoveCommand(deps),
		newDashboardInitCommand(deps),
	)
	return cmd
}

func newDashboardListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List dashboards",
		Example: "  dashkeep dashboard ls\n" +
			"  dashkeep --json dashboard ls",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("dashboard ls does not accept positional arguments")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				dashboards, err := store.ListDashboards(ctx)
				if err != nil {
					return err
				}
				views := make([]dashboardView, 0, len(dashboards))
				for _, d := range dashboards {
					views = append(views, toDashboardView(d))
				}
				if deps.globals.JSON {
					return printJSON(deps.out, views)
				}
				for _, view := range views {
					if _, err := fmt.Fprintf(deps.out, "%s\t%s\t%s\n", view.ID, view.Name, boolToState(view.IsDefault, "default", "-")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newDashboardCreateCommand(deps commandDeps) *cobra.Command {
	var isDefault bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a dashboard",
		Example: "  dashkeep dashboard create Ops\n" +
			"  dashkeep dashboard create \"Home board\" --default",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("dashboard create requires exactly one name argument")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				dashboard, err := store.CreateDashboard(ctx, args[0], isDefault)
				if err != nil {
					return err
				}
				return printDashboard(deps, dashboard)
			})
		},
	}
	cmd.Flags().BoolVar(&isDefault, "default", false, "Flag the new dashboard as default")
	return cmd
}

func newDashboardShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a dashboard and its saved layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("dashboard show requires exactly one id argument")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				dashboard, err := store.GetDashboard(ctx, args[0])
				if err != nil {
					return err
				}
				records, err := store.GetAllLayoutsForDashboard(ctx, dashboard.ID)
				if err != nil {
					return err
				}
				detail := dashboardDetailView{
					dashboardView: toDashboardView(dashboard),
					Layouts:       toLayoutSummaries(records),
				}
				if deps.globals.JSON {
					return printJSON(deps.out, detail)
				}
				if _, err := fmt.Fprintf(
					deps.out,
					"id=%s name=%s default=%t created_at=%s layouts=%d\n",
					detail.ID,
					detail.Name,
					detail.IsDefault,
					detail.CreatedAt,
					len(detail.Layouts),
				); err != nil {
					return err
				}
				return printLayoutSummaries(deps, detail.Layouts)
			})
		},
	}
}

func newDashboardRenameCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return usageErrorf("dashboard rename requires <id> <name>")
			}
			name := strings.TrimSpace(args[1])
			if name == "" {
				return usageErrorf("dashboard rename requires a non-empty name")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				dashboard, err := store.GetDashboard(ctx, args[0])
				if err != nil {
					return err
				}
				dashboard.Name = name
				if err := store.UpdateDashboard(ctx, dashboard); err != nil {
					return err
				}
				return printDashboard(deps, dashboard)
			})
		},
	}
}

func newDashboardSetDefaultCommand(deps commandDeps) *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "set-default <id>",
		Short: "Flag or unflag a dashboard as default",
		Example: "  dashkeep dashboard set-default 4f1c...\n" +
			"  dashkeep dashboard set-default 4f1c... --unset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("dashboard set-default requires exactly one id argument")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				dashboard, err := store.GetDashboard(ctx, args[0])
				if err != nil {
					return err
				}
				dashboard.IsDefault = !unset
				if err := store.UpdateDashboard(ctx, dashboard); err != nil {
					return err
				}
				return printDashboard(deps, dashboard)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "Clear the default flag instead of setting it")
	return cmd
}

func newDashboardRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a dashboard and all of its layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("dashboard rm requires exactly one id argument")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				if err := store.DeleteDashboard(ctx, args[0]); err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"deleted": true, "id": args[0]})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err := fmt.Fprintf(deps.out, "deleted dashboard %s\n", args[0])
				return err
			})
		},
	}
}

func newDashboardInitCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Ensure a default dashboard exists and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("dashboard init does not accept positional arguments")
			}
			return withStore(cmd, deps, func(ctx context.Context, store *layoutstore.Store) error {
				dashboard, err := store.InitializeDefaultDashboard(ctx)
				if err != nil {
					return err
				}
				return printDashboard(deps, dashboard)
			})
		},
	}
}

func printDashboard(deps commandDeps, dashboard layoutstore.Dashboard) error {
	view := toDashboardView(dashboard)
	if deps.globals.JSON {
		return printJSON(deps.out, view)
	}
	if deps.globals.Quiet {
		_, err := fmt.Fprintln(deps.out, view.ID)
		return err
	}
	_, err := fmt.Fprintf(
		deps.out,
		"id=%s name=%s default=%t created_at=%s\n",
		view.ID,
		view.Name,
		view.IsDefault,
		view.CreatedAt,
	)
	return err
}
