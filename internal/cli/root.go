package cli

import (
	"io"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type GlobalOptions struct {
	JSON       bool
	Quiet      bool
	ConfigPath string
	DBPath     string
	LogLevel   string
}

type commandDeps struct {
	out     io.Writer
	build   BuildInfo
	globals *GlobalOptions
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{}
	deps := commandDeps{out: out, build: build, globals: globals}

	cmd := &cobra.Command{
		Use:           "dashkeep",
		Short:         "Manage saved dashboards and their grid layouts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON")
	flags.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.StringVar(&globals.ConfigPath, "config", "", "Config file path")
	flags.StringVar(&globals.DBPath, "db", "", "Dashboard database path")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(
		newVersionCommand(deps),
		newDashboardCommand(deps),
		newLayoutCommand(deps),
		newExportCommand(deps),
		newImportCommand(deps),
		newDebugCommand(deps),
	)
	cmd.InitDefaultCompletionCmd()
	return cmd
}
