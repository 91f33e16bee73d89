package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/yabu/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Bring targets up to date (default: all)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			dryRun, _ := flags.GetCount("dry-run")
			config, _ := flags.GetString("config")
			file, _ := flags.GetString("file")
			timestamps, _ := flags.GetString("timestamps")
			cfgDir, _ := flags.GetString("cfg-dir")
			noServer, _ := flags.GetBool("no-server")
			sequential, _ := flags.GetBool("sequential")
			noState, _ := flags.GetBool("no-state")
			mkdir, _ := flags.GetBool("mkdir")
			echo, _ := flags.GetBool("echo")
			watch, _ := flags.GetBool("watch")
			outputMode, _ := flags.GetString("output-mode")

			opts := app.BuildOptions{
				File:       file,
				CfgDir:     cfgDir,
				Config:     config,
				Timestamps: timestamps,
				DryRun:     dryRun,
				NoServer:   noServer,
				Sequential: sequential,
				NoState:    noState,
				Mkdir:      mkdir,
				Echo:       echo,
				OutputMode: outputMode,
			}
			if watch {
				return c.app.Watch(cmd.Context(), args, opts)
			}
			return c.app.Build(cmd.Context(), args, opts)
		},
	}
	flags := cmd.Flags()
	flags.CountP("dry-run", "n", "Print scripts instead of running them; twice forces every rule target")
	flags.StringP("config", "c", "", "Options applied after the configured ones, e.g. \"+debug -static\"")
	flags.StringP("file", "f", "", "Read this Buildfile")
	flags.StringP("timestamps", "y", "", "Signature algorithm: mt, mtid or cksum")
	flags.StringP("cfg-dir", "g", "", "Global config directory (default $YABU_CFG_DIR or ~/.yabu)")
	flags.BoolP("no-server", "j", false, "Run every script locally")
	flags.BoolP("sequential", "p", false, "Run one script at a time")
	flags.BoolP("no-state", "s", false, "Neither read nor write the state file")
	flags.BoolP("mkdir", "m", false, "Create missing target directories")
	flags.BoolP("echo", "e", false, "Print each script before running it")
	flags.BoolP("watch", "w", false, "Rebuild whenever a file changes")
	flags.StringP("output-mode", "o", "auto", "Output mode: auto, progress, or linear")
	return cmd
}
