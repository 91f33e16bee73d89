package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/yabu/internal/app"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a build server for the local host entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			idle, _ := cmd.Flags().GetDuration("idle-timeout")
			cfgDir, _ := cmd.Flags().GetString("cfg-dir")
			return c.app.Serve(cmd.Context(), app.ServeOptions{
				CfgDir:      cfgDir,
				Listen:      listen,
				IdleTimeout: idle,
			})
		},
	}
	cmd.Flags().String("listen", "", "Listen address (default: the port of the local host entry)")
	cmd.Flags().Duration("idle-timeout", 0, "Exit after being idle this long (0 runs forever)")
	cmd.Flags().StringP("cfg-dir", "g", "", "Global config directory (default $YABU_CFG_DIR or ~/.yabu)")
	return cmd
}
