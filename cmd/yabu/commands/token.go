package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Create or refresh the auth token for build servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgDir, _ := cmd.Flags().GetString("cfg-dir")
			path, err := c.app.Token(cfgDir)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringP("cfg-dir", "g", "", "Global config directory (default $YABU_CFG_DIR or ~/.yabu)")
	return cmd
}
