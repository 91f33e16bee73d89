// Package commands implements the CLI commands for the yabu build tool.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/yabu/internal/app"
	"go.trai.ch/yabu/internal/build"
)

// CLI represents the command line interface for yabu.
type CLI struct {
	app     Application
	log     LogConfigurer
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Build(ctx context.Context, targets []string, opts app.BuildOptions) error
	Watch(ctx context.Context, targets []string, opts app.BuildOptions) error
	Serve(ctx context.Context, opts app.ServeOptions) error
	Token(cfgDir string) (string, error)
}

// LogConfigurer switches the log format.
type LogConfigurer interface {
	SetJSON(enable bool)
}

// New creates a new CLI instance with the given app.
func New(a Application, log LogConfigurer) *CLI {
	rootCmd := &cobra.Command{
		Use:           "yabu",
		Short:         "A make-like build tool with remote build servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().Bool("log-json", false, "Write log messages as JSON")

	c := &CLI{
		app:     a,
		log:     log,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if jsonLogs, _ := cmd.Flags().GetBool("log-json"); jsonLogs && c.log != nil {
			c.log.SetJSON(true)
		}
	}

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newTokenCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
