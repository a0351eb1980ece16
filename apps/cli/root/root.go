package root

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-reports/apps/cli/clienv"
)

// rootCmd is the base command of the report schedules CLI. Subcommands are attached in wire.go.
var rootCmd = &cobra.Command{
	Use:           "reports",
	Short:         "Palmyra report schedules CLI",
	Long:          "Configure scheduled report emails for a tenant: sign in with an email, keep a draft, and manage schedules through the API.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var env = clienv.New()

// Execute runs the CLI until ctx is cancelled.
func Execute(ctx context.Context) error {
	defer func() {
		_ = env.Logger().Sync()
	}()
	return rootCmd.ExecuteContext(ctx)
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}
