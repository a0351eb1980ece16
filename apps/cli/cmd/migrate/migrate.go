package migratecmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-reports/apps/cli/clienv"
	"github.com/zenGate-Global/palmyra-reports/platform/go/persistence"
)

// Command groups schema migration helpers for the Postgres store.
func Command(env *clienv.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations (needs --database-url)",
	}

	cmd.AddCommand(upCommand(env), statusCommand(env))
	return cmd
}

func upCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if env.DatabaseURL() == "" {
				return errors.New("--database-url or REPORTS_DATABASE_URL is required")
			}

			pool, err := persistence.NewPool(ctx, migrationPool(env))
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			results, err := persistence.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
				return nil
			}
			for _, r := range results {
				env.Logger().Debug("migration applied", zap.Int64("version", r.Source.Version), zap.Duration("took", r.Duration))
				fmt.Fprintf(cmd.OutOrStdout(), "applied %05d %s (%s)\n", r.Source.Version, r.Source.Path, r.Duration.Round(time.Millisecond))
			}
			return nil
		},
	}
}

func statusCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if env.DatabaseURL() == "" {
				return errors.New("--database-url or REPORTS_DATABASE_URL is required")
			}

			pool, err := persistence.NewPool(ctx, migrationPool(env))
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			statuses, err := persistence.MigrationStatus(ctx, pool)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
			for _, s := range statuses {
				applied := "-"
				if !s.AppliedAt.IsZero() {
					applied = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%05d\t%s\t%s\t%s\n", s.Source.Version, s.State, applied, s.Source.Path)
			}
			return tw.Flush()
		},
	}
}

// migrationPool keeps the CLI to a couple of short-lived connections.
func migrationPool(env *clienv.Env) persistence.PoolConfig {
	return persistence.PoolConfig{
		ConnString:      env.DatabaseURL(),
		MaxConns:        2,
		MaxConnLifetime: 5 * time.Minute,
	}
}
