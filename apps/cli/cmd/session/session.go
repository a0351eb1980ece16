package sessioncmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-reports/apps/cli/clienv"
)

// Command groups identity helpers.
func Command(env *clienv.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Choose which tenant email the CLI acts as",
	}

	cmd.AddCommand(loginCommand(env), logoutCommand(env), whoamiCommand(env))
	return cmd
}

func loginCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Remember the tenant email used for subsequent commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := env.Identity()
			if err != nil {
				return err
			}
			session, err := ids.Set(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", session.Email)
			return nil
		},
	}
}

func logoutCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the remembered tenant email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := env.Identity()
			if err != nil {
				return err
			}
			if err := ids.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the remembered tenant email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := env.Session()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.Email)
			return nil
		},
	}
}
