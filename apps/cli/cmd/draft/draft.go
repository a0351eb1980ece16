package draftcmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-reports/apps/cli/clienv"
	"github.com/zenGate-Global/palmyra-reports/apps/cli/input"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/draft"
)

// Command groups helpers for the unsaved schedule form.
func Command(env *clienv.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Keep an unsaved schedule configuration between commands",
	}

	cmd.AddCommand(saveCommand(env), showCommand(env), clearCommand(env))
	return cmd
}

func saveCommand(env *clienv.Env) *cobra.Command {
	var file string

	c := &cobra.Command{
		Use:   "save",
		Short: "Store a partial configuration JSON object as the current draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := env.Session()
			if err != nil {
				return err
			}
			raw, err := input.Read(cmd, file)
			if err != nil {
				return err
			}
			drafts, err := env.Drafts()
			if err != nil {
				return err
			}
			if err := drafts.Save(session, raw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Draft saved")
			return nil
		},
	}

	c.Flags().StringVarP(&file, "file", "f", "-", "JSON file to read, - for stdin")
	return c
}

func showCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := env.Session()
			if err != nil {
				return err
			}
			drafts, err := env.Drafts()
			if err != nil {
				return err
			}
			raw, ok, err := drafts.Load(session)
			if errors.Is(err, draft.ErrCorruptDraft) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Ignoring unreadable draft: %v\n", err)
				return nil
			}
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No draft")
				return nil
			}
			var out bytes.Buffer
			if err := json.Indent(&out, raw, "", "  "); err != nil {
				return err
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func clearCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard the current draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := env.Session()
			if err != nil {
				return err
			}
			drafts, err := env.Drafts()
			if err != nil {
				return err
			}
			if err := drafts.Clear(session); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Draft cleared")
			return nil
		},
	}
}
