package schedulescmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-reports/apps/cli/clienv"
	"github.com/zenGate-Global/palmyra-reports/apps/cli/input"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/api"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/service"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/client"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/draft"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

// Command groups the report schedule operations.
func Command(env *clienv.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedules",
		Aliases: []string{"reports"},
		Short:   "Manage report schedules of the signed-in tenant",
	}

	cmd.AddCommand(
		listCommand(env),
		getCommand(env),
		createCommand(env),
		updateCommand(env),
		toggleCommand(env),
		deleteCommand(env),
		testCommand(env),
	)
	return cmd
}

// source selects where a configuration body comes from.
type source struct {
	file      string
	fromDraft bool
}

func (s *source) register(cmd *cobra.Command, allowDraft bool) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "JSON configuration file, - for stdin")
	if !allowDraft {
		_ = cmd.MarkFlagRequired("file")
		return
	}
	cmd.Flags().BoolVar(&s.fromDraft, "from-draft", false, "use the saved draft")
	cmd.MarkFlagsMutuallyExclusive("file", "from-draft")
	cmd.MarkFlagsOneRequired("file", "from-draft")
}

// overlay decodes the selected JSON object on top of base. Keys absent from the input keep base values.
func (s *source) overlay(cmd *cobra.Command, env *clienv.Env, session tenant.Session, base api.ReportConfiguration) (api.ReportConfiguration, error) {
	var raw json.RawMessage
	if s.fromDraft {
		drafts, err := env.Drafts()
		if err != nil {
			return base, err
		}
		snapshot, ok, err := drafts.Load(session)
		if errors.Is(err, draft.ErrCorruptDraft) {
			return base, fmt.Errorf("%w; run `reports draft clear` and start again", err)
		}
		if err != nil {
			return base, err
		}
		if !ok {
			return base, errors.New("no draft saved; run `reports draft save` first")
		}
		raw = snapshot
	} else {
		data, err := input.Read(cmd, s.file)
		if err != nil {
			return base, err
		}
		raw = data
	}

	if err := json.Unmarshal(raw, &base); err != nil {
		return base, fmt.Errorf("decode configuration: %w", err)
	}
	if base.ContactEmail == nil {
		base.ContactEmail = []string{}
	}
	return base, nil
}

func (s *source) clearDraft(env *clienv.Env, session tenant.Session) {
	if !s.fromDraft {
		return
	}
	drafts, err := env.Drafts()
	if err == nil {
		err = drafts.Clear(session)
	}
	if err != nil {
		env.Logger().Warn("clear draft after save", zap.Error(err))
	}
}

// defaultConfiguration mirrors the initial values of a new schedule form.
func defaultConfiguration() api.ReportConfiguration {
	d := service.DefaultConfiguration()
	hour := d.DeliveryTimeHour
	return api.ReportConfiguration{
		ContactEmail:     append([]string(nil), d.ContactEmails...),
		ReportType:       d.ReportType,
		DateRange:        d.DateRange,
		Frequency:        string(d.Frequency),
		DeliveryTimeHour: &hour,
	}
}

type conn struct {
	tenant tenant.Session
	client *client.Client
}

func connect(env *clienv.Env) (conn, error) {
	ts, err := env.Session()
	if err != nil {
		return conn{}, err
	}
	c, err := env.Client(ts)
	if err != nil {
		return conn{}, err
	}
	return conn{tenant: ts, client: c}, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid schedule id %q: %w", raw, err)
	}
	return id, nil
}

// resolvePartition returns the explicit partition or looks up where the schedule lives now.
func resolvePartition(ctx context.Context, c *client.Client, id uuid.UUID, explicit string) (string, error) {
	switch explicit {
	case api.PartitionActive, api.PartitionInactive:
		return explicit, nil
	case "":
		current, err := c.Get(ctx, id)
		if err != nil {
			return "", err
		}
		return current.Partition(), nil
	default:
		return "", fmt.Errorf("invalid partition %q (use active or inactive)", explicit)
	}
}

func listCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List schedules, active and inactive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := connect(env)
			if err != nil {
				return err
			}
			items, err := s.client.List(cmd.Context())
			if err != nil {
				return explain(cmd, err)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No report schedules")
				return nil
			}
			return printTable(cmd.OutOrStdout(), items)
		},
	}
}

func getCommand(env *clienv.Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := connect(env)
			if err != nil {
				return err
			}
			schedule, err := s.client.Get(cmd.Context(), id)
			if err != nil {
				return explain(cmd, err)
			}
			return printJSON(cmd.OutOrStdout(), schedule)
		},
	}
}

func createCommand(env *clienv.Env) *cobra.Command {
	var src source

	c := &cobra.Command{
		Use:   "create",
		Short: "Create an active schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := connect(env)
			if err != nil {
				return err
			}
			cfg, err := src.overlay(cmd, env, s.tenant, defaultConfiguration())
			if err != nil {
				return err
			}
			created, err := s.client.Create(cmd.Context(), cfg)
			if err != nil {
				return explain(cmd, err)
			}
			src.clearDraft(env, s.tenant)
			env.Logger().Info("schedule created", zap.String("id", created.ID.String()))
			return printJSON(cmd.OutOrStdout(), created)
		},
	}

	src.register(c, true)
	return c
}

func updateCommand(env *clienv.Env) *cobra.Command {
	var (
		src       source
		partition string
	)

	c := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the configuration of a schedule",
		Long:  "Fields missing from the input keep their stored values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := connect(env)
			if err != nil {
				return err
			}
			current, err := s.client.Get(cmd.Context(), id)
			if err != nil {
				return explain(cmd, err)
			}
			if partition == "" {
				partition = current.Partition()
			}
			cfg, err := src.overlay(cmd, env, s.tenant, current.ReportConfiguration)
			if err != nil {
				return err
			}
			updated, err := s.client.Update(cmd.Context(), id, partition, cfg)
			if err != nil {
				return explain(cmd, err)
			}
			src.clearDraft(env, s.tenant)
			return printJSON(cmd.OutOrStdout(), updated)
		},
	}

	src.register(c, false)
	c.Flags().StringVar(&partition, "partition", "", "partition the schedule is expected in (default: its current one)")
	return c
}

func toggleCommand(env *clienv.Env) *cobra.Command {
	var partition string

	c := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Move a schedule between active and inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := connect(env)
			if err != nil {
				return err
			}
			from, err := resolvePartition(cmd.Context(), s.client, id, partition)
			if err != nil {
				return explain(cmd, err)
			}
			toggled, err := s.client.Toggle(cmd.Context(), id, from)
			if err != nil {
				return explain(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule %s is now %s\n", toggled.ID, toggled.Partition())
			return nil
		},
	}

	c.Flags().StringVar(&partition, "partition", "", "partition the schedule is expected in (default: its current one)")
	return c
}

func deleteCommand(env *clienv.Env) *cobra.Command {
	var partition string

	c := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := connect(env)
			if err != nil {
				return err
			}
			from, err := resolvePartition(cmd.Context(), s.client, id, partition)
			if err != nil {
				return explain(cmd, err)
			}
			if err := s.client.Delete(cmd.Context(), id, from); err != nil {
				return explain(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule %s deleted\n", id)
			return nil
		},
	}

	c.Flags().StringVar(&partition, "partition", "", "partition the schedule is expected in (default: its current one)")
	return c
}

func testCommand(env *clienv.Env) *cobra.Command {
	var src source

	c := &cobra.Command{
		Use:   "test",
		Short: "Send a one-off test report to the contact emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := connect(env)
			if err != nil {
				return err
			}
			cfg, err := src.overlay(cmd, env, s.tenant, defaultConfiguration())
			if err != nil {
				return err
			}
			if err := s.client.SendTest(cmd.Context(), cfg); err != nil {
				return explain(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test report sent")
			return nil
		},
	}

	src.register(c, true)
	return c
}

// explain prints per-field validation messages before returning err.
func explain(cmd *cobra.Command, err error) error {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	fields := apiErr.FieldErrors()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", name, strings.Join(fields[name], "; "))
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, items []api.ReportSchedule) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPERSON\tCUSTOMER\tFREQUENCY\tHOUR\tRANGE")
	for _, item := range items {
		hour := "-"
		if item.DeliveryTimeHour != nil {
			hour = fmt.Sprintf("%02d:00", *item.DeliveryTimeHour)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			item.ID, item.Partition(), item.PersonName, item.CustomerID, item.Frequency, hour, item.DateRange)
	}
	return tw.Flush()
}
