package sessioncmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-reports/apps/cli/clienv"
)

func run(t *testing.T, env *clienv.Env, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "reports", SilenceErrors: true, SilenceUsage: true}
	require.NoError(t, env.Bind(root))
	root.AddCommand(Command(env))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"session"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	t.Setenv("REPORTS_STATE_FILE", filepath.Join(t.TempDir(), "state.yaml"))
	env := clienv.New()

	out, err := run(t, env, "login", "jane@example.com")
	require.NoError(t, err)
	require.Contains(t, out, "jane@example.com")

	out, err = run(t, env, "whoami")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com\n", out)

	_, err = run(t, env, "logout")
	require.NoError(t, err)

	_, err = run(t, env, "whoami")
	require.ErrorIs(t, err, clienv.ErrNotSignedIn)
}

func TestLoginRejectsMalformedEmail(t *testing.T) {
	t.Setenv("REPORTS_STATE_FILE", filepath.Join(t.TempDir(), "state.yaml"))

	_, err := run(t, clienv.New(), "login", "not-an-email")
	require.Error(t, err)
}
