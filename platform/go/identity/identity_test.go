package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-reports/platform/go/localstate"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	kv, err := localstate.Open(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	return New(kv)
}

func TestSetGetClear(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	_, ok, err := store.Get()
	require.NoError(t, err)
	require.False(t, ok)

	session, err := store.Set("jane@acme.io")
	require.NoError(t, err)
	require.Equal(t, "jane@acme.io", session.Email)

	email, ok, err := store.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "jane@acme.io", email)

	_, err = store.Set("john@acme.io")
	require.NoError(t, err)
	resolved, ok, err := store.Session()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "john@acme.io", resolved.Email)
	require.Equal(t, tenant.DeriveKey("john@acme.io"), resolved.Key)

	require.NoError(t, store.Clear())
	_, ok, err = store.Get()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetRejectsInvalidEmail(t *testing.T) {
	t.Parallel()

	store := newStore(t)

	_, err := store.Set("not-an-email")
	require.ErrorIs(t, err, tenant.ErrInvalidEmail)

	_, err = store.Set("   ")
	require.ErrorIs(t, err, tenant.ErrInvalidEmail)

	_, ok, err := store.Get()
	require.NoError(t, err)
	require.False(t, ok)
}
