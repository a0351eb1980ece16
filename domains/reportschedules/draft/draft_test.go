package draft

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-reports/platform/go/localstate"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

func newCache(t *testing.T) (*Cache, *localstate.Store) {
	t.Helper()
	kv, err := localstate.Open(filepath.Join(t.TempDir(), "state.yaml"))
	require.NoError(t, err)
	cache, err := New(kv)
	require.NoError(t, err)
	return cache, kv
}

func session(t *testing.T, email string) tenant.Session {
	t.Helper()
	s, err := tenant.NewSession(email)
	require.NoError(t, err)
	return s
}

func TestSaveLoadClear(t *testing.T) {
	t.Parallel()

	cache, _ := newCache(t)
	jane := session(t, "jane@acme.io")

	_, ok, err := cache.Load(jane)
	require.NoError(t, err)
	require.False(t, ok)

	snapshot := json.RawMessage(`{"person_name": "Jane", "contact_email": ["jane@x.com", ""], "delivery_day_of_week": null}`)
	require.NoError(t, cache.Save(jane, snapshot))

	loaded, ok, err := cache.Load(jane)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, string(snapshot), string(loaded))

	require.NoError(t, cache.Save(jane, json.RawMessage(`{"customer_id":"C9"}`)))
	loaded, _, err = cache.Load(jane)
	require.NoError(t, err)
	require.JSONEq(t, `{"customer_id":"C9"}`, string(loaded))

	require.NoError(t, cache.Clear(jane))
	_, ok, err = cache.Load(jane)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDraftIsTenantScoped(t *testing.T) {
	t.Parallel()

	cache, _ := newCache(t)
	jane := session(t, "jane@acme.io")
	john := session(t, "john@acme.io")

	require.NoError(t, cache.Save(jane, json.RawMessage(`{"person_name":"Jane"}`)))

	_, ok, err := cache.Load(john)
	require.NoError(t, err)
	require.False(t, ok)
	require.NotEqual(t, Key(jane), Key(john))
}

func TestSaveRejectsInvalidSnapshots(t *testing.T) {
	t.Parallel()

	cache, _ := newCache(t)
	jane := session(t, "jane@acme.io")

	for _, raw := range []string{
		`[]`,
		`not json`,
		`{"delivery_time_hour":"nine"}`,
		`{"frequency":"hourly"}`,
		`{"contact_email":["a","b","c","d","e","f"]}`,
		`{"date_range":"last_40_days"}`,
	} {
		err := cache.Save(jane, json.RawMessage(raw))
		require.ErrorIs(t, err, ErrInvalidDraft, raw)
	}
}

func TestLoadReportsCorruptDraft(t *testing.T) {
	t.Parallel()

	cache, kv := newCache(t)
	jane := session(t, "jane@acme.io")

	require.NoError(t, kv.Set(Key(jane), "{broken"))

	_, ok, err := cache.Load(jane)
	require.ErrorIs(t, err, ErrCorruptDraft)
	require.False(t, ok)
}
