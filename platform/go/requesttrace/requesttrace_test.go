package requesttrace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

func TestIntoContextAndFromContext(t *testing.T) {
	key := "0123456789abcdef"
	audit := AuditInfo{ActorKind: ActorKindTenant, TenantKey: &key, RequestID: "req-abc"}

	ctx := IntoContext(context.Background(), audit)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, audit, got)
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)
	require.Equal(t, ActorKindAnonymous, FromContextOrAnonymous(context.Background()).ActorKind)
}

func TestFromSession(t *testing.T) {
	session, err := tenant.NewSession("jane@x.com")
	require.NoError(t, err)

	audit, err := FromSession(session, "req-xyz")
	require.NoError(t, err)
	require.Equal(t, ActorKindTenant, audit.ActorKind)
	require.NotNil(t, audit.TenantKey)
	require.Equal(t, session.Key, *audit.TenantKey)
	require.Equal(t, "req-xyz", audit.RequestID)
}

func TestFromSessionMissingKey(t *testing.T) {
	_, err := FromSession(tenant.Session{Email: "jane@x.com"}, "req-1")
	require.Error(t, err)
}

func TestSystem(t *testing.T) {
	audit := System("dispatch-1")
	require.Equal(t, ActorKindSystem, audit.ActorKind)
	require.Nil(t, audit.TenantKey)
}
