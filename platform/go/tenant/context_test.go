package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSessionRejectsMissingAt(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "jane.example.com"} {
		_, err := NewSession(raw)
		require.ErrorIs(t, err, ErrInvalidEmail, raw)
	}
}

func TestNewSessionKeepsEmailVerbatim(t *testing.T) {
	t.Parallel()

	session, err := NewSession("Jane@X.com")
	require.NoError(t, err)
	require.Equal(t, "Jane@X.com", session.Email)
	require.Len(t, session.Key, 16)

	other, err := NewSession("jane@x.com")
	require.NoError(t, err)
	require.NotEqual(t, session.Key, other.Key)
}

func TestSessionContextRoundTrip(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	require.False(t, ok)

	session, err := NewSession("jane@x.com")
	require.NoError(t, err)

	got, ok := FromContext(WithSession(context.Background(), session))
	require.True(t, ok)
	require.Equal(t, session, got)
}
