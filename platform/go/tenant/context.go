package tenant

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidEmail is returned when a tenant email is empty or lacks an '@'.
var ErrInvalidEmail = errors.New("tenant email must contain '@'")

// Session identifies the tenant a request or CLI invocation acts for.
// The email is a self-asserted claim: nothing upstream verifies that the caller owns it.
type Session struct {
	// Email is the tenant key, stored and compared verbatim.
	Email string
	// Key is a short digest of Email, safe to put in logs and local storage keys.
	Key string
}

type ctxKey string

const sessionKey ctxKey = "PALMYRA_REPORTS_TENANT_SESSION"

// NewSession builds a Session from a raw email claim.
func NewSession(email string) (Session, error) {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return Session{}, ErrInvalidEmail
	}
	return Session{Email: email, Key: DeriveKey(email)}, nil
}

// WithSession returns a derived context carrying the tenant Session.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// FromContext extracts the tenant Session and a boolean indicating presence.
func FromContext(ctx context.Context) (Session, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return Session{}, false
	}

	session, ok := v.(Session)
	return session, ok
}
