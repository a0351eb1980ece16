package requesttrace

import (
	"context"
	"errors"

	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "PALMYRA_REPORTS_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindTenant    ActorKind = "tenant"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata needed for traceability.
// TenantKey is set only when ActorKind is tenant; it is the hashed tenant key, never the raw email.
type AuditInfo struct {
	ActorKind ActorKind
	TenantKey *string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromSession builds an AuditInfo for a request carrying a resolved tenant session.
func FromSession(session tenant.Session, requestID string) (AuditInfo, error) {
	if session.Key == "" {
		return AuditInfo{}, errors.New("tenant key is required to build audit info")
	}

	key := session.Key
	return AuditInfo{
		ActorKind: ActorKindTenant,
		TenantKey: &key,
		RequestID: requestID,
	}, nil
}

// Anonymous builds an AuditInfo for requests without a tenant session.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background operations such as the outbox dispatcher.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
