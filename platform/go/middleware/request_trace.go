package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-reports/platform/go/logging"
	"github.com/zenGate-Global/palmyra-reports/platform/go/requesttrace"
	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

// RequestTrace populates the context with request-scoped AuditInfo so services and the outbox can stamp request ids.
// It should run after the tenant session middleware so the session is available when present.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := platformlogging.FromRequest(r, nil)
		requestID, _ := r.Context().Value(middleware.RequestIDKey).(string)

		audit := requesttrace.Anonymous(requestID)
		if session, ok := tenant.FromContext(r.Context()); ok {
			var err error
			audit, err = requesttrace.FromSession(session, requestID)
			if err != nil {
				if logger != nil {
					logger.Error("build audit info from tenant session", zap.Error(err))
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger != nil {
			fields := []zap.Field{zap.String("actor_kind", string(audit.ActorKind))}
			if audit.TenantKey != nil {
				fields = append(fields, zap.String("tenant_key", *audit.TenantKey))
			}
			logger = logger.With(fields...)
			ctx = platformlogging.WithLogger(ctx, logger)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
