package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zenGate-Global/palmyra-reports/platform/go/tenant"
)

// HeaderTenantEmail carries the self-asserted tenant email on every API request.
const HeaderTenantEmail = "X-Tenant-Email"

// defaultMaxCachedSessions bounds the session cache when Config.MaxEntries is unset.
const defaultMaxCachedSessions = 10000

// Config controls middleware behavior.
type Config struct {
	// Optional in-memory TTL cache of resolved sessions; zero disables caching.
	CacheTTL time.Duration
	// MaxEntries caps the number of cached sessions. Once full, new emails are
	// resolved per request until entries expire.
	MaxEntries int
}

// sessionCache is a TTL cache of resolved sessions with a hard size cap.
type sessionCache struct {
	entries    *cache.Cache
	maxEntries int
}

func newSessionCache(cfg Config) *sessionCache {
	if cfg.CacheTTL <= 0 {
		return nil
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxCachedSessions
	}
	return &sessionCache{
		entries:    cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		maxEntries: maxEntries,
	}
}

func (c *sessionCache) get(email string) (tenant.Session, bool) {
	if c == nil {
		return tenant.Session{}, false
	}
	cached, ok := c.entries.Get(email)
	if !ok {
		return tenant.Session{}, false
	}
	return cached.(tenant.Session), true
}

func (c *sessionCache) put(email string, session tenant.Session) {
	if c == nil {
		return
	}
	if c.entries.ItemCount() >= c.maxEntries {
		c.entries.DeleteExpired()
		if c.entries.ItemCount() >= c.maxEntries {
			return
		}
	}
	c.entries.SetDefault(email, session)
}

func (c *sessionCache) size() int {
	if c == nil {
		return 0
	}
	return c.entries.ItemCount()
}

// WithTenantSession resolves the tenant email header into a tenant.Session and attaches it to the context.
// Requests without a usable email are rejected with 401.
func WithTenantSession(cfg Config) func(http.Handler) http.Handler {
	sessions := newSessionCache(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			email := r.Header.Get(HeaderTenantEmail)
			if email == "" {
				writeUnauthorized(w, "tenant email header is required")
				return
			}

			if cached, ok := sessions.get(email); ok {
				next.ServeHTTP(w, r.WithContext(tenant.WithSession(r.Context(), cached)))
				return
			}

			session, err := tenant.NewSession(email)
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}

			sessions.put(email, session)

			ctx := tenant.WithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":  "Unauthorized",
		"status": http.StatusUnauthorized,
		"detail": detail,
	})
}
