package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rpggio/statuspage/internal/tenant"
)

type matchKey struct{}

// HostResolver resolves request hosts to projects.
type HostResolver interface {
	ByHost(host string) (tenant.Match, error)
}

// MatchFromContext returns the project matched by request host, if any.
func MatchFromContext(ctx context.Context) (tenant.Match, bool) {
	m, ok := ctx.Value(matchKey{}).(tenant.Match)
	return m, ok
}

// HostMiddleware resolves the request host. Redirect domains answer with a
// permanent redirect to the primary domain; other matches are stored in the
// request context. Unmatched hosts pass through untouched.
func HostMiddleware(resolver HostResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			match, err := resolver.ByHost(r.Host)
			if err != nil {
				if !errors.Is(err, tenant.ErrNotFound) {
					logger.Warn("host resolution failed", "host", r.Host, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if match.Redirect {
				http.Redirect(w, r, tenant.RedirectURL(r, match.Primary), http.StatusPermanentRedirect)
				return
			}

			ctx := context.WithValue(r.Context(), matchKey{}, match)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
