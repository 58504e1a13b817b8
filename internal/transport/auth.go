package transport

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/rpggio/statuspage/internal/model"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type userKey struct{}

// UserResolver resolves the acting user from a bearer token.
type UserResolver interface {
	ResolveUser(ctx context.Context, token string) (*model.User, error)
}

// UserFromContext returns the authenticated user from context, if present.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey{}).(*model.User)
	return user, ok
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			user, err := resolver.ResolveUser(r.Context(), token)
			if err != nil || user == nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Viewer gives read access to the dataset.
type Viewer interface {
	View(fn func(d *model.Dataset))
}

// TokenResolver accepts one static admin token. Requests act as the first
// admin user of the dataset, or as a synthetic token user when none exists.
type TokenResolver struct {
	token string
	store Viewer
}

// NewTokenResolver creates a resolver for token.
func NewTokenResolver(token string, store Viewer) *TokenResolver {
	return &TokenResolver{token: token, store: store}
}

func (r *TokenResolver) ResolveUser(_ context.Context, token string) (*model.User, error) {
	if r.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(r.token)) != 1 {
		return nil, ErrUnauthorized
	}
	user := &model.User{Username: "api-token", Role: model.RoleAdmin}
	if r.store == nil {
		return user, nil
	}
	r.store.View(func(d *model.Dataset) {
		for _, u := range d.Users {
			if u != nil && u.Role == model.RoleAdmin {
				user = &model.User{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
				return
			}
		}
	})
	return user, nil
}
