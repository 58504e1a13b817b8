package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/statuspage/internal/model"
	"github.com/stretchr/testify/require"
)

type testResolver struct {
	tokenToUser map[string]*model.User
	err         error
}

func (r *testResolver) ResolveUser(_ context.Context, token string) (*model.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	user, ok := r.tokenToUser[token]
	if !ok {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func TestAuthMiddleware(t *testing.T) {
	resolver := &testResolver{tokenToUser: map[string]*model.User{"token": {ID: 1, Username: "admin"}}}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "admin", user.Username)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_Invalid(t *testing.T) {
	resolver := &testResolver{err: errors.New("invalid")}

	handler := AuthMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

type datasetViewer struct {
	d *model.Dataset
}

func (v datasetViewer) View(fn func(d *model.Dataset)) { fn(v.d) }

func TestTokenResolver(t *testing.T) {
	ctx := context.Background()

	r := NewTokenResolver("secret", datasetViewer{d: &model.Dataset{Users: []*model.User{
		{ID: 5, Username: "editor", Role: model.RoleEditor},
		{ID: 7, Username: "root", Role: model.RoleAdmin, PasswordHash: "hash"},
	}}})
	user, err := r.ResolveUser(ctx, "secret")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.Empty(t, user.PasswordHash)

	_, err = r.ResolveUser(ctx, "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)

	user, err = NewTokenResolver("secret", datasetViewer{d: &model.Dataset{}}).ResolveUser(ctx, "secret")
	require.NoError(t, err)
	require.Equal(t, "api-token", user.Username)

	_, err = NewTokenResolver("", nil).ResolveUser(ctx, "")
	require.ErrorIs(t, err, ErrUnauthorized)
}
