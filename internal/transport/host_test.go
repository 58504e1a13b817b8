package transport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/tenant"
	"github.com/stretchr/testify/require"
)

type stubHosts map[string]tenant.Match

func (s stubHosts) ByHost(host string) (tenant.Match, error) {
	if host == "broken.example" {
		return tenant.Match{}, errors.New("store unavailable")
	}
	m, ok := s[host]
	if !ok {
		return tenant.Match{}, tenant.ErrNotFound
	}
	return m, nil
}

func TestHostMiddleware(t *testing.T) {
	hosts := stubHosts{
		"old.example": {Project: &model.Project{ID: 1}, Host: "old.example", Primary: "new.example", Redirect: true},
		"new.example": {Project: &model.Project{ID: 1, Slug: "one"}, Host: "new.example", Primary: "new.example"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen *tenant.Match
	handler := HostMiddleware(hosts, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = nil
		if m, ok := MatchFromContext(r.Context()); ok {
			seen = &m
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name     string
		host     string
		path     string
		code     int
		location string
		matched  bool
	}{
		{"redirect", "old.example", "/p/widgets?x=1", http.StatusPermanentRedirect, "https://new.example/p/widgets?x=1", false},
		{"primary", "new.example", "/", http.StatusNoContent, "", true},
		{"unknown", "other.example", "/", http.StatusNoContent, "", false},
		{"error falls through", "broken.example", "/", http.StatusNoContent, "", false},
		{"health skipped", "old.example", "/health", http.StatusNoContent, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://"+tc.host+tc.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tc.code, rec.Code)
			require.Equal(t, tc.location, rec.Header().Get("Location"))
			if tc.code == http.StatusNoContent {
				require.Equal(t, tc.matched, seen != nil)
			}
		})
	}
}
