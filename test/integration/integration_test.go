package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/hydrate"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/testserver"
)

const token = "integration-token"

type summary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func call(t *testing.T, ts *testserver.TestServer, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.Token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func createProject(t *testing.T, ts *testserver.TestServer, name string) summary {
	t.Helper()
	code, body := call(t, ts, http.MethodPost, "/api/v1/admin/projects", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	var out summary
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func listProjects(t *testing.T, ts *testserver.TestServer) []summary {
	t.Helper()
	code, body := call(t, ts, http.MethodGet, "/api/v1/projects", "")
	require.Equal(t, http.StatusOK, code)
	var out []summary
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestIntegration_FirstBootSeedsRemoteWithDefaults(t *testing.T) {
	remote := testserver.NewRemote(t)
	ts := testserver.New(t, testserver.Options{Token: token, Remote: remote})
	require.Equal(t, hydrate.OutcomeEmpty, ts.Hydration)

	ts.Sync(t)

	d, ok, err := ts.Mirror.LoadDataset(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, d.Projects, 3)
	require.Equal(t, "default", d.Projects[0].Slug)
}

func TestIntegration_AdminWritesReachRemote(t *testing.T) {
	ctx := context.Background()
	remote := testserver.NewRemote(t)
	ts := testserver.New(t, testserver.Options{Token: token, Remote: remote})

	created := createProject(t, ts, "Acme Cloud")
	require.Equal(t, "acme-cloud", created.Slug)

	code, body := call(t, ts, http.MethodPut, "/api/v1/admin/projects/"+strconv.FormatInt(created.ID, 10)+"/domains",
		`{"customDomain":"Status.Acme.Example","redirectDomains":["old.acme.example"]}`)
	require.Equal(t, http.StatusOK, code, string(body))

	ts.Sync(t)

	raw, err := ts.Mirror.PublicBySlug(ctx, "acme-cloud")
	require.NoError(t, err)
	var public map[string]any
	require.NoError(t, json.Unmarshal(raw, &public))
	require.Equal(t, "status.acme.example", public["customDomain"])
	require.Equal(t, []any{"old.acme.example"}, public["redirectDomains"])
	require.NotContains(t, public, "subscribers")

	entries, err := ts.Mirror.LoadAudit(ctx, 100)
	require.NoError(t, err)
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.Action)
	}
	require.ElementsMatch(t, []string{audit.ActionProjectCreate, audit.ActionSettingsUpdate}, actions)

	stats := ts.Queue.Stats()
	require.Zero(t, stats.Failed)
	require.Zero(t, stats.Dropped)

	code, _ = call(t, ts, http.MethodDelete, "/api/v1/admin/projects/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, http.StatusOK, code)
	ts.Sync(t)

	d, ok, err := ts.Mirror.LoadDataset(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, d.ProjectByID(created.ID), "deleted project must be removed remotely")
	_, err = ts.Mirror.PublicBySlug(ctx, "acme-cloud")
	require.Error(t, err)
}

func TestIntegration_ColdStartHydratesEmptyDisk(t *testing.T) {
	remote := testserver.NewRemote(t)
	first := testserver.New(t, testserver.Options{Token: token, Remote: remote})
	created := createProject(t, first, "Acme Cloud")
	first.Sync(t)

	second := testserver.New(t, testserver.Options{Token: token, Remote: remote})
	require.Equal(t, hydrate.OutcomeHydrated, second.Hydration)

	projects := listProjects(t, second)
	require.Len(t, projects, 4)
	require.Equal(t, created.Slug, projects[3].Slug)

	code, body := call(t, second, http.MethodGet, "/api/v1/admin/audit", "")
	require.Equal(t, http.StatusOK, code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, audit.ActionProjectCreate, entries[0]["action"])

	// Ids issued after hydration continue past the hydrated ones.
	next := createProject(t, second, "Widgets")
	require.Greater(t, next.ID, created.ID)
}

func TestIntegration_ExistingDiskSeedsEmptyRemote(t *testing.T) {
	dir := t.TempDir()
	local := testserver.New(t, testserver.Options{Token: token, DataDir: dir})
	created := createProject(t, local, "Acme Cloud")
	require.Nil(t, local.Mirror)

	remote := testserver.NewRemote(t)
	synced := testserver.New(t, testserver.Options{Token: token, DataDir: dir, Remote: remote})
	require.Equal(t, hydrate.OutcomeSeeded, synced.Hydration)

	d, ok, err := synced.Mirror.LoadDataset(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, d.ProjectByID(created.ID))

	entries, err := synced.Mirror.LoadAudit(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestIntegration_UnopenableRemoteStillServes(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	ts := testserver.New(t, testserver.Options{Token: token, RemoteDSN: filepath.Join(blocker, "remote.db")})
	require.Error(t, ts.RemoteErr)
	require.Nil(t, ts.Mirror)
	require.Nil(t, ts.Queue)

	require.Len(t, listProjects(t, ts), 3)
	created := createProject(t, ts, "Acme Cloud")
	require.Equal(t, "acme-cloud", created.Slug)
	require.Len(t, listProjects(t, ts), 4)
}

func TestIntegration_LocalOnlyRestartKeepsData(t *testing.T) {
	dir := t.TempDir()
	first := testserver.New(t, testserver.Options{Token: token, DataDir: dir})
	createProject(t, first, "Acme Cloud")
	code, _ := call(t, first, http.MethodPut, "/api/v1/admin/projects/1/domains", `{"customDomain":"status.elite.example"}`)
	require.Equal(t, http.StatusOK, code)

	second := testserver.New(t, testserver.Options{Token: token, DataDir: dir})
	require.Len(t, listProjects(t, second), 4)
	second.Store.View(func(d *model.Dataset) {
		require.Equal(t, "status.elite.example", d.ProjectByID(1).Settings.CustomDomain)
	})

	req, err := http.NewRequest(http.MethodGet, second.Server.URL+"/api/v1/project-context", nil)
	require.NoError(t, err)
	req.Host = "status.elite.example"
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, true, out["matched"])
	require.Equal(t, "default", out["slug"])
}
