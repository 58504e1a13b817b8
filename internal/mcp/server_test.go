package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/statuspage/internal/dnscheck"
	"github.com/rpggio/statuspage/internal/docstore"
	"github.com/rpggio/statuspage/internal/domain/project"
	"github.com/rpggio/statuspage/internal/localstore"
	"github.com/rpggio/statuspage/internal/mirror"
	"github.com/rpggio/statuspage/internal/mocks"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/snapshot"
	"github.com/rpggio/statuspage/internal/storage"
	"github.com/rpggio/statuspage/internal/tenant"
)

type fakeRemote map[string][]byte

func (f fakeRemote) PublicBySlug(_ context.Context, slug string) ([]byte, error) {
	raw, ok := f[slug]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return raw, nil
}

type fixture struct {
	store     *localstore.Store
	validator *mocks.DomainValidator
	queue     *mirror.Queue
	services  Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	now := func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	store := localstore.New(st, localstore.Options{Now: now})
	store.Load()

	queue := mirror.NewQueue(8, nil, nil)
	queue.Start()
	t.Cleanup(func() { _ = queue.Close(context.Background()) })

	validator := &mocks.DomainValidator{}
	return &fixture{
		store:     store,
		validator: validator,
		queue:     queue,
		services: Services{
			Projects:    project.NewService(store, nil, validator, nil),
			Hosts:       tenant.NewResolver(store),
			Projector:   snapshot.NewProjector(now),
			Domains:     validator,
			Replication: queue,
			Remote: fakeRemote{
				"default": []byte(`{"id":1,"slug":"default","overallStatus":"major_outage"}`),
			},
		},
	}
}

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(cfg)
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	if args == nil {
		args = map[string]any{}
	}
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed: %+v", name, res.Content)
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func callToolFails(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return
	}
	require.True(t, res.IsError, "expected %s to fail", name)
}

func TestServer_ListsTools(t *testing.T) {
	f := newFixture(t)
	session := connect(t, Config{Services: f.services})

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	require.ElementsMatch(t, []string{
		"list_projects", "resolve_host", "check_domain", "get_public_snapshot", "replication_status",
	}, names)
}

func TestServer_CheckDomainOmittedWithoutValidator(t *testing.T) {
	f := newFixture(t)
	f.services.Domains = nil
	session := connect(t, Config{Services: f.services})

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	for _, tool := range res.Tools {
		require.NotEqual(t, "check_domain", tool.Name)
	}
}

func TestTool_ListProjects(t *testing.T) {
	f := newFixture(t)
	session := connect(t, Config{Services: f.services})

	var out listProjectsOutput
	callTool(t, session, "list_projects", nil, &out)
	require.Len(t, out.Projects, 3)
	require.Equal(t, "default", out.Projects[0].Slug)
	require.Equal(t, "elite-payments", out.Projects[2].Slug)
}

func TestTool_ResolveHost(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Mutate(func(d *model.Dataset) error {
		d.ProjectByID(3).Settings.CustomDomain = "status.payments.example"
		d.ProjectByID(3).Settings.RedirectDomains = []string{"old.payments.example"}
		return nil
	}))
	session := connect(t, Config{Services: f.services})

	var out resolveHostOutput
	callTool(t, session, "resolve_host", map[string]any{"host": "Old.Payments.Example:443"}, &out)
	require.True(t, out.Found)
	require.True(t, out.Redirect)
	require.Equal(t, "old.payments.example", out.Host)
	require.Equal(t, "status.payments.example", out.Primary)
	require.Equal(t, "elite-payments", out.Slug)
	require.Equal(t, int64(3), out.ProjectID)

	out = resolveHostOutput{}
	callTool(t, session, "resolve_host", map[string]any{"host": "status.payments.example"}, &out)
	require.True(t, out.Found)
	require.False(t, out.Redirect)

	out = resolveHostOutput{}
	callTool(t, session, "resolve_host", map[string]any{"host": "unknown.example"}, &out)
	require.False(t, out.Found)
	require.Equal(t, "unknown.example", out.Host)
}

func TestTool_CheckDomain(t *testing.T) {
	f := newFixture(t)
	f.validator.On("Target").Return("status.example.net")
	f.validator.On("Validate", mock.Anything, "status.acme.com", "status.example.net").Return(dnscheck.Result{
		Domain:           "status.acme.com",
		ExpectedTarget:   "status.example.net",
		ValidFormat:      true,
		Resolves:         true,
		PointsToExpected: model.Bool(true),
		CNAMERecords:     []string{"status.example.net"},
		ARecords:         []string{},
		AAAARecords:      []string{},
		Status:           dnscheck.StatusOK,
		Notes:            []string{},
	})
	session := connect(t, Config{Services: f.services})

	var out checkDomainOutput
	callTool(t, session, "check_domain", map[string]any{"domain": "status.acme.com"}, &out)
	require.Equal(t, dnscheck.StatusOK, out.Result.Status)
	require.NotNil(t, out.Result.PointsToExpected)
	require.True(t, *out.Result.PointsToExpected)
	f.validator.AssertExpectations(t)
}

func TestTool_GetPublicSnapshot(t *testing.T) {
	f := newFixture(t)
	session := connect(t, Config{Services: f.services})

	var out struct {
		Source   string         `json:"source"`
		Snapshot map[string]any `json:"snapshot"`
	}
	callTool(t, session, "get_public_snapshot", map[string]any{"slug": "elite-payments"}, &out)
	require.Equal(t, SourceLocal, out.Source)
	require.Equal(t, "elite-payments", out.Snapshot["slug"])
	require.Equal(t, model.StatusOperational, out.Snapshot["overallStatus"])
	require.NotContains(t, out.Snapshot, "subscribers")

	callTool(t, session, "get_public_snapshot", map[string]any{"slug": "default", "source": "remote"}, &out)
	require.Equal(t, SourceRemote, out.Source)
	require.Equal(t, "major_outage", out.Snapshot["overallStatus"])

	callToolFails(t, session, "get_public_snapshot", map[string]any{"slug": "missing"})
	callToolFails(t, session, "get_public_snapshot", map[string]any{"slug": "missing", "source": "remote"})
	callToolFails(t, session, "get_public_snapshot", map[string]any{"slug": "default", "source": "tape"})
}

func TestTool_GetPublicSnapshotRemoteDisabled(t *testing.T) {
	f := newFixture(t)
	f.services.Remote = nil
	session := connect(t, Config{Services: f.services})

	callToolFails(t, session, "get_public_snapshot", map[string]any{"slug": "default", "source": "remote"})
}

func TestTool_ReplicationStatus(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.queue.Enqueue(mirror.Task{Name: "persist_all", Run: func(context.Context) error { return nil }}))
	require.True(t, f.queue.Enqueue(mirror.Task{Name: "persist_all", Run: func(context.Context) error { return errors.New("remote down") }}))
	require.NoError(t, f.queue.Flush(context.Background()))
	session := connect(t, Config{Services: f.services})

	var out replicationStatusOutput
	callTool(t, session, "replication_status", nil, &out)
	require.True(t, out.Enabled)
	require.NotNil(t, out.Stats)
	require.Equal(t, int64(1), out.Stats.Succeeded)
	require.Equal(t, int64(1), out.Stats.Failed)
	require.Contains(t, out.Stats.LastError, "remote down")

	f.services.Replication = nil
	session = connect(t, Config{Services: f.services})
	out = replicationStatusOutput{}
	callTool(t, session, "replication_status", nil, &out)
	require.False(t, out.Enabled)
	require.Nil(t, out.Stats)
}

func TestServer_ReadsDocs(t *testing.T) {
	f := newFixture(t)
	session := connect(t, Config{Services: f.services})

	res, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "statuspage://docs/domains"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "308")
}

type staticUsers map[string]*model.User

func (s staticUsers) ResolveUser(_ context.Context, token string) (*model.User, error) {
	if user, ok := s[token]; ok {
		return user, nil
	}
	return nil, errors.New("unknown token")
}

func TestServer_AuthRejectsCallsWithoutToken(t *testing.T) {
	f := newFixture(t)
	session := connect(t, Config{
		Services: f.services,
		Auth:     staticUsers{"secret": {ID: 1, Email: "ops@example.com", Role: model.RoleAdmin}},
	})

	callToolFails(t, session, "list_projects", map[string]any{})
}
