package testserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/domain/project"
	"github.com/rpggio/statuspage/internal/hydrate"
	"github.com/rpggio/statuspage/internal/localstore"
	"github.com/rpggio/statuspage/internal/metrics"
	"github.com/rpggio/statuspage/internal/mirror"
	"github.com/rpggio/statuspage/internal/snapshot"
	"github.com/rpggio/statuspage/internal/sqlite"
	"github.com/rpggio/statuspage/internal/storage"
	"github.com/rpggio/statuspage/internal/tenant"
	"github.com/rpggio/statuspage/internal/transport"
)

// Options configures a TestServer.
type Options struct {
	Token string
	// DataDir defaults to a fresh temp dir.
	DataDir string
	// Remote enables replication against the given database.
	Remote *sqlite.DB
	// RemoteDSN opens the remote the way cmd/server does. A failure leaves
	// the server running local-only and is reported in RemoteErr.
	RemoteDSN string
	Now       func() time.Time
}

// TestServer is the full server stack behind an httptest server.
type TestServer struct {
	Server    *httptest.Server
	Store     *localstore.Store
	Storage   *storage.FileStorage
	Queue     *mirror.Queue
	Mirror    *mirror.Mirror
	Hydration hydrate.Outcome
	RemoteErr error
	Token     string
}

// NewRemote opens an in-memory remote document store.
func NewRemote(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// New boots the stack in the same order as cmd/server.
func New(t *testing.T, opts Options) *TestServer {
	t.Helper()
	if opts.DataDir == "" {
		opts.DataDir = t.TempDir()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	}

	base, err := storage.NewFileStorage(opts.DataDir)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	ts := &TestServer{Storage: base, Token: opts.Token}

	if opts.Remote == nil && opts.RemoteDSN != "" {
		db, err := sqlite.Open(opts.RemoteDSN)
		if err != nil {
			ts.RemoteErr = err
		} else {
			t.Cleanup(func() { _ = db.Close() })
			opts.Remote = db
		}
	}

	st := storage.Storage(base)
	if opts.Remote != nil {
		ts.Queue = mirror.NewQueue(64, nil, m)
		ts.Queue.Start()
		ts.Mirror = mirror.New(sqlite.NewDocumentStore(opts.Remote), ts.Queue, mirror.Options{Metrics: m, Now: opts.Now})
		ts.Hydration = hydrate.New(ts.Mirror, base, hydrate.Options{Metrics: m, Now: opts.Now}).Run(context.Background())
		st = storage.Wrap(base, localstore.DefaultDataKey, localstore.DefaultAuditKey, ts.Mirror)
	}

	ts.Store = localstore.New(st, localstore.Options{Now: opts.Now})
	if ts.Store.Load().Dirty {
		require.NoError(t, ts.Store.Save())
	}

	auditSvc := audit.NewService(localstore.NewAuditLog(st, localstore.DefaultAuditKey), nil)
	deps := transport.Deps{
		Projects:  project.NewService(ts.Store, auditSvc, nil, nil),
		Hosts:     tenant.NewResolver(ts.Store),
		Projector: snapshot.NewProjector(opts.Now),
		Audit:     auditSvc,
		Metrics:   m,
		Gatherer:  registry,
	}
	if opts.Token != "" {
		deps.Auth = transport.AuthMiddleware(transport.NewTokenResolver(opts.Token, ts.Store))
	}
	ts.Server = httptest.NewServer(transport.NewServer(deps))

	t.Cleanup(func() {
		ts.Server.Close()
		if ts.Queue != nil {
			_ = ts.Queue.Close(context.Background())
		}
	})
	return ts
}

// Sync waits until every queued replication task has run.
func (ts *TestServer) Sync(t *testing.T) {
	t.Helper()
	if ts.Queue == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.Queue.Flush(ctx))
}
