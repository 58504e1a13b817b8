// Package mirror replicates the local dataset and audit trail into the
// remote document store and reads them back for hydration.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rpggio/statuspage/internal/docstore"
	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/localstore"
	"github.com/rpggio/statuspage/internal/metrics"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/snapshot"
)

// Remote collection layout.
const (
	CollectionMeta     = "status_meta"
	CollectionUsers    = "status_users"
	CollectionProjects = "status_projects"
	CollectionPublic   = "status_public_projects"
	CollectionAudit    = "status_audit"

	MetaDocID = "main"
)

const (
	// DefaultBatchSize keeps batches well under docstore.MaxBatchOps.
	DefaultBatchSize = 400
	// DefaultAuditReplayLimit bounds how many audit entries LoadAudit reads.
	DefaultAuditReplayLimit = 5000
)

// Task names reported in logs and metrics.
const (
	TaskPersistAll  = "persist_all"
	TaskAppendAudit = "append_audit"
)

// Meta is the remote meta document.
type Meta struct {
	NextID             int64                              `json:"nextId"`
	SecurityMigrations map[string]model.SecurityMigration `json:"securityMigrations"`
	SchemaVersion      int                                `json:"schemaVersion"`
	UpdatedAt          string                             `json:"updatedAt"`
}

// Result counts the remote mutations of one PersistAll.
type Result struct {
	Upserts int
	Deletes int
	Commits int
}

// Options configures a Mirror.
type Options struct {
	BatchSize int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
	NewID     func() string
}

// Mirror keeps the remote store an exact copy of the local dataset. Writes go
// through its queue so at most one remote mutation runs at a time.
type Mirror struct {
	store     docstore.Store
	queue     *Queue
	projector *snapshot.Projector
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string

	auditMu      sync.Mutex
	pendingAudit []audit.Entry
}

// New creates a mirror over store that schedules work on queue.
func New(store docstore.Store, queue *Queue, opts Options) *Mirror {
	if opts.BatchSize <= 0 || opts.BatchSize > docstore.MaxBatchOps {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewUnregistered()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Mirror{
		store:     store,
		queue:     queue,
		projector: snapshot.NewProjector(opts.Now),
		batchSize: opts.BatchSize,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       opts.Now,
		newID:     opts.NewID,
	}
}

// Queue returns the task queue the mirror writes through.
func (m *Mirror) Queue() *Queue {
	return m.queue
}

// EnqueueSync schedules fn behind every previously scheduled remote task.
func (m *Mirror) EnqueueSync(name string, fn func(ctx context.Context) error) bool {
	return m.queue.Enqueue(Task{Name: name, Run: fn})
}

// ReplicateDataset schedules a PersistAll of the encoded dataset.
func (m *Mirror) ReplicateDataset(data []byte) {
	m.EnqueueSync(TaskPersistAll, func(ctx context.Context) error {
		var d model.Dataset
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("decoding dataset for replication: %w", err)
		}
		_, err := m.PersistAll(ctx, &d)
		return err
	})
}

// ReplicateAudit buffers newline-delimited entries and schedules a task that
// appends everything buffered so far. Entries whose task was dropped by a
// full queue are picked up by the next audit task that runs.
func (m *Mirror) ReplicateAudit(lines []byte) {
	entries := localstore.ParseAuditLines(lines)
	if len(entries) == 0 {
		return
	}
	m.auditMu.Lock()
	m.pendingAudit = append(m.pendingAudit, entries...)
	m.auditMu.Unlock()

	m.EnqueueSync(TaskAppendAudit, m.appendPendingAudit)
}

func (m *Mirror) appendPendingAudit(ctx context.Context) error {
	m.auditMu.Lock()
	entries := m.pendingAudit
	m.pendingAudit = nil
	m.auditMu.Unlock()

	if len(entries) == 0 {
		return nil
	}
	return m.AppendAudit(ctx, entries)
}

type pendingOp struct {
	collection string
	id         string
	data       []byte
	delete     bool
}

// PersistAll makes every remote collection match d. Unchanged documents are
// not rewritten and remote documents missing from d are deleted.
func (m *Mirror) PersistAll(ctx context.Context, d *model.Dataset) (Result, error) {
	desired, err := m.documents(d)
	if err != nil {
		return Result{}, err
	}

	var (
		ops    []pendingOp
		result Result
	)
	for _, collection := range []string{CollectionMeta, CollectionUsers, CollectionProjects, CollectionPublic} {
		existing, err := m.store.List(ctx, collection)
		if err != nil {
			return result, fmt.Errorf("listing %s: %w", collection, err)
		}
		current := make(map[string][]byte, len(existing))
		for _, doc := range existing {
			current[doc.ID] = doc.Data
		}

		want := desired[collection]
		ignore := collection == CollectionMeta || collection == CollectionPublic
		for _, doc := range want {
			if prev, ok := current[doc.ID]; ok && sameDocument(prev, doc.Data, ignore) {
				continue
			}
			ops = append(ops, pendingOp{collection: collection, id: doc.ID, data: doc.Data})
			result.Upserts++
		}

		keep := make(map[string]bool, len(want))
		for _, doc := range want {
			keep[doc.ID] = true
		}
		for _, doc := range existing {
			if !keep[doc.ID] {
				ops = append(ops, pendingOp{collection: collection, id: doc.ID, delete: true})
				result.Deletes++
			}
		}
	}

	commits, err := m.commit(ctx, ops)
	result.Commits = commits
	if err != nil {
		return result, err
	}
	m.logger.Debug("dataset replicated", "upserts", result.Upserts, "deletes", result.Deletes, "commits", result.Commits)
	return result, nil
}

// AppendAudit adds one remote document per entry. Existing entries are
// never touched.
func (m *Mirror) AppendAudit(ctx context.Context, entries []audit.Entry) error {
	ops := make([]pendingOp, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding audit entry: %w", err)
		}
		ops = append(ops, pendingOp{collection: CollectionAudit, id: m.newID(), data: data})
	}
	_, err := m.commit(ctx, ops)
	return err
}

func (m *Mirror) commit(ctx context.Context, ops []pendingOp) (int, error) {
	commits := 0
	for start := 0; start < len(ops); start += m.batchSize {
		end := min(start+m.batchSize, len(ops))
		batch := m.store.NewBatch()
		for _, op := range ops[start:end] {
			if op.delete {
				batch.Delete(op.collection, op.id)
			} else {
				batch.Set(op.collection, op.id, op.data)
			}
		}
		if err := batch.Commit(ctx); err != nil {
			return commits, fmt.Errorf("committing batch %d: %w", commits+1, err)
		}
		commits++
		m.metrics.BatchCommits.Inc()
		for _, op := range ops[start:end] {
			kind := "set"
			if op.delete {
				kind = "delete"
			}
			m.metrics.DocumentsWritten.WithLabelValues(op.collection, kind).Inc()
		}
	}
	return commits, nil
}

func (m *Mirror) documents(d *model.Dataset) (map[string][]docstore.Document, error) {
	out := map[string][]docstore.Document{}
	add := func(collection string, id int64, v any) error {
		if id <= 0 {
			return nil
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s/%d: %w", collection, id, err)
		}
		out[collection] = append(out[collection], docstore.Document{ID: strconv.FormatInt(id, 10), Data: data})
		return nil
	}

	meta, err := json.Marshal(Meta{
		NextID:             d.NextID,
		SecurityMigrations: d.SecurityMigrations,
		SchemaVersion:      d.SchemaVersion,
		UpdatedAt:          model.Timestamp(m.now()),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding meta: %w", err)
	}
	out[CollectionMeta] = []docstore.Document{{ID: MetaDocID, Data: meta}}

	for _, u := range d.Users {
		if u == nil {
			continue
		}
		if err := add(CollectionUsers, u.ID, u); err != nil {
			return nil, err
		}
	}
	for _, p := range d.Projects {
		if p == nil {
			continue
		}
		if err := add(CollectionProjects, p.ID, p); err != nil {
			return nil, err
		}
		public, err := m.projector.Project(p)
		if err != nil {
			return nil, err
		}
		if err := add(CollectionPublic, p.ID, public); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sameDocument compares two JSON documents structurally, optionally ignoring
// the top-level updatedAt stamp.
func sameDocument(a, b []byte, ignoreUpdatedAt bool) bool {
	if !ignoreUpdatedAt && bytes.Equal(a, b) {
		return true
	}
	var da, db any
	if json.Unmarshal(a, &da) != nil || json.Unmarshal(b, &db) != nil {
		return false
	}
	if ignoreUpdatedAt {
		if ma, ok := da.(map[string]any); ok {
			delete(ma, "updatedAt")
		}
		if mb, ok := db.(map[string]any); ok {
			delete(mb, "updatedAt")
		}
	}
	return reflect.DeepEqual(da, db)
}

// LoadDataset reads the remote dataset. It reports false when the remote
// holds no meta document, users or projects.
func (m *Mirror) LoadDataset(ctx context.Context) (*model.Dataset, bool, error) {
	var (
		metaRaw  []byte
		users    []docstore.Document
		projects []docstore.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := m.store.Get(gctx, CollectionMeta, MetaDocID)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading meta: %w", err)
		}
		metaRaw = raw
		return nil
	})
	g.Go(func() error {
		docs, err := m.store.List(gctx, CollectionUsers)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}
		users = docs
		return nil
	})
	g.Go(func() error {
		docs, err := m.store.List(gctx, CollectionProjects)
		if err != nil {
			return fmt.Errorf("listing projects: %w", err)
		}
		projects = docs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	if metaRaw == nil && len(users) == 0 && len(projects) == 0 {
		return nil, false, nil
	}

	d := &model.Dataset{Users: []*model.User{}, Projects: []*model.Project{}}
	if metaRaw != nil {
		var meta Meta
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return nil, false, fmt.Errorf("decoding meta: %w", err)
		}
		d.NextID = meta.NextID
		d.SecurityMigrations = meta.SecurityMigrations
		d.SchemaVersion = meta.SchemaVersion
	}
	for _, doc := range users {
		var u model.User
		if err := json.Unmarshal(doc.Data, &u); err != nil {
			return nil, false, fmt.Errorf("decoding user %s: %w", doc.ID, err)
		}
		d.Users = append(d.Users, &u)
	}
	for _, doc := range projects {
		var p model.Project
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			return nil, false, fmt.Errorf("decoding project %s: %w", doc.ID, err)
		}
		d.Projects = append(d.Projects, &p)
	}
	sort.SliceStable(d.Users, func(i, j int) bool { return d.Users[i].ID < d.Users[j].ID })
	sort.SliceStable(d.Projects, func(i, j int) bool { return d.Projects[i].ID < d.Projects[j].ID })
	return d, true, nil
}

// LoadAudit returns up to limit remote audit entries, oldest first.
func (m *Mirror) LoadAudit(ctx context.Context, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = DefaultAuditReplayLimit
	}
	docs, err := m.store.Query(ctx, CollectionAudit, docstore.Query{OrderBy: "at", Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("querying audit: %w", err)
	}
	entries := make([]audit.Entry, 0, len(docs))
	for _, doc := range docs {
		var entry audit.Entry
		if err := json.Unmarshal(doc.Data, &entry); err != nil {
			m.logger.Warn("skipping malformed remote audit entry", "id", doc.ID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// IsInitialized reports whether the remote store was ever seeded: a meta
// document or any public projection exists.
func (m *Mirror) IsInitialized(ctx context.Context) (bool, error) {
	_, err := m.store.Get(ctx, CollectionMeta, MetaDocID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return false, fmt.Errorf("reading meta: %w", err)
	}
	docs, err := m.store.Query(ctx, CollectionPublic, docstore.Query{Limit: 1})
	if err != nil {
		return false, fmt.Errorf("querying public projects: %w", err)
	}
	return len(docs) > 0, nil
}

// PublicBySlug reads one public projection by slug straight from the
// remote store.
func (m *Mirror) PublicBySlug(ctx context.Context, slug string) ([]byte, error) {
	docs, err := m.store.Query(ctx, CollectionPublic, docstore.Query{
		Filters: []docstore.Filter{{Field: "slug", Op: docstore.OpEqual, Value: slug}},
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("querying public projects: %w", err)
	}
	if len(docs) == 0 {
		return nil, docstore.ErrNotFound
	}
	return docs[0].Data, nil
}
