// Package hydrate reconciles the local data files with the remote store when
// a process starts.
package hydrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/rpggio/statuspage/internal/domain/audit"
	"github.com/rpggio/statuspage/internal/localstore"
	"github.com/rpggio/statuspage/internal/metrics"
	"github.com/rpggio/statuspage/internal/mirror"
	"github.com/rpggio/statuspage/internal/model"
	"github.com/rpggio/statuspage/internal/storage"
)

// Outcome names what a hydration run did.
type Outcome string

const (
	// OutcomeHydrated means remote data replaced the local files.
	OutcomeHydrated Outcome = "hydrated"
	// OutcomeSeeded means the uninitialized remote store was filled from the
	// local file.
	OutcomeSeeded Outcome = "seeded"
	// OutcomeEmpty means neither side had data.
	OutcomeEmpty Outcome = "empty"
	// OutcomeFailed means an error was logged and local state was kept.
	OutcomeFailed Outcome = "failed"
)

// Remote is the part of the mirror the hydrator talks to.
type Remote interface {
	LoadDataset(ctx context.Context) (*model.Dataset, bool, error)
	LoadAudit(ctx context.Context, limit int) ([]audit.Entry, error)
	IsInitialized(ctx context.Context) (bool, error)
	PersistAll(ctx context.Context, d *model.Dataset) (mirror.Result, error)
	AppendAudit(ctx context.Context, entries []audit.Entry) error
}

// Options configures a Hydrator.
type Options struct {
	DataKey    string
	AuditKey   string
	AuditLimit int
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Hydrator runs the cold start reconciliation. It must write through the
// undecorated storage so hydration itself is not replicated back.
type Hydrator struct {
	remote  Remote
	storage storage.Storage
	opts    Options
}

// New creates a hydrator.
func New(remote Remote, st storage.Storage, opts Options) *Hydrator {
	if opts.DataKey == "" {
		opts.DataKey = localstore.DefaultDataKey
	}
	if opts.AuditKey == "" {
		opts.AuditKey = localstore.DefaultAuditKey
	}
	if opts.AuditLimit <= 0 {
		opts.AuditLimit = mirror.DefaultAuditReplayLimit
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
	return &Hydrator{remote: remote, storage: st, opts: opts}
}

// Run reconciles once. Errors are logged and reported as OutcomeFailed;
// local files are left as they were.
func (h *Hydrator) Run(ctx context.Context) Outcome {
	outcome, err := h.run(ctx)
	if err != nil {
		h.opts.Logger.Error("hydration failed, continuing with local data", "error", err)
		outcome = OutcomeFailed
	} else {
		h.opts.Logger.Info("hydration finished", "outcome", outcome)
	}
	h.opts.Metrics.HydrationsTotal.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (h *Hydrator) run(ctx context.Context) (Outcome, error) {
	remote, ok, err := h.remote.LoadDataset(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("loading remote dataset: %w", err)
	}
	if ok {
		return OutcomeHydrated, h.hydrate(ctx, remote)
	}

	initialized, err := h.remote.IsInitialized(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("checking remote state: %w", err)
	}
	if initialized {
		return OutcomeEmpty, nil
	}
	return h.seed(ctx)
}

func (h *Hydrator) hydrate(ctx context.Context, d *model.Dataset) error {
	data, err := localstore.Encode(d)
	if err != nil {
		return err
	}
	if err := h.storage.Write(h.opts.DataKey, data); err != nil {
		return fmt.Errorf("writing hydrated dataset: %w", err)
	}
	h.opts.Logger.Info("local dataset hydrated from remote", "users", len(d.Users), "projects", len(d.Projects))

	// The dataset is already in place; an audit failure only costs history.
	if err := h.hydrateAudit(ctx); err != nil {
		h.opts.Logger.Warn("audit log hydration failed, keeping local audit log", "error", err)
	}
	return nil
}

func (h *Hydrator) hydrateAudit(ctx context.Context) error {
	entries, err := h.remote.LoadAudit(ctx, h.opts.AuditLimit)
	if err != nil {
		return fmt.Errorf("loading remote audit: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	lines, err := localstore.EncodeAuditLines(entries)
	if err != nil {
		return err
	}
	if err := h.storage.Write(h.opts.AuditKey, lines); err != nil {
		return fmt.Errorf("writing hydrated audit log: %w", err)
	}
	h.opts.Logger.Info("audit log hydrated from remote", "entries", len(entries))
	return nil
}

func (h *Hydrator) seed(ctx context.Context) (Outcome, error) {
	raw, err := h.storage.Read(h.opts.DataKey)
	if errors.Is(err, fs.ErrNotExist) {
		return OutcomeEmpty, nil
	}
	if err != nil {
		return OutcomeFailed, fmt.Errorf("reading local dataset: %w", err)
	}
	d, err := localstore.Decode(raw, model.Timestamp(h.opts.Now()))
	if err != nil {
		return OutcomeFailed, fmt.Errorf("decoding local dataset: %w", err)
	}

	res, err := h.remote.PersistAll(ctx, d)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("seeding remote dataset: %w", err)
	}
	h.opts.Logger.Info("remote store seeded from local dataset", "upserts", res.Upserts, "commits", res.Commits)

	entries, err := localstore.NewAuditLog(h.storage, h.opts.AuditKey).All(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	if len(entries) > 0 {
		if err := h.remote.AppendAudit(ctx, entries); err != nil {
			return OutcomeFailed, fmt.Errorf("seeding remote audit: %w", err)
		}
	}
	return OutcomeSeeded, nil
}
