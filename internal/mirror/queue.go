package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/statuspage/internal/metrics"
)

// DefaultQueueSize is the number of tasks the queue buffers before it starts
// dropping new ones.
const DefaultQueueSize = 1024

// ErrQueueClosed is returned by Flush after Close.
var ErrQueueClosed = errors.New("replication queue closed")

// Task is one unit of remote work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Stats summarizes queue activity.
type Stats struct {
	Pending       int    `json:"pending"`
	Succeeded     int64  `json:"succeeded"`
	Failed        int64  `json:"failed"`
	Dropped       int64  `json:"dropped"`
	LastSuccessAt string `json:"lastSuccessAt,omitempty"`
	LastError     string `json:"lastError,omitempty"`
	LastErrorAt   string `json:"lastErrorAt,omitempty"`
}

// Queue runs tasks one at a time in submission order on a single worker
// goroutine. A failing or panicking task is logged and never stops the
// tasks behind it.
type Queue struct {
	tasks   chan Task
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.RWMutex
	closed bool

	startOnce sync.Once
	done      chan struct{}

	statsMu sync.Mutex
	stats   Stats
}

// NewQueue creates a queue buffering up to size tasks. Call Start to begin
// processing.
func NewQueue(size int, logger *slog.Logger, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &Queue{
		tasks:   make(chan Task, size),
		logger:  logger,
		metrics: m,
		now:     time.Now,
		done:    make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		go q.run()
	})
}

// Enqueue submits a task without blocking. It reports false when the queue
// is closed or full; the task is dropped in that case.
func (q *Queue) Enqueue(task Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.drop(task, "queue closed")
		return false
	}
	select {
	case q.tasks <- task:
		q.metrics.QueueDepth.Set(float64(len(q.tasks)))
		return true
	default:
		q.drop(task, "queue full")
		return false
	}
}

func (q *Queue) drop(task Task, reason string) {
	q.logger.Warn("replication task dropped", "task", task.Name, "reason", reason)
	q.metrics.TasksTotal.WithLabelValues(task.Name, metrics.OutcomeDropped).Inc()
	q.statsMu.Lock()
	q.stats.Dropped++
	q.statsMu.Unlock()
}

// Flush blocks until every task enqueued before the call has run, or ctx is
// done. The queue must have been started.
func (q *Queue) Flush(ctx context.Context) error {
	reached := make(chan struct{})
	barrier := Task{Name: "flush", Run: func(context.Context) error {
		close(reached)
		return nil
	}}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	select {
	case q.tasks <- barrier:
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}
	q.mu.RUnlock()

	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops intake and waits for queued tasks to finish or ctx to end.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	q.Start()
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for replication queue to drain: %w", ctx.Err())
	}
}

// Stats returns a snapshot of queue counters.
func (q *Queue) Stats() Stats {
	q.statsMu.Lock()
	defer q.statsMu.Unlock()
	out := q.stats
	out.Pending = len(q.tasks)
	return out
}

func (q *Queue) run() {
	defer close(q.done)
	for task := range q.tasks {
		q.metrics.QueueDepth.Set(float64(len(q.tasks)))
		q.execute(task)
	}
}

func (q *Queue) execute(task Task) {
	start := q.now()
	err := safeRun(task)
	if task.Name == "flush" {
		return
	}
	q.metrics.TaskDuration.WithLabelValues(task.Name).Observe(time.Since(start).Seconds())

	stamp := q.now().UTC().Format(time.RFC3339)
	q.statsMu.Lock()
	defer q.statsMu.Unlock()
	if err != nil {
		q.logger.Error("replication task failed", "task", task.Name, "error", err)
		q.metrics.TasksTotal.WithLabelValues(task.Name, metrics.OutcomeError).Inc()
		q.stats.Failed++
		q.stats.LastError = err.Error()
		q.stats.LastErrorAt = stamp
		return
	}
	q.logger.Debug("replication task done", "task", task.Name, "duration", time.Since(start))
	q.metrics.TasksTotal.WithLabelValues(task.Name, metrics.OutcomeSuccess).Inc()
	q.stats.Succeeded++
	q.stats.LastSuccessAt = stamp
}

func safeRun(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Run(context.Background())
}
