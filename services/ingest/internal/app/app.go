package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"saral/internal/util"
	"saral/pkg/queue"
)

// Queue is the job stream the worker consumes.
type Queue interface {
	queue.Enqueuer
	GetJob(ctx context.Context, jobID string) (queue.JobStatus, bool, error)
	Start(ctx context.Context, concurrency int, handler queue.Handler)
}

// Ingester turns one job into stored chunks.
type Ingester interface {
	Ingest(ctx context.Context, job queue.Job) (int, error)
}

// Config holds runtime dependencies.
type Config struct {
	Queue       Queue
	Pipeline    Ingester
	Concurrency int
}

// Stats counts handler outcomes since start. Failed counts attempts, so a
// job retried twice contributes two failures.
type Stats struct {
	Processed int64  `json:"processed"`
	Failed    int64  `json:"failed"`
	Chunks    int64  `json:"chunks"`
	LastError string `json:"lastError,omitempty"`
}

// App consumes ingest jobs.
type App struct {
	queue       Queue
	pipeline    Ingester
	concurrency int

	processed atomic.Int64
	failed    atomic.Int64
	chunks    atomic.Int64
	mu        sync.Mutex
	lastErr   string
}

// New validates cfg and builds the worker.
func New(cfg Config) (*App, error) {
	if cfg.Queue == nil {
		return nil, errors.New("queue required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline required")
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &App{queue: cfg.Queue, pipeline: cfg.Pipeline, concurrency: concurrency}, nil
}

// Run starts the consumers and blocks until ctx ends.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(ctx, a.concurrency, a.handle)
	util.LoggerFromContext(ctx).Info("ingest consumers started", "concurrency", a.concurrency)
	<-ctx.Done()
	return nil
}

func (a *App) handle(ctx context.Context, js queue.JobStatus) error {
	logger := util.LoggerFromContext(ctx).With("job_id", js.ID, "kind", js.Job.Kind, "attempt", js.Attempts)
	n, err := a.pipeline.Ingest(util.ContextWithLogger(ctx, logger), js.Job)
	if err != nil {
		a.failed.Add(1)
		a.mu.Lock()
		a.lastErr = err.Error()
		a.mu.Unlock()
		logger.Warn("ingest failed", "ref", js.Job.Ref, "err", err)
		return err
	}
	a.processed.Add(1)
	a.chunks.Add(int64(n))
	logger.Info("source ingested", "ref", js.Job.Ref, "chunks", n)
	return nil
}

// Enqueue submits a job, typically to re-ingest a stored source.
func (a *App) Enqueue(ctx context.Context, job queue.Job) (queue.JobStatus, error) {
	return a.queue.Enqueue(ctx, job)
}

// GetJob returns a job's recorded status.
func (a *App) GetJob(ctx context.Context, jobID string) (queue.JobStatus, bool, error) {
	return a.queue.GetJob(ctx, jobID)
}

// Stats returns a snapshot of the counters.
func (a *App) Stats() Stats {
	a.mu.Lock()
	last := a.lastErr
	a.mu.Unlock()
	return Stats{
		Processed: a.processed.Load(),
		Failed:    a.failed.Load(),
		Chunks:    a.chunks.Load(),
		LastError: last,
	}
}
