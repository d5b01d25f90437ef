package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"saral/internal/task"
	"saral/internal/util"
	"saral/pkg/domain"
	"saral/pkg/queue"
	"saral/pkg/storage"
	"saral/pkg/store"
)

// Pipeline parses a job's source and replaces its chunks in the store.
type Pipeline struct {
	objects storage.ObjectStore
	chunks  store.ChunkStore
	fetcher *Fetcher
	chunker Chunker
	now     func() time.Time
}

// NewPipeline wires a pipeline with the default chunker and fetcher.
func NewPipeline(objects storage.ObjectStore, chunks store.ChunkStore) *Pipeline {
	return &Pipeline{
		objects: objects,
		chunks:  chunks,
		fetcher: NewFetcher(),
		chunker: DefaultChunker(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithChunker replaces the chunk window. Zero fields keep the defaults.
func (p *Pipeline) WithChunker(c Chunker) *Pipeline {
	if c.Size > 0 {
		p.chunker.Size = c.Size
	}
	if c.Overlap > 0 {
		p.chunker.Overlap = c.Overlap
	}
	return p
}

// WithFetcher replaces the web fetcher.
func (p *Pipeline) WithFetcher(f *Fetcher) *Pipeline {
	p.fetcher = f
	return p
}

// Ingest processes one job and returns the number of chunks stored.
func (p *Pipeline) Ingest(ctx context.Context, job queue.Job) (int, error) {
	var (
		payloads []Payload
		err      error
	)
	switch job.Kind {
	case queue.KindDocument:
		payloads, err = p.document(ctx, job)
	case queue.KindWeb:
		payloads, err = p.web(ctx, job)
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", queue.ErrInvalidJob, job.Kind)
	}
	if err != nil {
		return 0, err
	}
	source := job.Name
	if source == "" {
		source = job.Ref
	}
	now := p.now()
	chunks := make([]domain.Chunk, 0, len(payloads))
	for _, pl := range payloads {
		pl.Metadata["source"] = source
		chunks = append(chunks, domain.Chunk{
			ID:        util.NewID(),
			SourceID:  job.Ref,
			Content:   pl.Content,
			Metadata:  pl.Metadata,
			CreatedAt: now,
		})
	}
	if err := p.chunks.ReplaceChunks(ctx, job.Ref, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(chunks), nil
}

func (p *Pipeline) document(ctx context.Context, job queue.Job) ([]Payload, error) {
	rc, err := p.objects.Get(ctx, job.Ref)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", job.Ref, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", job.Ref, err)
	}
	name := job.Name
	if name == "" {
		name = job.Ref
	}
	return p.chunker.ParseDocument(name, data)
}

func (p *Pipeline) web(ctx context.Context, job queue.Job) ([]Payload, error) {
	text, err := p.fetcher.FetchText(ctx, job.Ref)
	if err != nil {
		return nil, err
	}
	payloads := p.chunker.SplitText(text)
	if len(payloads) == 0 {
		return nil, ErrNoContent
	}
	return payloads, nil
}

// LocalQueue runs jobs in-process when no Redis queue is configured. Each job
// is attempted once.
type LocalQueue struct {
	ctx      context.Context
	pipeline *Pipeline

	mu   sync.Mutex
	jobs map[string]*task.Task[int]
}

// NewLocalQueue runs jobs on p under ctx; ending ctx cancels running jobs.
func NewLocalQueue(ctx context.Context, p *Pipeline) *LocalQueue {
	return &LocalQueue{ctx: ctx, pipeline: p, jobs: make(map[string]*task.Task[int])}
}

// Enqueue starts job in the background.
func (q *LocalQueue) Enqueue(_ context.Context, job queue.Job) (queue.JobStatus, error) {
	if (job.Kind != queue.KindDocument && job.Kind != queue.KindWeb) || job.Ref == "" {
		return queue.JobStatus{}, fmt.Errorf("%w: %+v", queue.ErrInvalidJob, job)
	}
	now := time.Now().UTC()
	status := queue.JobStatus{ID: util.NewID(), Job: job, Status: queue.StatusQueued, CreatedAt: now, UpdatedAt: now}
	logger := util.LoggerFromContext(q.ctx).With("job_id", status.ID, "kind", job.Kind)
	t := task.Go(q.ctx, func(ctx context.Context) (int, error) {
		n, err := q.pipeline.Ingest(ctx, job)
		if err != nil {
			logger.Warn("ingest failed", "ref", job.Ref, "err", err)
			return 0, err
		}
		logger.Info("source ingested", "ref", job.Ref, "chunks", n)
		return n, nil
	})
	q.mu.Lock()
	for id, prev := range q.jobs {
		if _, _, done := prev.Result(); done {
			delete(q.jobs, id)
		}
	}
	q.jobs[status.ID] = t
	q.mu.Unlock()
	return status, nil
}

// Wait blocks until the job finishes and returns its chunk count.
func (q *LocalQueue) Wait(ctx context.Context, jobID string) (int, error) {
	q.mu.Lock()
	t, ok := q.jobs[jobID]
	q.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown job %s", jobID)
	}
	return t.Wait(ctx)
}
