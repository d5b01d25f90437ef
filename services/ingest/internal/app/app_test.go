package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"saral/pkg/ingest"
	"saral/pkg/queue"
	"saral/pkg/storage"
	"saral/pkg/store"
)

func newQueue(t *testing.T) *queue.RedisJobQueue {
	t.Helper()
	redisSrv := miniredis.RunT(t)
	q, err := queue.NewRedisJobQueue(queue.RedisQueueConfig{
		Addr:       redisSrv.Addr(),
		Stream:     "test:ingest",
		Group:      "test-ingest",
		Consumer:   "worker",
		Block:      20 * time.Millisecond,
		RetryDelay: time.Millisecond,
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func startApp(t *testing.T, cfg Config) *App {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = a.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return a
}

func waitForJob(t *testing.T, a *App, jobID, want string) queue.JobStatus {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, ok, err := a.GetJob(context.Background(), jobID)
		if err == nil && ok && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _, _ := a.GetJob(context.Background(), jobID)
	t.Fatalf("job %s status = %q, want %q", jobID, job.Status, want)
	return queue.JobStatus{}
}

type stubIngester struct {
	err error
}

func (s stubIngester) Ingest(context.Context, queue.Job) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return 3, nil
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Config{Pipeline: stubIngester{}}); err == nil {
		t.Fatalf("expected error without queue")
	}
	if _, err := New(Config{Queue: newQueue(t)}); err == nil {
		t.Fatalf("expected error without pipeline")
	}
}

func TestWorkerIngestsStoredDocument(t *testing.T) {
	objects, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	chunks := store.NewMemoryStore()
	key := storage.UploadKey("item-1", "nep-summary.txt")
	text := strings.Repeat("The National Education Policy 2020 promotes multidisciplinary learning. ", 40)
	if err := objects.Put(context.Background(), key, bytes.NewReader([]byte(text)), int64(len(text)), "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	a := startApp(t, Config{
		Queue:       newQueue(t),
		Pipeline:    ingest.NewPipeline(objects, chunks).WithChunker(ingest.Chunker{Size: 512, Overlap: 64}),
		Concurrency: 2,
	})
	job, err := a.Enqueue(context.Background(), queue.Job{Kind: queue.KindDocument, Ref: key, Name: "nep-summary.txt"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	waitForJob(t, a, job.ID, queue.StatusDone)

	n, err := chunks.CountChunks(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n < 2 {
		t.Fatalf("chunks = %d, want the text split into several windows", n)
	}
	stats := a.Stats()
	if stats.Processed != 1 || stats.Failed != 0 || stats.Chunks != int64(n) {
		t.Fatalf("stats = %+v, chunks stored %d", stats, n)
	}
}

func TestWorkerRecordsFailures(t *testing.T) {
	a := startApp(t, Config{
		Queue:    newQueue(t),
		Pipeline: stubIngester{err: errors.New("source unreachable")},
	})
	job, err := a.Enqueue(context.Background(), queue.Job{Kind: queue.KindWeb, Ref: "https://example.gov.in"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	failed := waitForJob(t, a, job.ID, queue.StatusFailed)
	if failed.ErrorMessage != "source unreachable" {
		t.Fatalf("error message = %q", failed.ErrorMessage)
	}
	stats := a.Stats()
	if stats.Processed != 0 || stats.Failed != 2 || stats.LastError != "source unreachable" {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestEnqueueRejectsInvalidJob(t *testing.T) {
	a, err := New(Config{Queue: newQueue(t), Pipeline: stubIngester{}})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if _, err := a.Enqueue(context.Background(), queue.Job{Kind: "video", Ref: "x"}); !errors.Is(err, queue.ErrInvalidJob) {
		t.Fatalf("enqueue err = %v, want ErrInvalidJob", err)
	}
}
