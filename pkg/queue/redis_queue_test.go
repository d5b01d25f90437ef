package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *RedisJobQueue {
	t.Helper()
	redisSrv := miniredis.RunT(t)
	q, err := NewRedisJobQueue(RedisQueueConfig{
		Addr:       redisSrv.Addr(),
		Stream:     "test:ingest",
		Group:      "test-group",
		Consumer:   "consumer-1",
		Block:      20 * time.Millisecond,
		RetryDelay: time.Millisecond,
		MaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func waitForStatus(t *testing.T, q *RedisJobQueue, jobID, want string) JobStatus {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, ok, err := q.GetJob(context.Background(), jobID)
		if err == nil && ok && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _, _ := q.GetJob(context.Background(), jobID)
	t.Fatalf("job %s status = %q, want %q", jobID, job.Status, want)
	return JobStatus{}
}

func TestRedisJobQueueProcessesJob(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan Job, 1)
	q.Start(ctx, 1, func(_ context.Context, js JobStatus) error {
		seen <- js.Job
		return nil
	})

	job := Job{Kind: KindDocument, Ref: "uploads/1/nep.pdf", Name: "nep.pdf"}
	status, err := q.Enqueue(ctx, job)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if status.Status != StatusQueued {
		t.Fatalf("status = %q, want queued", status.Status)
	}
	select {
	case got := <-seen:
		if got != job {
			t.Fatalf("handler saw %+v, want %+v", got, job)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("handler never ran")
	}
	done := waitForStatus(t, q, status.ID, StatusDone)
	if done.Attempts != 1 || done.Job != job {
		t.Fatalf("done status = %+v", done)
	}
}

func TestRedisJobQueueRetriesThenFails(t *testing.T) {
	q := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	q.Start(ctx, 1, func(context.Context, JobStatus) error {
		calls.Add(1)
		return errors.New("fetch failed")
	})
	status, err := q.Enqueue(ctx, Job{Kind: KindWeb, Ref: "https://example.gov.in"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	failed := waitForStatus(t, q, status.ID, StatusFailed)
	if failed.Attempts != 3 || failed.ErrorMessage != "fetch failed" {
		t.Fatalf("failed status = %+v", failed)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("handler calls = %d, want 3", got)
	}
}

func TestRedisJobQueueGetJobRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := Job{Kind: KindDocument, Ref: "uploads/7/aicte.pdf", Name: "aicte.pdf"}
	queued, err := q.Enqueue(ctx, job)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	got, ok, err := q.GetJob(ctx, queued.ID)
	if err != nil || !ok {
		t.Fatalf("get job = (%v, %v)", ok, err)
	}
	if got.ID != queued.ID || got.Job != job || got.Status != StatusQueued || got.Attempts != 0 {
		t.Fatalf("decoded job = %+v", got)
	}
	if !got.CreatedAt.Equal(queued.CreatedAt) || !got.UpdatedAt.Equal(queued.UpdatedAt) {
		t.Fatalf("timestamps = %s/%s, want %s/%s", got.CreatedAt, got.UpdatedAt, queued.CreatedAt, queued.UpdatedAt)
	}

	if err := q.markFailed(ctx, queued.ID, "no content extracted"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, _, err = q.GetJob(ctx, queued.ID)
	if err != nil || got.Status != StatusFailed || got.ErrorMessage != "no content extracted" || got.Job != job {
		t.Fatalf("after markFailed = %+v (%v)", got, err)
	}

	if _, ok, err := q.GetJob(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing job = (%v, %v)", ok, err)
	}

	if err := q.client.HSet(ctx, q.jobKey("broken"), "attempts", "many").Err(); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if _, _, err := q.GetJob(ctx, "broken"); err == nil {
		t.Fatalf("expected decode error for a malformed status hash")
	}
}

func TestRedisJobQueueRejectsInvalidJobs(t *testing.T) {
	q := newTestQueue(t)
	for _, job := range []Job{{Kind: "email", Ref: "x"}, {Kind: KindWeb}} {
		if _, err := q.Enqueue(context.Background(), job); !errors.Is(err, ErrInvalidJob) {
			t.Fatalf("Enqueue(%+v) err = %v, want ErrInvalidJob", job, err)
		}
	}
}

func TestRedisJobQueueRequeueAndAckSuccess(t *testing.T) {
	q, ctx, msgID, jobID, job := newPendingQueueMessage(t)

	if err := q.requeueAndAck(ctx, msgID, jobID, job); err != nil {
		t.Fatalf("requeue and ack: %v", err)
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected no pending messages, got %d", pending.Count)
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: "consumer-2",
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	if err != nil {
		t.Fatalf("read requeued message: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one requeued message, got %+v", streams)
	}
	gotID, gotJob := jobFromValues(streams[0].Messages[0].Values)
	if gotID != jobID || gotJob != job {
		t.Fatalf("unexpected requeued payload: %s %+v", gotID, gotJob)
	}
}

func TestRedisJobQueueRequeueAndAckFailureKeepsPendingMessage(t *testing.T) {
	q, ctx, msgID, jobID, job := newPendingQueueMessage(t)

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.requeueAndAck(canceledCtx, msgID, jobID, job); err == nil {
		t.Fatalf("expected requeueAndAck to fail on canceled context")
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected original message to remain pending, got %d", pending.Count)
	}
	streamLen, err := q.client.XLen(ctx, q.stream).Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if streamLen != 1 {
		t.Fatalf("expected no new message in stream on failure, got len=%d", streamLen)
	}
}

func newPendingQueueMessage(t *testing.T) (*RedisJobQueue, context.Context, string, string, Job) {
	t.Helper()
	q := newTestQueue(t)
	ctx := context.Background()
	q.ensureGroup(ctx)

	status, err := q.Enqueue(ctx, Job{Kind: KindDocument, Ref: "uploads/1/a.pdf", Name: "a.pdf"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: "consumer-1",
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    -1,
	}).Result()
	if err != nil {
		t.Fatalf("readgroup: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one pending message, got %+v", streams)
	}
	return q, ctx, streams[0].Messages[0].ID, status.ID, status.Job
}
