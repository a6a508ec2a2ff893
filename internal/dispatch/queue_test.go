package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T, maxAttempts int) (*Queue, context.Context) {
	t.Helper()

	redisSrv := miniredis.RunT(t)
	q, err := NewQueue(Config{
		Addr:        redisSrv.Addr(),
		Stream:      "test:dispatch",
		Group:       "test-group",
		Consumer:    "consumer-1",
		MaxAttempts: maxAttempts,
		RetryDelay:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	ctx := context.Background()
	q.ensureGroup(ctx)
	return q, ctx
}

func readOne(t *testing.T, q *Queue, ctx context.Context, consumer string) redis.XMessage {
	t.Helper()
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    0,
	}).Result()
	if err != nil {
		t.Fatalf("readgroup: %v", err)
	}
	if len(streams) != 1 || len(streams[0].Messages) != 1 {
		t.Fatalf("expected one message, got %+v", streams)
	}
	return streams[0].Messages[0]
}

func TestEnqueueWritesJobAndStreamEntry(t *testing.T) {
	q, ctx := newTestQueue(t, 1)

	job, err := q.Enqueue(ctx, "lec1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.Status != StatusQueued || job.LectureID != "lec1" {
		t.Fatalf("job = %+v", job)
	}

	got, ok, err := q.GetJob(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("get job: ok=%v err=%v", ok, err)
	}
	if got.LectureID != "lec1" || got.Status != StatusQueued {
		t.Fatalf("stored job = %+v", got)
	}

	msg := readOne(t, q, ctx, "consumer-1")
	if msg.Values["job_id"] != job.ID || msg.Values["lecture_id"] != "lec1" {
		t.Fatalf("stream payload = %+v", msg.Values)
	}
}

func TestEnqueueRejectsEmptyLectureID(t *testing.T) {
	q, ctx := newTestQueue(t, 1)
	if _, err := q.Enqueue(ctx, "  "); err == nil {
		t.Fatal("expected error for blank lecture id")
	}
}

func TestHandleMessageDeliversAndAcks(t *testing.T) {
	q, ctx := newTestQueue(t, 1)

	job, err := q.Enqueue(ctx, "lec1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, q, ctx, "consumer-1")

	var handled Job
	q.handleMessage(ctx, msg, func(_ context.Context, j Job) error {
		handled = j
		return nil
	})

	if handled.LectureID != "lec1" || handled.Attempts != 1 {
		t.Fatalf("handler saw %+v", handled)
	}
	got, _, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusDelivered {
		t.Fatalf("status = %q, want delivered", got.Status)
	}
	if n, _ := q.client.XLen(ctx, q.stream).Result(); n != 0 {
		t.Fatalf("stream not drained: len=%d", n)
	}
}

func TestHandleMessageSingleAttemptFailsJob(t *testing.T) {
	q, ctx := newTestQueue(t, 1)

	job, err := q.Enqueue(ctx, "lec1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, q, ctx, "consumer-1")

	q.handleMessage(ctx, msg, func(context.Context, Job) error {
		return errors.New("ai service unreachable")
	})

	got, _, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}
	if got.ErrorMessage != "ai service unreachable" {
		t.Fatalf("error = %q", got.ErrorMessage)
	}
	// Single-attempt queues must not requeue on failure.
	if n, _ := q.client.XLen(ctx, q.stream).Result(); n != 0 {
		t.Fatalf("failed job was requeued: len=%d", n)
	}
}

func TestHandleMessageRetriesWhenConfigured(t *testing.T) {
	q, ctx := newTestQueue(t, 2)

	job, err := q.Enqueue(ctx, "lec1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, q, ctx, "consumer-1")

	q.handleMessage(ctx, msg, func(context.Context, Job) error {
		return errors.New("transient")
	})

	got, _, err := q.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusQueued {
		t.Fatalf("status = %q, want queued for retry", got.Status)
	}

	retry := readOne(t, q, ctx, "consumer-2")
	if retry.Values["job_id"] != job.ID {
		t.Fatalf("requeued payload = %+v", retry.Values)
	}
}

func TestRequeueAndAckFailureKeepsPendingMessage(t *testing.T) {
	q, ctx := newTestQueue(t, 2)

	job, err := q.Enqueue(ctx, "lec1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, q, ctx, "consumer-1")

	canceledCtx, cancel := context.WithCancel(ctx)
	cancel()
	if err := q.requeueAndAck(canceledCtx, msg.ID, job.ID, job.LectureID); err == nil {
		t.Fatal("expected requeueAndAck to fail on canceled context")
	}

	pending, err := q.client.XPending(ctx, q.stream, q.group).Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Fatalf("expected original message to remain pending, got %d", pending.Count)
	}
}

func TestEnsureGroupToleratesExistingGroup(t *testing.T) {
	q, ctx := newTestQueue(t, 1)

	// A second worker process joining the same stream sees BUSYGROUP on
	// group creation and must still be able to consume.
	peer, err := NewQueue(Config{
		Addr:        q.client.Options().Addr,
		Stream:      q.stream,
		Group:       q.group,
		Consumer:    "consumer-2",
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	peer.ensureGroup(ctx)

	if _, err := q.Enqueue(ctx, "lec-busygroup"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	msg := readOne(t, peer, ctx, "consumer-2")
	if msg.Values["lecture_id"] != "lec-busygroup" {
		t.Fatalf("message = %+v", msg.Values)
	}
}
