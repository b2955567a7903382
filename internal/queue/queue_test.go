package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestQueue(t *testing.T, opts Options) (*Queue, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "ticket-tasks", opts, zap.NewNop()), rdb
}

type notePayload struct {
	TicketID int64 `json:"ticketId"`
}

func TestAddClaimComplete(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestQueue(t, Options{
		MaxAttempts:      3,
		BackoffDelay:     time.Second,
		RemoveOnComplete: true,
	})

	id, err := q.Add(ctx, "ai-classify-ticket", notePayload{TicketID: 42})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	job, err := q.Claim(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job.ID != id || job.Name != "ai-classify-ticket" {
		t.Fatalf("wrong job: %+v", job)
	}
	if job.AttemptsMade != 1 {
		t.Fatalf("attempts: got %d, want 1", job.AttemptsMade)
	}
	if string(job.Payload) != `{"ticketId":42}` {
		t.Fatalf("payload: %s", job.Payload)
	}

	if err := q.Complete(ctx, job); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if n, _ := rdb.Exists(ctx, q.jobKey(id)).Result(); n != 0 {
		t.Fatal("job record must be dropped on acknowledgement")
	}
	if _, err := q.Claim(ctx, 50*time.Millisecond); !errors.Is(err, ErrEmpty) {
		t.Fatalf("queue must be empty, got %v", err)
	}
}

func TestClaimRedeliversStalledJob(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestQueue(t, Options{
		MaxAttempts:  3,
		BackoffDelay: time.Second,
		StalledAfter: 50 * time.Millisecond,
	})

	id, err := q.Add(ctx, "ai-classify-ticket", notePayload{TicketID: 42})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	first, err := q.Claim(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	// A live claim inside its lease must not be stolen.
	if _, err := q.Claim(ctx, 50*time.Millisecond); !errors.Is(err, ErrEmpty) {
		t.Fatalf("fresh claim was stolen: %v", err)
	}

	// The worker dies without reporting an outcome; after the lease the
	// job must come back instead of sitting on the active list forever.
	time.Sleep(100 * time.Millisecond)

	second, err := q.Claim(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("stalled job never redelivered: %v", err)
	}
	if second.ID != first.ID || second.ID != id {
		t.Fatalf("wrong job redelivered: %s", second.ID)
	}
	if second.AttemptsMade != 2 {
		t.Fatalf("attempts after redelivery: got %d, want 2", second.AttemptsMade)
	}
	if n, _ := rdb.LLen(ctx, q.activeKey()).Result(); n != 1 {
		t.Fatalf("active list length: got %d, want 1", n)
	}
}

func TestRetryReschedulesThenExhausts(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestQueue(t, Options{
		MaxAttempts:  2,
		BackoffDelay: 50 * time.Millisecond,
		StalledAfter: time.Minute,
	})

	id, err := q.Add(ctx, "ai-classify-ticket", notePayload{TicketID: 42})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	job, err := q.Claim(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}

	outcome, err := q.Retry(ctx, job, errors.New("provider timeout"))
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if outcome.Exhausted {
		t.Fatal("first failure must reschedule, not exhaust")
	}
	if outcome.Delay != 50*time.Millisecond {
		t.Fatalf("first retry delay: got %v, want base delay", outcome.Delay)
	}

	// Not due yet: the delayed job must not be delivered early.
	if _, err := q.Claim(ctx, 10*time.Millisecond); !errors.Is(err, ErrEmpty) {
		t.Fatalf("delayed job delivered before its backoff: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	redelivered, err := q.Claim(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("redelivery after backoff: %v", err)
	}
	if redelivered.ID != id {
		t.Fatalf("wrong job: %s", redelivered.ID)
	}
	if redelivered.AttemptsMade != 2 {
		t.Fatalf("attempts: got %d, want 2", redelivered.AttemptsMade)
	}

	outcome, err = q.Retry(ctx, redelivered, errors.New("still failing"))
	if err != nil {
		t.Fatalf("final retry: %v", err)
	}
	if !outcome.Exhausted {
		t.Fatal("attempt ceiling reached, must exhaust")
	}

	// Exhausted jobs are parked, never delivered again.
	if _, err := q.Claim(ctx, 50*time.Millisecond); !errors.Is(err, ErrEmpty) {
		t.Fatalf("exhausted job redelivered: %v", err)
	}
	if n, _ := rdb.ZCard(ctx, q.failedKey()).Result(); n != 1 {
		t.Fatalf("failed set size: got %d, want 1", n)
	}
	state, _ := rdb.HGet(ctx, q.jobKey(id), "state").Result()
	if state != string(StateFailed) {
		t.Fatalf("state: got %q", state)
	}
}

func TestFailedJobsPurgedAfterRetention(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestQueue(t, Options{
		MaxAttempts:     1,
		BackoffDelay:    time.Second,
		FailedRetention: 50 * time.Millisecond,
		StalledAfter:    time.Minute,
	})

	id, err := q.Add(ctx, "ai-classify-ticket", notePayload{TicketID: 42})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	job, err := q.Claim(ctx, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if outcome, err := q.Retry(ctx, job, errors.New("boom")); err != nil || !outcome.Exhausted {
		t.Fatalf("expected exhaustion, got %+v err %v", outcome, err)
	}

	time.Sleep(100 * time.Millisecond)
	// Claim runs the retention purge as part of its housekeeping.
	if _, err := q.Claim(ctx, 10*time.Millisecond); !errors.Is(err, ErrEmpty) {
		t.Fatalf("claim: %v", err)
	}
	if n, _ := rdb.ZCard(ctx, q.failedKey()).Result(); n != 0 {
		t.Fatalf("failed set not purged: %d entries", n)
	}
	if n, _ := rdb.Exists(ctx, q.jobKey(id)).Result(); n != 0 {
		t.Fatal("job record not purged with its failed entry")
	}
}
