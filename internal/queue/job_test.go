package queue

import (
	"strconv"
	"testing"
	"time"
)

func TestExponentialBackoffDoubles(t *testing.T) {
	base := 5 * time.Second

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 5 * time.Second},
		{attempt: 2, want: 10 * time.Second},
		{attempt: 3, want: 20 * time.Second},
		{attempt: 4, want: 40 * time.Second},
		{attempt: 0, want: 5 * time.Second},
	}
	for _, tc := range cases {
		if got := ExponentialBackoff(base, tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestNextBackoffUsesAttemptsMade(t *testing.T) {
	job := &Job{BackoffDelay: 2 * time.Second, AttemptsMade: 1}
	if got := job.NextBackoff(); got != 2*time.Second {
		t.Fatalf("first failure: got %v, want 2s", got)
	}
	job.AttemptsMade = 2
	if got := job.NextBackoff(); got != 4*time.Second {
		t.Fatalf("second failure: got %v, want 4s", got)
	}
}

func TestJobAge(t *testing.T) {
	enqueued := time.Now().Add(-90 * time.Second)
	job := &Job{EnqueuedAt: enqueued}
	age := job.Age(enqueued.Add(90 * time.Second))
	if age != 90*time.Second {
		t.Fatalf("got %v, want 90s", age)
	}
}

func TestJobHashRoundTrip(t *testing.T) {
	enqueued := time.Now().Truncate(time.Millisecond)
	original := &Job{
		ID:           "job-1",
		Name:         "ai-classify-ticket",
		Payload:      []byte(`{"ticketId":42}`),
		AttemptsMade: 3,
		MaxAttempts:  999,
		BackoffDelay: 5 * time.Second,
		EnqueuedAt:   enqueued,
	}

	fields := original.hashFields()
	asStrings := make(map[string]string, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			asStrings[key] = v
		case int:
			asStrings[key] = strconv.Itoa(v)
		case int64:
			asStrings[key] = strconv.FormatInt(v, 10)
		default:
			t.Fatalf("unexpected field type for %s: %T", key, value)
		}
	}

	restored := jobFromHash(original.ID, asStrings)
	if restored.Name != original.Name {
		t.Fatalf("name: got %q", restored.Name)
	}
	if string(restored.Payload) != string(original.Payload) {
		t.Fatalf("payload: got %s", restored.Payload)
	}
	if restored.AttemptsMade != original.AttemptsMade {
		t.Fatalf("attempts: got %d", restored.AttemptsMade)
	}
	if restored.MaxAttempts != original.MaxAttempts {
		t.Fatalf("max attempts: got %d", restored.MaxAttempts)
	}
	if restored.BackoffDelay != original.BackoffDelay {
		t.Fatalf("backoff: got %v", restored.BackoffDelay)
	}
	if !restored.EnqueuedAt.Equal(original.EnqueuedAt) {
		t.Fatalf("enqueued at: got %v, want %v", restored.EnqueuedAt, original.EnqueuedAt)
	}
}
