package queue

import (
	"encoding/json"
	"strconv"
	"time"
)

// JobState tracks where a job sits in its lifecycle.
type JobState string

const (
	StateWaiting   JobState = "waiting"
	StateDelayed   JobState = "delayed"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// Job is one delivered unit of work. AttemptsMade counts deliveries
// including the current one; EnqueuedAt is the original enqueue time and
// survives retries, so consumers can implement expiry guards against it.
type Job struct {
	ID           string
	Name         string
	Payload      json.RawMessage
	AttemptsMade int
	MaxAttempts  int
	BackoffDelay time.Duration
	EnqueuedAt   time.Time
	LastError    string
}

// Age returns the time elapsed since the job was first enqueued.
func (j *Job) Age(now time.Time) time.Duration {
	return now.Sub(j.EnqueuedAt)
}

// NextBackoff computes the delay before the next delivery attempt:
// base * 2^(attempt-1), where attempt is the number of deliveries made.
func (j *Job) NextBackoff() time.Duration {
	return ExponentialBackoff(j.BackoffDelay, j.AttemptsMade)
}

// ExponentialBackoff returns base * 2^(attempt-1). Attempts below one are
// treated as the first attempt.
func ExponentialBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		// 30 doublings exceed any plausible expiry window.
		if i >= 30 {
			break
		}
	}
	return delay
}

func (j *Job) hashFields() map[string]any {
	return map[string]any{
		"name":         j.Name,
		"payload":      string(j.Payload),
		"attempts":     j.AttemptsMade,
		"max_attempts": j.MaxAttempts,
		"backoff_ms":   j.BackoffDelay.Milliseconds(),
		"enqueued_at":  j.EnqueuedAt.UnixMilli(),
	}
}

func jobFromHash(id string, fields map[string]string) *Job {
	job := &Job{
		ID:        id,
		Name:      fields["name"],
		Payload:   json.RawMessage(fields["payload"]),
		LastError: fields["last_error"],
	}
	job.AttemptsMade, _ = strconv.Atoi(fields["attempts"])
	job.MaxAttempts, _ = strconv.Atoi(fields["max_attempts"])
	if ms, err := strconv.ParseInt(fields["backoff_ms"], 10, 64); err == nil {
		job.BackoffDelay = time.Duration(ms) * time.Millisecond
	}
	if ms, err := strconv.ParseInt(fields["enqueued_at"], 10, 64); err == nil {
		job.EnqueuedAt = time.UnixMilli(ms)
	}
	return job
}
