package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrEmpty is returned by Claim when no job became deliverable within the
// blocking window.
var ErrEmpty = errors.New("queue: no deliverable job")

// Options carry per-queue retry policy, applied to every job added.
type Options struct {
	// MaxAttempts bounds deliveries before a job is parked as failed.
	MaxAttempts int
	// BackoffDelay is the base of the exponential retry schedule.
	BackoffDelay time.Duration
	// RemoveOnComplete drops the job record on acknowledgement.
	RemoveOnComplete bool
	// FailedRetention is how long exhausted jobs stay inspectable before
	// being purged.
	FailedRetention time.Duration
	// StalledAfter is the claim lease: an active job whose claim is older
	// than this is assumed orphaned by a dead worker and requeued.
	StalledAfter time.Duration
}

// RetryOutcome reports what Retry did with a failed job.
type RetryOutcome struct {
	Exhausted bool
	Delay     time.Duration
}

// Queue is a durable, named-job broker over Redis with at-least-once
// delivery. Ready job ids live on a wait list, retries wait in a delayed
// zset scored by deliver-at time, and claimed ids are moved atomically onto
// an active list so two consumers never hold the same delivery. Attempt
// counters and payloads live in one hash per job; the queue owns all of
// that bookkeeping, consumers only report outcomes.
type Queue struct {
	rdb    *redis.Client
	name   string
	opts   Options
	logger *zap.Logger
}

// New constructs a queue client for the given queue name.
func New(rdb *redis.Client, name string, opts Options, logger *zap.Logger) *Queue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.StalledAfter <= 0 {
		opts.StalledAfter = 30 * time.Second
	}
	return &Queue{rdb: rdb, name: name, opts: opts, logger: logger}
}

// Name returns the queue name.
func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) waitKey() string    { return "queue:" + q.name + ":wait" }
func (q *Queue) delayedKey() string { return "queue:" + q.name + ":delayed" }
func (q *Queue) activeKey() string  { return "queue:" + q.name + ":active" }
func (q *Queue) failedKey() string  { return "queue:" + q.name + ":failed" }
func (q *Queue) jobKey(id string) string {
	return "queue:" + q.name + ":job:" + id
}

// Add enqueues a named job with a JSON payload and returns the job id.
func (q *Queue) Add(ctx context.Context, jobName string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: encode payload: %w", err)
	}

	job := &Job{
		ID:           uuid.NewString(),
		Name:         jobName,
		Payload:      raw,
		MaxAttempts:  q.opts.MaxAttempts,
		BackoffDelay: q.opts.BackoffDelay,
		EnqueuedAt:   time.Now(),
	}

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.jobKey(job.ID), job.hashFields())
	pipe.LPush(ctx, q.waitKey(), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("queue: add %s: %w", jobName, err)
	}

	q.logger.Debug("job enqueued",
		zap.String("queue", q.name),
		zap.String("job", jobName),
		zap.String("job_id", job.ID))
	return job.ID, nil
}

// promoteScript moves due delayed jobs onto the wait list in one atomic
// step so a crash cannot strand a job between the two structures.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 128)
for _, id in ipairs(due) do
    redis.call('ZREM', KEYS[1], id)
    redis.call('LPUSH', KEYS[2], id)
end
return #due
`)

// stalledScript requeues active jobs whose claim lease expired: a worker
// that crashed between claim and acknowledgement leaves its job on the
// active list with a stale (or missing) claim stamp, and this moves such
// jobs back to wait for redelivery.
var stalledScript = redis.NewScript(`
local ids = redis.call('LRANGE', KEYS[1], 0, -1)
local moved = 0
for _, id in ipairs(ids) do
    local claimed = redis.call('HGET', ARGV[2] .. id, 'claimed_at')
    if (not claimed) or (tonumber(claimed) <= tonumber(ARGV[1])) then
        redis.call('LREM', KEYS[1], 1, id)
        redis.call('LPUSH', KEYS[2], id)
        moved = moved + 1
    end
end
return moved
`)

// Claim blocks up to the given window for a deliverable job and moves it
// onto the active list, stamping the claim time so a dead worker's jobs
// can be detected. Due retries and stalled claims are promoted first and
// expired failed jobs purged. Returns ErrEmpty when the window elapses
// with nothing to do.
func (q *Queue) Claim(ctx context.Context, block time.Duration) (*Job, error) {
	if err := q.promoteDelayed(ctx); err != nil {
		return nil, err
	}
	if err := q.requeueStalled(ctx); err != nil {
		return nil, err
	}
	q.purgeExpiredFailed(ctx)

	id, err := q.rdb.BLMove(ctx, q.waitKey(), q.activeKey(), "RIGHT", "LEFT", block).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("queue: claim: %w", err)
	}

	fields, err := q.rdb.HGetAll(ctx, q.jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: load job %s: %w", id, err)
	}
	if len(fields) == 0 {
		// Record was purged out from under the id; drop the orphan.
		q.rdb.LRem(ctx, q.activeKey(), 1, id)
		return nil, ErrEmpty
	}

	pipe := q.rdb.TxPipeline()
	attemptsCmd := pipe.HIncrBy(ctx, q.jobKey(id), "attempts", 1)
	pipe.HSet(ctx, q.jobKey(id),
		"claimed_at", time.Now().UnixMilli(),
		"state", string(StateActive))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("queue: stamp claim %s: %w", id, err)
	}

	job := jobFromHash(id, fields)
	job.AttemptsMade = int(attemptsCmd.Val())
	return job, nil
}

func (q *Queue) requeueStalled(ctx context.Context) error {
	cutoff := time.Now().Add(-q.opts.StalledAfter).UnixMilli()
	moved, err := stalledScript.Run(ctx, q.rdb,
		[]string{q.activeKey(), q.waitKey()},
		cutoff, "queue:"+q.name+":job:").Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("queue: requeue stalled: %w", err)
	}
	if moved > 0 {
		q.logger.Warn("requeued stalled jobs",
			zap.String("queue", q.name),
			zap.Int("count", moved))
	}
	return nil
}

// Complete acknowledges a successful delivery and purges the job record.
func (q *Queue) Complete(ctx context.Context, job *Job) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.activeKey(), 1, job.ID)
	if q.opts.RemoveOnComplete {
		pipe.Del(ctx, q.jobKey(job.ID))
	} else {
		pipe.HSet(ctx, q.jobKey(job.ID), "state", string(StateCompleted))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: complete %s: %w", job.ID, err)
	}
	return nil
}

// Retry reports a failed delivery. The job is rescheduled with exponential
// backoff until its attempt ceiling, then parked on the failed set for the
// retention window.
func (q *Queue) Retry(ctx context.Context, job *Job, cause error) (RetryOutcome, error) {
	now := time.Now()
	lastErr := ""
	if cause != nil {
		lastErr = cause.Error()
	}

	if job.AttemptsMade >= job.MaxAttempts {
		pipe := q.rdb.TxPipeline()
		pipe.LRem(ctx, q.activeKey(), 1, job.ID)
		pipe.HSet(ctx, q.jobKey(job.ID), "state", string(StateFailed), "last_error", lastErr)
		pipe.ZAdd(ctx, q.failedKey(), redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
		if _, err := pipe.Exec(ctx); err != nil {
			return RetryOutcome{}, fmt.Errorf("queue: park failed %s: %w", job.ID, err)
		}
		q.logger.Warn("job exhausted retries",
			zap.String("queue", q.name),
			zap.String("job_id", job.ID),
			zap.Int("attempts", job.AttemptsMade),
			zap.String("last_error", lastErr))
		return RetryOutcome{Exhausted: true}, nil
	}

	delay := job.NextBackoff()
	deliverAt := now.Add(delay)
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.activeKey(), 1, job.ID)
	pipe.HSet(ctx, q.jobKey(job.ID), "state", string(StateDelayed), "last_error", lastErr)
	pipe.ZAdd(ctx, q.delayedKey(), redis.Z{Score: float64(deliverAt.UnixMilli()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return RetryOutcome{}, fmt.Errorf("queue: reschedule %s: %w", job.ID, err)
	}

	q.logger.Info("job retry scheduled",
		zap.String("queue", q.name),
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.AttemptsMade),
		zap.Duration("delay", delay))
	return RetryOutcome{Delay: delay}, nil
}

func (q *Queue) promoteDelayed(ctx context.Context) error {
	now := time.Now().UnixMilli()
	if err := promoteScript.Run(ctx, q.rdb,
		[]string{q.delayedKey(), q.waitKey()},
		now).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("queue: promote delayed: %w", err)
	}
	return nil
}

// purgeExpiredFailed drops failed jobs older than the retention window.
// Best effort: a purge failure never blocks delivery.
func (q *Queue) purgeExpiredFailed(ctx context.Context) {
	if q.opts.FailedRetention <= 0 {
		return
	}
	cutoff := time.Now().Add(-q.opts.FailedRetention).UnixMilli()
	ids, err := q.rdb.ZRangeByScore(ctx, q.failedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil || len(ids) == 0 {
		return
	}
	pipe := q.rdb.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, q.failedKey(), id)
		pipe.Del(ctx, q.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.Warn("failed-job purge incomplete", zap.Error(err))
	}
}
