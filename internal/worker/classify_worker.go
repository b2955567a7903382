package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/queue"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
)

// Job outcome labels recorded in metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeRetried   = "retried"
	OutcomeExhausted = "exhausted"
)

const claimBlock = 5 * time.Second

// Consumer is the queue capability the worker loop needs. The worker never
// mutates job bookkeeping itself; it only reports outcomes.
type Consumer interface {
	Claim(ctx context.Context, block time.Duration) (*queue.Job, error)
	Complete(ctx context.Context, job *queue.Job) error
	Retry(ctx context.Context, job *queue.Job, cause error) (queue.RetryOutcome, error)
}

// TicketClassifier runs one classification attempt for a loaded ticket.
type TicketClassifier interface {
	Classify(ctx context.Context, ticket *domain.Ticket) error
}

// ClassifyWorker is the long-running consumer for classification jobs.
// Per delivery it applies two guards before doing any work: a ticket that
// already has messages is treated as satisfied (makes redelivery safe), and
// a job older than the expiry window is abandoned rather than retried
// forever. Everything else that fails is re-raised to the queue, whose
// backoff policy owns the retry arithmetic.
type ClassifyWorker struct {
	queue    Consumer
	tickets  repository.TicketRepository
	messages repository.TicketMessageRepository
	classify TicketClassifier
	expiry   time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	// now is swappable for tests.
	now func() time.Time
}

// NewClassifyWorker constructs the worker.
func NewClassifyWorker(
	consumer Consumer,
	tickets repository.TicketRepository,
	messages repository.TicketMessageRepository,
	classify TicketClassifier,
	expiry time.Duration,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *ClassifyWorker {
	return &ClassifyWorker{
		queue:    consumer,
		tickets:  tickets,
		messages: messages,
		classify: classify,
		expiry:   expiry,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Run consumes jobs until the context is cancelled. The job being processed
// when cancellation arrives finishes and reports its outcome before Run
// returns; only claiming stops immediately.
func (w *ClassifyWorker) Run(ctx context.Context) error {
	w.logger.Info("classification worker started",
		zap.Duration("job_expiry", w.expiry))

	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("classification worker stopping")
			return err
		}

		job, err := w.queue.Claim(ctx, claimBlock)
		if errors.Is(err, queue.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("claim failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		// Outcome reporting must not be cut off mid-job by shutdown.
		w.handle(context.WithoutCancel(ctx), job)
	}
}

// Handle processes one delivered job and reports its outcome to the queue.
func (w *ClassifyWorker) Handle(ctx context.Context, job *queue.Job) {
	w.handle(ctx, job)
}

func (w *ClassifyWorker) handle(ctx context.Context, job *queue.Job) {
	if job.Name != service.JobClassifyTicket {
		w.logger.Warn("unknown job name, acknowledging",
			zap.String("job", job.Name), zap.String("job_id", job.ID))
		w.complete(ctx, job, OutcomeSkipped)
		return
	}

	var payload service.ClassifyTicketPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		// An undecodable payload can never succeed; retrying it wastes
		// the whole backoff schedule.
		w.logger.Error("discarding job with malformed payload",
			zap.String("job_id", job.ID), zap.Error(err))
		w.complete(ctx, job, OutcomeSkipped)
		return
	}

	logger := w.logger.With(
		zap.String("job_id", job.ID),
		zap.Int64("ticket_id", payload.TicketID),
		zap.Int("attempt", job.AttemptsMade))
	logger.Info("job received")

	ticket, err := w.tickets.GetByID(ctx, payload.TicketID)
	if err != nil {
		w.retry(ctx, job, err, logger)
		return
	}
	msgs, err := w.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		w.retry(ctx, job, err, logger)
		return
	}

	// Guard 1: a ticket with any message was already classified (or an
	// agent replied out-of-band); redelivered work is a no-op.
	if len(msgs) > 0 {
		logger.Info("skipping job: ticket already has messages")
		w.complete(ctx, job, OutcomeSkipped)
		return
	}

	// Guard 2: bound wasted work on stale jobs.
	if age := job.Age(w.now()); age > w.expiry {
		logger.Info("skipping job: expired", zap.Duration("age", age))
		w.complete(ctx, job, OutcomeSkipped)
		return
	}

	if err := w.classify.Classify(ctx, ticket); err != nil {
		logger.Warn("classification failed, handing back for retry", zap.Error(err))
		w.retry(ctx, job, err, logger)
		return
	}

	logger.Info("job completed")
	w.complete(ctx, job, OutcomeCompleted)
}

func (w *ClassifyWorker) complete(ctx context.Context, job *queue.Job, outcome string) {
	if err := w.queue.Complete(ctx, job); err != nil {
		// The claim stays on the active list until the stalled scan
		// requeues it; the message guard makes that redelivery a no-op.
		w.logger.Error("acknowledge failed", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	w.metrics.RecordJob(job.Name, outcome)
}

func (w *ClassifyWorker) retry(ctx context.Context, job *queue.Job, cause error, logger *zap.Logger) {
	outcome, err := w.queue.Retry(ctx, job, cause)
	if err != nil {
		logger.Error("retry scheduling failed", zap.Error(err))
		return
	}
	if outcome.Exhausted {
		w.metrics.RecordJob(job.Name, OutcomeExhausted)
		return
	}
	w.metrics.RecordJob(job.Name, OutcomeRetried)
}
