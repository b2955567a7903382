package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/repository"
)

// ClassificationError marks a failed classification attempt. Every cause
// (provider failure, malformed output, persistence failure) is retryable;
// the worker re-raises it so the queue's backoff schedule governs retries.
type ClassificationError struct {
	TicketID int64
	Err      error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed for ticket %d: %v", e.TicketID, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// ClassificationService runs one classification attempt end to end: provider
// call, merge into the ticket, draft reply message. The provider is resolved
// once at construction, not per job.
type ClassificationService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	provider   classifier.Provider
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewClassificationService constructs the service.
func NewClassificationService(
	tickets repository.TicketRepository,
	messages repository.TicketMessageRepository,
	provider classifier.Provider,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *ClassificationService {
	return &ClassificationService{
		tickets:    tickets,
		messages:   messages,
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Classify invokes the provider with the ticket's subject and description,
// merges the classification fields into the ticket, and appends one
// AGENT/DRAFT reply message. Both writes must succeed; a failure of either
// reports the whole attempt as failed so a retry redoes both. The merge is
// idempotent, and the worker's message guard prevents a second attempt once
// the reply exists, bounding the duplicate risk of the non-atomic pair.
func (s *ClassificationService) Classify(ctx context.Context, ticket *domain.Ticket) error {
	result, err := s.provider.Classify(ctx, classifier.Input{
		Subject:     ticket.Subject,
		Description: ticket.Description,
	})
	if err != nil {
		return &ClassificationError{TicketID: ticket.ID, Err: err}
	}

	update := repository.ClassificationUpdate{
		Category:       result.Category,
		UrgencyLevel:   result.UrgencyLevel,
		SentimentScore: result.SentimentScore,
	}
	if err := s.tickets.UpdateClassification(ctx, ticket.ID, update); err != nil {
		return &ClassificationError{TicketID: ticket.ID, Err: fmt.Errorf("merge classification: %w", err)}
	}

	msg := &domain.TicketMessage{
		TicketID: ticket.ID,
		UserType: domain.UserTypeAgent,
		Status:   domain.MessageStatusDraft,
		Message:  result.Response,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return &ClassificationError{TicketID: ticket.ID, Err: fmt.Errorf("create draft reply: %w", err)}
	}

	s.logger.Info("ticket classified",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("category", string(result.Category)),
		zap.String("urgency", string(result.UrgencyLevel)),
		zap.Int("sentiment", result.SentimentScore))

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketClassified,
			TicketID:  ticket.ID,
			Timestamp: time.Now(),
			Payload: events.TicketClassifiedPayload{
				Category:       result.Category,
				UrgencyLevel:   result.UrgencyLevel,
				SentimentScore: result.SentimentScore,
				MessageID:      msg.ID,
			},
		})
	}
	return nil
}
