package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/repository"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// MessageService manages the agent draft workflow: manual drafts, edits,
// and publishing a draft to the customer.
type MessageService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	dispatcher events.Dispatcher
}

// NewMessageService constructs the service.
func NewMessageService(tickets repository.TicketRepository, messages repository.TicketMessageRepository, dispatcher events.Dispatcher) *MessageService {
	return &MessageService{
		tickets:    tickets,
		messages:   messages,
		dispatcher: dispatcher,
	}
}

// CreateDraft appends an AGENT/DRAFT message to a ticket.
func (s *MessageService) CreateDraft(ctx context.Context, ticketID int64, body string) (*domain.TicketMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("message can't be empty", nil)
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}

	msg := &domain.TicketMessage{
		TicketID: ticketID,
		UserType: domain.UserTypeAgent,
		Status:   domain.MessageStatusDraft,
		Message:  strings.TrimSpace(body),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateDraft rewrites a message body.
func (s *MessageService) UpdateDraft(ctx context.Context, id int64, body string) (*domain.TicketMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("message can't be empty", nil)
	}
	if _, err := s.messages.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.messages.UpdateBody(ctx, id, strings.TrimSpace(body))
}

// Publish flips a draft to PUBLISHED, making it customer visible.
func (s *MessageService) Publish(ctx context.Context, id int64) (*domain.TicketMessage, error) {
	if _, err := s.messages.GetByID(ctx, id); err != nil {
		return nil, err
	}
	msg, err := s.messages.Publish(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketMessagePublished,
			TicketID:  msg.TicketID,
			Timestamp: time.Now(),
			Payload: events.TicketMessagePublishedPayload{
				MessageID: msg.ID,
				UserType:  msg.UserType,
			},
		})
	}
	return msg, nil
}
