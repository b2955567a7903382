package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/repository"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// JobClassifyTicket is the job name consumed by the classification worker.
const JobClassifyTicket = "ai-classify-ticket"

// ClassifyTicketPayload is the queue payload: just the ticket id.
type ClassifyTicketPayload struct {
	TicketID int64 `json:"ticketId"`
}

// Enqueuer is the producer-side queue capability the ticket service needs.
type Enqueuer interface {
	Add(ctx context.Context, jobName string, payload any) (string, error)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	queue      Enqueuer
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Queue       Enqueuer
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject       string
	CustomerName  string
	CustomerEmail *string
	Description   string
}

// TicketListMeta carries pagination metadata for listings.
type TicketListMeta struct {
	Total      int64
	TotalPages int
	Page       int
	Limit      int
}

// TicketList bundles a ticket page with its pagination metadata.
type TicketList struct {
	Meta TicketListMeta
	Data []domain.Ticket
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		queue:      deps.Queue,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket persists a new ticket and enqueues its classification job.
// The job is enqueued after the row is durable; if enqueueing fails the
// error propagates to the caller while the created ticket remains, so the
// inconsistency is surfaced rather than masked.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject can't be empty", nil)
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, apperrors.NewValidationError("customer_name can't be empty", nil)
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, apperrors.NewValidationError("description can't be empty", nil)
	}

	ticket := &domain.Ticket{
		Subject:       strings.TrimSpace(input.Subject),
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerEmail: input.CustomerEmail,
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TicketStatusOpen,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	jobID, err := s.queue.Add(ctx, JobClassifyTicket, ClassifyTicketPayload{TicketID: ticket.ID})
	if err != nil {
		return nil, fmt.Errorf("ticket %d created but classification enqueue failed: %w", ticket.ID, err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Subject:      ticket.Subject,
			CustomerName: ticket.CustomerName,
			JobID:        jobID,
		},
	})
	return ticket, nil
}

// ListTickets returns a page of tickets in creation order with totals.
func (s *TicketService) ListTickets(ctx context.Context, page, limit int) (*TicketList, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	total, err := s.tickets.Count(ctx)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, repository.TicketPage{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &TicketList{
		Meta: TicketListMeta{
			Total:      total,
			TotalPages: totalPages,
			Page:       page,
			Limit:      limit,
		},
		Data: tickets,
	}, nil
}

// GetTicket fetches a ticket with its message thread.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, msgs, nil
}

// ResolveTicket closes a ticket and stamps its completion time.
func (s *TicketService) ResolveTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Payload: events.TicketResolvedPayload{
			CompletedAt: ticket.CompletedAt,
		},
	})
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
