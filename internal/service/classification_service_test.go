package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/classifier"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/repository"
)

type stubTicketStore struct {
	byID map[int64]*domain.Ticket

	created []*domain.Ticket
	updates map[int64]repository.ClassificationUpdate

	createErr error
	updateErr error

	nextID int64
}

func newStubTicketStore() *stubTicketStore {
	return &stubTicketStore{
		byID:    map[int64]*domain.Ticket{},
		updates: map[int64]repository.ClassificationUpdate{},
		nextID:  1,
	}
}

func (s *stubTicketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	if s.createErr != nil {
		return s.createErr
	}
	ticket.ID = s.nextID
	s.nextID++
	s.created = append(s.created, ticket)
	s.byID[ticket.ID] = ticket
	return nil
}

func (s *stubTicketStore) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := s.byID[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return ticket, nil
}

func (s *stubTicketStore) List(ctx context.Context, page repository.TicketPage) ([]domain.Ticket, error) {
	out := make([]domain.Ticket, 0, len(s.byID))
	for _, t := range s.byID {
		out = append(out, *t)
	}
	if page.Offset >= len(out) {
		return nil, nil
	}
	out = out[page.Offset:]
	if page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, nil
}

func (s *stubTicketStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.byID)), nil
}

func (s *stubTicketStore) UpdateClassification(ctx context.Context, id int64, update repository.ClassificationUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates[id] = update
	return nil
}

func (s *stubTicketStore) Resolve(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, ok := s.byID[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	ticket.Status = domain.TicketStatusClosed
	return ticket, nil
}

type stubMessageStore struct {
	created   []*domain.TicketMessage
	createErr error
	nextID    int64
}

func (s *stubMessageStore) Create(ctx context.Context, msg *domain.TicketMessage) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	msg.ID = s.nextID
	s.created = append(s.created, msg)
	return nil
}

func (s *stubMessageStore) GetByID(ctx context.Context, id int64) (*domain.TicketMessage, error) {
	for _, msg := range s.created {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, errors.New("no rows")
}

func (s *stubMessageStore) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	var out []domain.TicketMessage
	for _, msg := range s.created {
		if msg.TicketID == ticketID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (s *stubMessageStore) UpdateBody(ctx context.Context, id int64, body string) (*domain.TicketMessage, error) {
	msg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	msg.Message = body
	return msg, nil
}

func (s *stubMessageStore) Publish(ctx context.Context, id int64) (*domain.TicketMessage, error) {
	msg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	msg.Status = domain.MessageStatusPublished
	return msg, nil
}

type stubProvider struct {
	result *classifier.Result
	err    error
	inputs []classifier.Input
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Classify(ctx context.Context, input classifier.Input) (*classifier.Result, error) {
	p.inputs = append(p.inputs, input)
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func billingResult() *classifier.Result {
	return &classifier.Result{
		Category:       domain.CategoryBilling,
		UrgencyLevel:   domain.UrgencyHigh,
		SentimentScore: 8,
		Response:       "We're sorry about the duplicate charge and are looking into it.",
	}
}

func TestClassifyMergesResultAndDraftsReply(t *testing.T) {
	tickets := newStubTicketStore()
	ticket := &domain.Ticket{Subject: "Charged twice", CustomerName: "Dana", Description: "I was billed two times"}
	if err := tickets.Create(context.Background(), ticket); err != nil {
		t.Fatal(err)
	}
	messages := &stubMessageStore{}
	provider := &stubProvider{result: billingResult()}

	svc := NewClassificationService(tickets, messages, provider, nil, zap.NewNop())
	if err := svc.Classify(context.Background(), ticket); err != nil {
		t.Fatalf("classify: %v", err)
	}

	if len(provider.inputs) != 1 {
		t.Fatalf("expected one provider call, got %d", len(provider.inputs))
	}
	if provider.inputs[0].Subject != "Charged twice" || provider.inputs[0].Description != "I was billed two times" {
		t.Fatalf("provider received wrong input: %+v", provider.inputs[0])
	}

	update, ok := tickets.updates[ticket.ID]
	if !ok {
		t.Fatal("classification never merged into ticket")
	}
	if update.Category != domain.CategoryBilling || update.UrgencyLevel != domain.UrgencyHigh || update.SentimentScore != 8 {
		t.Fatalf("wrong merge: %+v", update)
	}

	if len(messages.created) != 1 {
		t.Fatalf("expected one draft reply, got %d", len(messages.created))
	}
	draft := messages.created[0]
	if draft.TicketID != ticket.ID {
		t.Fatalf("draft bound to wrong ticket: %d", draft.TicketID)
	}
	if draft.UserType != domain.UserTypeAgent || draft.Status != domain.MessageStatusDraft {
		t.Fatalf("draft must be AGENT/DRAFT, got %s/%s", draft.UserType, draft.Status)
	}
	if draft.Message != provider.result.Response {
		t.Fatalf("draft body: got %q", draft.Message)
	}
}

func TestClassifyProviderFailureWritesNothing(t *testing.T) {
	tickets := newStubTicketStore()
	ticket := &domain.Ticket{Subject: "Help", CustomerName: "Dana", Description: "Broken"}
	if err := tickets.Create(context.Background(), ticket); err != nil {
		t.Fatal(err)
	}
	messages := &stubMessageStore{}
	provider := &stubProvider{err: errors.New("upstream 503")}

	svc := NewClassificationService(tickets, messages, provider, nil, zap.NewNop())
	err := svc.Classify(context.Background(), ticket)
	if err == nil {
		t.Fatal("expected error")
	}
	var clsErr *ClassificationError
	if !errors.As(err, &clsErr) {
		t.Fatalf("expected ClassificationError, got %T", err)
	}
	if clsErr.TicketID != ticket.ID {
		t.Fatalf("wrong ticket id: %d", clsErr.TicketID)
	}
	if len(tickets.updates) != 0 {
		t.Fatal("merge must not happen when the provider fails")
	}
	if len(messages.created) != 0 {
		t.Fatal("no draft must be written when the provider fails")
	}
}

func TestClassifyMergeFailureIsRetryable(t *testing.T) {
	tickets := newStubTicketStore()
	ticket := &domain.Ticket{Subject: "Help", CustomerName: "Dana", Description: "Broken"}
	if err := tickets.Create(context.Background(), ticket); err != nil {
		t.Fatal(err)
	}
	tickets.updateErr = errors.New("deadlock detected")
	messages := &stubMessageStore{}
	provider := &stubProvider{result: billingResult()}

	svc := NewClassificationService(tickets, messages, provider, nil, zap.NewNop())
	err := svc.Classify(context.Background(), ticket)
	var clsErr *ClassificationError
	if !errors.As(err, &clsErr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
	if len(messages.created) != 0 {
		t.Fatal("draft must not be written when the merge fails")
	}
}

func TestClassifyDraftFailureIsRetryable(t *testing.T) {
	tickets := newStubTicketStore()
	ticket := &domain.Ticket{Subject: "Help", CustomerName: "Dana", Description: "Broken"}
	if err := tickets.Create(context.Background(), ticket); err != nil {
		t.Fatal(err)
	}
	messages := &stubMessageStore{createErr: errors.New("connection reset")}
	provider := &stubProvider{result: billingResult()}

	svc := NewClassificationService(tickets, messages, provider, nil, zap.NewNop())
	err := svc.Classify(context.Background(), ticket)
	var clsErr *ClassificationError
	if !errors.As(err, &clsErr) {
		t.Fatalf("expected ClassificationError, got %v", err)
	}
}
