package events

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketClassified       EventType = "ticket_classified"
	EventTicketResolved         EventType = "ticket_resolved"
	EventTicketMessagePublished EventType = "ticket_message_published"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject      string `json:"subject"`
	CustomerName string `json:"customer_name"`
	JobID        string `json:"job_id,omitempty"`
}

// TicketClassifiedPayload payload.
type TicketClassifiedPayload struct {
	Category       domain.TicketCategory `json:"category"`
	UrgencyLevel   domain.TicketUrgency  `json:"urgency_level"`
	SentimentScore int                   `json:"sentiment_score"`
	MessageID      int64                 `json:"message_id"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TicketMessagePublishedPayload payload.
type TicketMessagePublishedPayload struct {
	MessageID int64                  `json:"message_id"`
	UserType  domain.MessageUserType `json:"user_type"`
}
