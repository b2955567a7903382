package dto

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// CreateMessageRequest is the draft creation payload.
type CreateMessageRequest struct {
	Message string `json:"message"`
}

// UpdateMessageRequest is the draft edit payload.
type UpdateMessageRequest struct {
	Message string `json:"message"`
}

// TicketMessageResponse is the API shape of a ticket message.
type TicketMessageResponse struct {
	ID        int64                  `json:"id"`
	TicketID  int64                  `json:"ticket_id"`
	UserType  domain.MessageUserType `json:"user_type"`
	Status    domain.MessageStatus   `json:"status"`
	Message   string                 `json:"message"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
