package dto

import (
	"time"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// CreateTicketRequest is the ticket creation payload.
type CreateTicketRequest struct {
	Subject       string  `json:"subject"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail *string `json:"customer_email"`
	Description   string  `json:"description"`
}

// TicketResponse is the API shape of a ticket.
type TicketResponse struct {
	ID             int64                  `json:"id"`
	Subject        string                 `json:"subject"`
	CustomerName   string                 `json:"customer_name"`
	CustomerEmail  *string                `json:"customer_email,omitempty"`
	Status         domain.TicketStatus    `json:"status"`
	Category       *domain.TicketCategory `json:"category,omitempty"`
	UrgencyLevel   domain.TicketUrgency   `json:"urgency_level"`
	SentimentScore int                    `json:"sentiment_score"`
	Description    string                 `json:"description"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
}

// TicketDetailResponse is a ticket with its message thread.
type TicketDetailResponse struct {
	TicketResponse
	Messages []TicketMessageResponse `json:"messages"`
}

// ListMeta carries pagination metadata.
type ListMeta struct {
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
}

// TicketListResponse is a paginated ticket listing.
type TicketListResponse struct {
	Meta ListMeta         `json:"meta"`
	Data []TicketResponse `json:"data"`
}
