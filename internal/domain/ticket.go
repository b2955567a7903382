package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "OPEN"
	TicketStatusClosed TicketStatus = "CLOSED"
)

// TicketCategory is assigned by the classification pipeline.
type TicketCategory string

const (
	CategoryBilling        TicketCategory = "BILLING"
	CategoryTechnical      TicketCategory = "TECHNICAL"
	CategoryFeatureRequest TicketCategory = "FEATURE_REQUEST"
)

// TicketUrgency enumerates urgency levels.
type TicketUrgency string

const (
	UrgencyHigh   TicketUrgency = "HIGH"
	UrgencyMedium TicketUrgency = "MEDIUM"
	UrgencyLow    TicketUrgency = "LOW"
)

// Ticket is the aggregate for support requests. Category stays nil until a
// classification job succeeds; urgency and sentiment keep their column
// defaults (LOW, 1) until then.
type Ticket struct {
	ID             int64
	Subject        string
	CustomerName   string
	CustomerEmail  *string
	Description    string
	Status         TicketStatus
	Category       *TicketCategory
	UrgencyLevel   TicketUrgency
	SentimentScore int
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// ValidCategory reports whether the value belongs to the category enum.
func ValidCategory(v TicketCategory) bool {
	switch v {
	case CategoryBilling, CategoryTechnical, CategoryFeatureRequest:
		return true
	}
	return false
}

// ValidUrgency reports whether the value belongs to the urgency enum.
func ValidUrgency(v TicketUrgency) bool {
	switch v {
	case UrgencyHigh, UrgencyMedium, UrgencyLow:
		return true
	}
	return false
}
