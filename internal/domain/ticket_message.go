package domain

import "time"

// MessageUserType indicates who authored a message.
type MessageUserType string

const (
	UserTypeCustomer MessageUserType = "CUSTOMER"
	UserTypeAgent    MessageUserType = "AGENT"
)

// MessageStatus differentiates drafts from customer-visible replies.
type MessageStatus string

const (
	MessageStatusDraft     MessageStatus = "DRAFT"
	MessageStatusPublished MessageStatus = "PUBLISHED"
)

// TicketMessage captures communications in a ticket thread. The
// classification pipeline appends exactly one AGENT/DRAFT message per
// successful classification; agents publish drafts after review.
type TicketMessage struct {
	ID        int64
	TicketID  int64
	UserType  MessageUserType
	Status    MessageStatus
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
