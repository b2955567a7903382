package classifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// Input carries the only ticket fields ever sent to a provider. Limiting
// the request to subject and description keeps it deterministic for a given
// ticket content and avoids leaking customer identity.
type Input struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// Result is the structured classification contract every provider must
// honor. Reasoning is accepted but never persisted.
type Result struct {
	Category       domain.TicketCategory `json:"category"`
	UrgencyLevel   domain.TicketUrgency  `json:"urgency_level"`
	SentimentScore int                   `json:"sentiment_score"`
	Response       string                `json:"response"`
	Reasoning      string                `json:"reasoning,omitempty"`
}

// Provider turns ticket text into a structured classification. Concrete
// providers differ only in the model invoked and how the response schema is
// enforced.
type Provider interface {
	Name() string
	Classify(ctx context.Context, input Input) (*Result, error)
}

// MalformedOutputError reports provider output that violates the response
// schema. Treated as retryable: it may be a transient model hiccup.
type MalformedOutputError struct {
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return "classifier: malformed provider output: " + e.Reason
}

// ParseResult decodes and validates raw provider JSON against the contract.
func ParseResult(raw []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	return &result, nil
}

// Validate enforces the response schema bit-exactly: enum membership,
// sentiment bounds, and a non-empty reply text.
func (r *Result) Validate() error {
	if r.Category == "" {
		return &MalformedOutputError{Reason: "missing category"}
	}
	if !domain.ValidCategory(r.Category) {
		return &MalformedOutputError{Reason: fmt.Sprintf("category %q not in enum", r.Category)}
	}
	if r.UrgencyLevel == "" {
		return &MalformedOutputError{Reason: "missing urgency_level"}
	}
	if !domain.ValidUrgency(r.UrgencyLevel) {
		return &MalformedOutputError{Reason: fmt.Sprintf("urgency_level %q not in enum", r.UrgencyLevel)}
	}
	if r.SentimentScore < 1 || r.SentimentScore > 10 {
		return &MalformedOutputError{Reason: fmt.Sprintf("sentiment_score %d out of range [1,10]", r.SentimentScore)}
	}
	if r.Response == "" {
		return &MalformedOutputError{Reason: "missing response"}
	}
	return nil
}

// buildPrompt serializes the classification request the same way for every
// provider.
func buildPrompt(input Input) string {
	payload, _ := json.Marshal(input)
	return "Analyze this support ticket and classify it: " + string(payload)
}
