package classifier

import (
	"errors"
	"strings"
	"testing"
)

func TestParseResultAcceptsValidDocument(t *testing.T) {
	raw := []byte(`{
		"category": "BILLING",
		"urgency_level": "HIGH",
		"sentiment_score": 8,
		"response": "We're sorry about the duplicate charge.",
		"reasoning": "Customer mentions a double charge."
	}`)
	result, err := ParseResult(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if result.Category != "BILLING" || result.UrgencyLevel != "HIGH" {
		t.Fatalf("wrong classification: %+v", result)
	}
	if result.SentimentScore != 8 {
		t.Fatalf("sentiment: got %d", result.SentimentScore)
	}
	if result.Response == "" {
		t.Fatal("response lost")
	}
}

func TestParseResultRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `this ticket is about billing`},
		{"missing category", `{"urgency_level":"HIGH","sentiment_score":5,"response":"ok"}`},
		{"category outside enum", `{"category":"SALES","urgency_level":"HIGH","sentiment_score":5,"response":"ok"}`},
		{"missing urgency", `{"category":"BILLING","sentiment_score":5,"response":"ok"}`},
		{"urgency outside enum", `{"category":"BILLING","urgency_level":"URGENT","sentiment_score":5,"response":"ok"}`},
		{"sentiment below range", `{"category":"BILLING","urgency_level":"HIGH","sentiment_score":0,"response":"ok"}`},
		{"sentiment above range", `{"category":"BILLING","urgency_level":"HIGH","sentiment_score":11,"response":"ok"}`},
		{"missing response", `{"category":"BILLING","urgency_level":"HIGH","sentiment_score":5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseResult([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected rejection")
			}
			var malformed *MalformedOutputError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedOutputError, got %T", err)
			}
		})
	}
}

func TestBuildPromptEmbedsSubjectAndDescription(t *testing.T) {
	prompt := buildPrompt(Input{Subject: "Charged twice", Description: "I was billed two times"})
	if !strings.HasPrefix(prompt, "Analyze this support ticket and classify it: ") {
		t.Fatalf("unexpected prefix: %q", prompt)
	}
	if !strings.Contains(prompt, `"subject":"Charged twice"`) {
		t.Fatalf("subject missing: %q", prompt)
	}
	if !strings.Contains(prompt, `"description":"I was billed two times"`) {
		t.Fatalf("description missing: %q", prompt)
	}
}
