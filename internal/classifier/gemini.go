package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/ticket-triage/internal/config"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-3-flash-preview"
)

// Gemini implements Provider for the Google Generative Language API using
// constrained JSON generation: the response schema is pushed down into the
// request so the model can only emit documents matching the contract.
type Gemini struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

// NewGemini creates the Gemini provider from classifier configuration.
func NewGemini(cfg config.ClassifierConfig) *Gemini {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     cfg.APIKey,
	}
}

// Name identifies the provider in logs and configuration.
func (g *Gemini) Name() string {
	return ProviderGemini
}

// Classify sends a generateContent request and parses the structured reply.
func (g *Gemini) Classify(ctx context.Context, input Input) (*Result, error) {
	wireRequest := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: buildPrompt(input)}},
		}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   geminiResultSchema,
		},
	}

	body, err := json.Marshal(wireRequest)
	if err != nil {
		return nil, fmt.Errorf("classifier/gemini: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("classifier/gemini: build request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", g.apiKey)

	httpResponse, err := g.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("classifier/gemini: request failed: %w", err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(httpResponse.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("classifier/gemini: read response: %w", err)
	}
	if httpResponse.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier/gemini: status %d: %s",
			httpResponse.StatusCode, truncate(string(responseBody), 200))
	}

	var wireResponse geminiResponse
	if err := json.Unmarshal(responseBody, &wireResponse); err != nil {
		return nil, &MalformedOutputError{Reason: fmt.Sprintf("invalid response envelope: %v", err)}
	}
	text := wireResponse.text()
	if text == "" {
		return nil, &MalformedOutputError{Reason: "empty candidate text"}
	}

	return ParseResult([]byte(text))
}

// --- Gemini wire types ---
//
// These map directly to the Generative Language API JSON format and are
// kept separate from the public types because the wire format carries
// request plumbing (candidates, parts) the rest of the code never sees.

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string          `json:"responseMimeType"`
	ResponseSchema   json.RawMessage `json:"responseSchema"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		builder.WriteString(part.Text)
	}
	return builder.String()
}

// geminiResultSchema constrains generation to the Result contract.
var geminiResultSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"category": {
			"type": "string",
			"enum": ["BILLING", "TECHNICAL", "FEATURE_REQUEST"]
		},
		"urgency_level": {
			"type": "string",
			"enum": ["HIGH", "MEDIUM", "LOW"]
		},
		"sentiment_score": {
			"type": "integer",
			"description": "A scale from 1 (lowest) to 10 (highest) based on user sentimental level"
		},
		"response": {
			"type": "string",
			"description": "Provide a proper and polite response based on the context and from your analysis"
		},
		"reasoning": {"type": "string"}
	},
	"required": ["category", "urgency_level", "sentiment_score", "response"]
}`)

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
