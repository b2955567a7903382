package classifier

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/spec-kit/ticket-triage/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI implements Provider for the OpenAI Chat Completions API. Schema
// enforcement uses strict structured outputs (response_format json_schema),
// the Chat Completions equivalent of Gemini's constrained generation.
// Compatible with any endpoint speaking the same wire format via BaseURL.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates the OpenAI provider from classifier configuration.
func NewOpenAI(cfg config.ClassifierConfig) *OpenAI {
	requestOptions := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout()),
	}
	if cfg.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClient(requestOptions...),
		model:  model,
	}
}

// Name identifies the provider in logs and configuration.
func (p *OpenAI) Name() string {
	return ProviderOpenAI
}

// Classify sends a chat completion request and parses the structured reply.
func (p *OpenAI) Classify(ctx context.Context, input Input) (*Result, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You classify customer support tickets."),
			openai.UserMessage(buildPrompt(input)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "ticket_classification",
					Schema: openaiResultSchema,
					Strict: openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classifier/openai: request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, &MalformedOutputError{Reason: "no choices in completion"}
	}

	return ParseResult([]byte(completion.Choices[0].Message.Content))
}

// openaiResultSchema mirrors the Result contract for strict structured
// outputs, which require additionalProperties:false and every property
// listed as required.
var openaiResultSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"category": map[string]any{
			"type": "string",
			"enum": []string{"BILLING", "TECHNICAL", "FEATURE_REQUEST"},
		},
		"urgency_level": map[string]any{
			"type": "string",
			"enum": []string{"HIGH", "MEDIUM", "LOW"},
		},
		"sentiment_score": map[string]any{
			"type":        "integer",
			"description": "A scale from 1 (lowest) to 10 (highest) based on user sentimental level",
		},
		"response": map[string]any{
			"type":        "string",
			"description": "Provide a proper and polite response based on the context and from your analysis",
		},
		"reasoning": map[string]any{"type": "string"},
	},
	"required":             []string{"category", "urgency_level", "sentiment_score", "response", "reasoning"},
	"additionalProperties": false,
}
