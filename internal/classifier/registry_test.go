package classifier

import (
	"testing"

	"github.com/spec-kit/ticket-triage/internal/config"
)

func TestResolveGemini(t *testing.T) {
	provider, err := Resolve(config.ClassifierConfig{Provider: "GEMINI", APIKey: "k"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if provider.Name() != ProviderGemini {
		t.Fatalf("got %q", provider.Name())
	}
}

func TestResolveDefaultsToGemini(t *testing.T) {
	provider, err := Resolve(config.ClassifierConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if provider.Name() != ProviderGemini {
		t.Fatalf("got %q", provider.Name())
	}
}

func TestResolveOpenAICaseInsensitive(t *testing.T) {
	provider, err := Resolve(config.ClassifierConfig{Provider: "openai", APIKey: "k"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if provider.Name() != ProviderOpenAI {
		t.Fatalf("got %q", provider.Name())
	}
}

func TestResolveRejectsUnknownProvider(t *testing.T) {
	if _, err := Resolve(config.ClassifierConfig{Provider: "MISTRAL", APIKey: "k"}); err == nil {
		t.Fatal("unknown provider must fail resolution")
	}
}

func TestResolveRequiresAPIKey(t *testing.T) {
	if _, err := Resolve(config.ClassifierConfig{Provider: "GEMINI"}); err == nil {
		t.Fatal("missing key must fail resolution")
	}
}
