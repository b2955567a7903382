package classifier

import (
	"fmt"
	"strings"

	"github.com/spec-kit/ticket-triage/internal/config"
)

// Known provider names. The set is closed: adding a provider means adding a
// variant here, not registering strings at runtime.
const (
	ProviderGemini = "GEMINI"
	ProviderOpenAI = "OPENAI"
)

// Resolve maps the configured provider name to its implementation. Called
// once at startup so an unknown name or missing credentials fail the boot,
// not individual jobs.
func Resolve(cfg config.ClassifierConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier: LLM_API_KEY not set")
	}
	switch strings.ToUpper(cfg.Provider) {
	case ProviderGemini, "":
		return NewGemini(cfg), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	default:
		return nil, fmt.Errorf("classifier: unknown provider %q", cfg.Provider)
	}
}
