package llm

import "fmt"

// New returns a Client for the named provider. An empty provider defaults
// to anthropic; an empty model uses the provider's default.
func New(provider, model string) (Client, error) {
	switch provider {
	case "", "anthropic", "claude":
		return NewAnthropicClient(model), nil
	case "openai":
		return NewOpenAIClient(model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: must be anthropic or openai", provider)
	}
}

// APIKeyEnvVar names the environment variable carrying the provider's key.
func APIKeyEnvVar(provider string) string {
	if provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}
