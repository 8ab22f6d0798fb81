package ai

import (
	"fmt"

	"mailtriage/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "openai", "gemini", "ollama" or "auto"

	// OpenAI config
	OpenAIAPIKey string
	OpenAIModel  string

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string
	OllamaModel   string
}

// NewClassifierService creates a ClassifierService based on the config.
// "auto" picks OpenAI as primary with Gemini as fallback when both keys are
// configured, otherwise whichever single provider has credentials, falling
// back to a local Ollama instance when neither does.
func NewClassifierService(cfg Config) (ClassifierService, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil

	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		if cfg.OpenAIAPIKey != "" && cfg.GeminiAPIKey != "" {
			return NewFallbackService(
				NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel), "OpenAI",
				gemini.NewGeminiService(cfg.GeminiAPIKey), "Gemini",
			), nil
		}
		if cfg.OpenAIAPIKey != "" {
			return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
		}
		if cfg.GeminiAPIKey != "" {
			return gemini.NewGeminiService(cfg.GeminiAPIKey), nil
		}
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil
	}
}
