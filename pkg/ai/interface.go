package ai

import "context"

// ClassifierService is the interface for LLM-backed email classification.
// Implement this interface to add new AI providers (OpenAI, Gemini, Ollama, ...).
// The provider receives the fully built routing prompt and returns the raw
// model output; prompt construction and response parsing live in the
// classification gateway, not here.
type ClassifierService interface {
	ClassifyEmail(ctx context.Context, prompt string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
