// Package provider defines the model provider abstraction used by the
// generation engine: provider identities, the text-generation contract,
// the deterministic model selector, and the breaker-guarded fallback
// executor.
package provider

import (
	"context"

	"github.com/complyforge/complyforge/errors"
)

// ID identifies a model provider.
type ID string

const (
	// Anthropic is favored for structured long-form narrative writing.
	Anthropic ID = "anthropic"
	// OpenAI is favored for precise technical and procedural content.
	OpenAI ID = "openai"
	// Gemini is the high-context provider for templates that need very
	// large context windows.
	Gemini ID = "gemini"
	// Auto lets the selector pick a provider by document category.
	Auto ID = "auto"
)

// ParseID converts a string to a provider ID.
func ParseID(s string) (ID, error) {
	switch s {
	case "anthropic", "claude":
		return Anthropic, nil
	case "openai", "gpt":
		return OpenAI, nil
	case "gemini", "google":
		return Gemini, nil
	case "auto", "":
		return Auto, nil
	default:
		return "", errors.Newf("unknown provider: %s (valid: anthropic, openai, gemini, auto)", s)
	}
}

// Request is a provider-agnostic text-generation request.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  *float64 // nil = provider default
	MaxTokens    *int     // nil = provider default
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is the outcome of one successful provider call.
type Result struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Generator is the contract every provider adapter implements.
type Generator interface {
	// Generate performs one text-completion call. Implementations must
	// honor ctx cancellation and return an error for any non-2xx
	// provider response.
	Generate(ctx context.Context, req Request) (*Result, error)

	// ID returns the provider identity.
	ID() ID
}
