package models

import "context"

// Provider represents a model provider (e.g., Google, OpenAI)
type Provider interface {
	Name() string
	SupportsModel(modelName string) bool
	// Configure performs the provider's one-time, process-wide service
	// setup. Calls after the first successful one are no-ops.
	Configure(ctx context.Context, apiKey string) error
	// NewGenerator binds a model handle to the given parameters
	NewGenerator(modelName string, params GenerationParams, safety []SafetySetting) (Generator, error)
}

// Generator performs a single completion attempt. Failures are returned as
// classified *Error values.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
