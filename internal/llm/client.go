package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrCredentialMissing is wrapped by AuthenticationError when no API key is
// available for a request.
var ErrCredentialMissing = errors.New("no API key found")

// Client is the interface for LLM clients
type Client interface {
	// Complete sends a system instruction and a user prompt and returns the
	// model's text reply
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Name returns the provider name
	Name() string
}

// Options configures a provider client
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AuthenticationError reports a missing or rejected credential
type AuthenticationError struct {
	Provider string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ServiceError reports a transport or model-side failure
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("failed to call %s API: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Default model per provider
var defaultModels = map[string]string{
	"gemini":    "gemini-2.0-flash",
	"openai":    "gpt-4o-mini",
	"deepseek":  "deepseek-chat",
	"anthropic": "claude-3-5-sonnet-latest",
}

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// New creates a client for provider. The key is checked here so a missing
// credential fails before any network call.
func New(ctx context.Context, provider string, opts Options) (Client, error) {
	if _, ok := defaultModels[provider]; !ok {
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
	if opts.APIKey == "" {
		return nil, &AuthenticationError{Provider: provider, Err: ErrCredentialMissing}
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(provider)
	}

	switch provider {
	case "openai":
		return NewOpenAIClient(opts), nil
	case "deepseek":
		return NewDeepSeekClient(opts), nil
	case "anthropic":
		return NewAnthropicClient(opts), nil
	default:
		return NewGeminiClient(ctx, opts)
	}
}

// emptyResponse is returned when a provider answers without any text
func emptyResponse(provider string) error {
	return &ServiceError{Provider: provider, Err: errors.New("empty response")}
}
