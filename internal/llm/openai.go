package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements the Client interface for OpenAI-compatible APIs
type OpenAIClient struct {
	client   *openai.Client
	model    string
	provider string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(opts Options) *OpenAIClient {
	return newCompatClient("openai", opts)
}

// NewDeepSeekClient creates a client for DeepSeek's OpenAI-compatible endpoint
func NewDeepSeekClient(opts Options) *OpenAIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.deepseek.com"
	}
	return newCompatClient("deepseek", opts)
}

func newCompatClient(provider string, opts Options) *OpenAIClient {
	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}

	return &OpenAIClient{
		client:   openai.NewClientWithConfig(config),
		model:    opts.Model,
		provider: provider,
	}
}

// Name returns the provider name
func (c *OpenAIClient) Name() string {
	return c.provider
}

// Complete sends the system and user messages as one chat completion
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.2,
		},
	)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && isAuthStatus(apiErr.HTTPStatusCode) {
			return "", &AuthenticationError{Provider: c.provider, Err: err}
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && isAuthStatus(reqErr.HTTPStatusCode) {
			return "", &AuthenticationError{Provider: c.provider, Err: err}
		}
		return "", &ServiceError{Provider: c.provider, Err: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", emptyResponse(c.provider)
	}

	return resp.Choices[0].Message.Content, nil
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
