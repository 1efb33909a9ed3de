package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GeminiClient implements the Client interface for Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, &ServiceError{Provider: "gemini", Err: fmt.Errorf("gemini init: %w", err)}
	}
	return &GeminiClient{client: client, model: opts.Model}, nil
}

// Name returns the provider name
func (g *GeminiClient) Name() string {
	return "gemini"
}

// Complete sends the prompt with system as the model's system instruction
func (g *GeminiClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if isGeminiAuthError(err) {
			return "", &AuthenticationError{Provider: "gemini", Err: err}
		}
		return "", &ServiceError{Provider: "gemini", Err: err}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", emptyResponse("gemini")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", emptyResponse("gemini")
	}
	return b.String(), nil
}

// Close releases the underlying connection
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func isGeminiAuthError(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if isAuthStatus(gerr.Code) {
			return true
		}
		if strings.Contains(gerr.Body, "API_KEY_INVALID") || strings.Contains(gerr.Message, "API_KEY_INVALID") {
			return true
		}
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return true
	}
	// Invalid keys are reported as INVALID_ARGUMENT with this reason.
	return strings.Contains(err.Error(), "API_KEY_INVALID")
}
