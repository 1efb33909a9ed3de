// Package agent sends a user query to the configured model together with the
// instruction set for the requested result variant.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/cosmos-link/code-agent/internal/llm"
	"github.com/cosmos-link/code-agent/internal/metrics"
	"github.com/cosmos-link/code-agent/internal/persist"
	"github.com/rs/zerolog"
)

// Variant selects the reply schema
type Variant string

const (
	VariantCode     Variant = "code"
	VariantResearch Variant = "research"
)

// ParseVariant validates a variant name; empty means code
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantCode:
		return VariantCode, nil
	case VariantResearch:
		return VariantResearch, nil
	}
	return "", fmt.Errorf("unknown variant %q, must be 'code' or 'research'", s)
}

// Factory builds a provider client for one request
type Factory func(ctx context.Context, apiKey string) (llm.Client, error)

// ProviderFactory returns a Factory for a configured provider
func ProviderFactory(provider, model, baseURL string) Factory {
	return func(ctx context.Context, apiKey string) (llm.Client, error) {
		return llm.New(ctx, provider, llm.Options{APIKey: apiKey, Model: model, BaseURL: baseURL})
	}
}

// StaticFactory always hands out c, still enforcing the credential check
func StaticFactory(c llm.Client) Factory {
	return func(_ context.Context, apiKey string) (llm.Client, error) {
		if apiKey == "" {
			return nil, &llm.AuthenticationError{Provider: c.Name(), Err: llm.ErrCredentialMissing}
		}
		return c, nil
	}
}

// Request is one query to the model
type Request struct {
	Query   string
	Variant Variant
	// APIKey overrides the server key for this request
	APIKey string
}

// Agent renders instructions and invokes the model
type Agent struct {
	factory    Factory
	defaultKey string
	log        zerolog.Logger

	instructions map[Variant]string
}

// New creates an agent. defaultKey is used when a request carries no key.
func New(factory Factory, defaultKey string, log zerolog.Logger) (*Agent, error) {
	a := &Agent{
		factory:      factory,
		defaultKey:   defaultKey,
		log:          log,
		instructions: make(map[Variant]string),
	}

	code, err := render("code", codeInstructions, codeFormat, codeExamples)
	if err != nil {
		return nil, err
	}
	research, err := render("research", researchInstructions, researchFormat, researchExamples)
	if err != nil {
		return nil, err
	}
	a.instructions[VariantCode] = code
	a.instructions[VariantResearch] = research
	return a, nil
}

// Instructions returns the rendered system instruction for v
func (a *Agent) Instructions(v Variant) string {
	return a.instructions[v]
}

// HasDefaultKey reports whether a server-side key is configured
func (a *Agent) HasDefaultKey() bool {
	return a.defaultKey != ""
}

// Invoke sends the query and returns the model's raw text. It does not retry.
func (a *Agent) Invoke(ctx context.Context, req Request) (string, error) {
	system, ok := a.instructions[req.Variant]
	if !ok {
		return "", fmt.Errorf("unknown variant %q", req.Variant)
	}

	key := req.APIKey
	if key == "" {
		key = a.defaultKey
	}

	client, err := a.factory(ctx, key)
	if err != nil {
		return "", err
	}
	if c, ok := client.(interface{ Close() error }); ok {
		defer c.Close()
	}

	start := time.Now()
	raw, err := client.Complete(ctx, system, req.Query)
	elapsed := time.Since(start)
	metrics.LLMLatencySeconds.WithLabelValues(client.Name()).Observe(elapsed.Seconds())

	if err != nil {
		a.log.Error().Err(err).
			Str("provider", client.Name()).
			Str("variant", string(req.Variant)).
			Msg("model call failed")
		return "", err
	}

	a.log.Debug().
		Str("provider", client.Name()).
		Str("variant", string(req.Variant)).
		Dur("elapsed", elapsed).
		Int("chars", len(raw)).
		Msg("model replied")
	return raw, nil
}

func render(name, text, format string, examples []example) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s instructions: %w", name, err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Format":    format,
		"Languages": strings.Join(languages(), ", "),
		"Examples":  examples,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s instructions: %w", name, err)
	}
	return buf.String(), nil
}

func languages() []string {
	out := persist.Languages()
	sort.Strings(out)
	return out
}
