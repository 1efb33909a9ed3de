// Package generator runs the query → model → parse → save pipeline, both
// synchronously and for queued tasks.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cosmos-link/code-agent/internal/agent"
	"github.com/cosmos-link/code-agent/internal/extract"
	"github.com/cosmos-link/code-agent/internal/llm"
	"github.com/cosmos-link/code-agent/internal/metrics"
	"github.com/cosmos-link/code-agent/internal/persist"
	"github.com/cosmos-link/code-agent/internal/task"
	"github.com/rs/zerolog"
)

// ErrEmptyQuery is returned for blank queries; the model is not called
var ErrEmptyQuery = errors.New("please enter a prompt before generating")

// Invoker sends a query to the model
type Invoker interface {
	Invoke(ctx context.Context, req agent.Request) (string, error)
}

// Publisher pushes saved files to a remote repository
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, name, description string, files map[string]string) (string, error)
}

// Request is one generation request
type Request struct {
	Query   string
	Variant agent.Variant
	APIKey  string
}

// Outcome is the result of a successful request
type Outcome struct {
	Variant  agent.Variant
	Raw      string
	Code     *extract.CodeResult
	Research *extract.ResearchResult
	Saved    persist.Saved
}

// Content returns the text that was written to disk
func (o *Outcome) Content() string {
	if o.Code != nil {
		return o.Code.Code
	}
	if o.Research != nil {
		return formatResearch(*o.Research)
	}
	return ""
}

// Generator handles generation requests
type Generator struct {
	invoker     Invoker
	persister   *persist.Persister
	taskManager *task.Manager
	publisher   Publisher
	log         zerolog.Logger
}

// NewGenerator creates a new generator. publisher and taskManager may be nil.
func NewGenerator(invoker Invoker, persister *persist.Persister, taskManager *task.Manager, publisher Publisher, log zerolog.Logger) *Generator {
	return &Generator{
		invoker:     invoker,
		persister:   persister,
		taskManager: taskManager,
		publisher:   publisher,
		log:         log,
	}
}

// Generate runs a request to completion. Parse failures are returned as
// *extract.ParseError so callers can show the raw reply. When saving fails
// the parsed outcome is returned alongside the error, with Saved unset.
func (g *Generator) Generate(ctx context.Context, req Request) (*Outcome, error) {
	return g.run(ctx, req, func(task.Status, string) {})
}

type reporter func(status task.Status, message string)

func (g *Generator) run(ctx context.Context, req Request, report reporter) (out *Outcome, err error) {
	if req.Variant == "" {
		req.Variant = agent.VariantCode
	}
	defer func() {
		metrics.GenerationsTotal.WithLabelValues(string(req.Variant), Classify(err)).Inc()
	}()

	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	report(task.StatusInvoking, "Calling the model...")
	raw, err := g.invoker.Invoke(ctx, agent.Request{
		Query:   req.Query,
		Variant: req.Variant,
		APIKey:  req.APIKey,
	})
	if err != nil {
		return nil, err
	}

	out = &Outcome{Variant: req.Variant, Raw: raw}

	report(task.StatusParsing, "Parsing the response...")
	switch req.Variant {
	case agent.VariantResearch:
		res, err := extract.ParseResearch(raw)
		if err != nil {
			return nil, err
		}
		out.Research = &res
	default:
		res, err := extract.ParseCode(raw)
		if err != nil {
			return nil, err
		}
		out.Code = &res
	}

	report(task.StatusSaving, "Saving to disk...")
	if out.Code != nil {
		out.Saved, err = g.persister.SaveCode(out.Code.Code, out.Code.Language, out.Code.Filename)
	} else {
		out.Saved, err = g.persister.SaveText("", out.Content())
	}
	if err != nil {
		return out, err
	}

	g.log.Info().
		Str("variant", string(req.Variant)).
		Str("file", out.Saved.Name).
		Msg("generation complete")
	return out, nil
}

// RunTask processes a queued task, reporting progress to the task manager
func (g *Generator) RunTask(ctx context.Context, t task.Task) {
	log := g.log.With().Str("task_id", t.ID).Logger()
	report := func(status task.Status, message string) {
		if err := g.taskManager.UpdateTask(t.ID, status, message); err != nil {
			log.Warn().Err(err).Msg("failed to update task")
		}
	}

	variant, err := agent.ParseVariant(t.Variant)
	if err != nil {
		g.fail(t.ID, err, "")
		return
	}

	out, err := g.run(ctx, Request{Query: t.Query, Variant: variant, APIKey: t.APIKey}, report)
	if err != nil {
		var perr *extract.ParseError
		raw := ""
		switch {
		case errors.As(err, &perr):
			raw = perr.Raw
		case out != nil:
			raw = out.Raw
		}
		log.Error().Err(err).Msg("task failed")
		g.fail(t.ID, err, raw)
		return
	}

	if t.RepoName != "" && g.publisher != nil && g.publisher.Enabled() {
		report(task.StatusPublishing, "Publishing to GitHub...")
		url, err := g.publisher.Publish(ctx, t.RepoName, truncate(t.Query, 120), map[string]string{
			out.Saved.Name: out.Content(),
		})
		if err != nil {
			log.Error().Err(err).Msg("publish failed")
			g.fail(t.ID, fmt.Errorf("saved locally but failed to publish: %w", err), "")
			return
		}
		g.taskManager.SetTaskRepoURL(t.ID, url)
	}

	if err := g.taskManager.CompleteTask(t.ID, out.Result(), out.Saved.Confirmation); err != nil {
		log.Warn().Err(err).Msg("failed to complete task")
	}
}

func (g *Generator) fail(id string, err error, raw string) {
	if serr := g.taskManager.SetTaskError(id, err, raw); serr != nil {
		g.log.Warn().Err(serr).Str("task_id", id).Msg("failed to record task error")
	}
}

// Classify names the error class of err, "ok" for nil
func Classify(err error) string {
	var (
		perr *extract.ParseError
		uerr *persist.UnsupportedLanguageError
		werr *persist.WriteError
		aerr *llm.AuthenticationError
		serr *llm.ServiceError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyQuery):
		return "empty_query"
	case errors.As(err, &aerr):
		return "auth_error"
	case errors.As(err, &serr):
		return "service_error"
	case errors.As(err, &perr):
		return "parse_error"
	case errors.As(err, &uerr):
		return "unsupported_language"
	case errors.As(err, &werr):
		return "write_error"
	}
	return "error"
}

// Result flattens the outcome into the shape stored on tasks and returned
// by the JSON API
func (o *Outcome) Result() task.Result {
	r := task.Result{
		FileName:     o.Saved.Name,
		Path:         o.Saved.Path,
		Confirmation: o.Saved.Confirmation,
	}
	if o.Code != nil {
		r.Language = o.Code.Language
		r.Code = o.Code.Code
	}
	if o.Research != nil {
		r.Topic = o.Research.Topic
		r.Response = o.Research.Response
		r.Sources = o.Research.Sources
		r.ToolsUsed = o.Research.ToolsUsed
	}
	return r
}

func formatResearch(r extract.ResearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n%s\n", r.Topic, r.Response)
	if len(r.Sources) > 0 {
		fmt.Fprintf(&b, "\nSources:\n")
		for _, s := range r.Sources {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if len(r.ToolsUsed) > 0 {
		fmt.Fprintf(&b, "\nTools used: %s\n", strings.Join(r.ToolsUsed, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
