package generator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cosmos-link/code-agent/internal/agent"
	"github.com/cosmos-link/code-agent/internal/extract"
	"github.com/cosmos-link/code-agent/internal/llm"
	"github.com/cosmos-link/code-agent/internal/logging"
	"github.com/cosmos-link/code-agent/internal/persist"
	"github.com/cosmos-link/code-agent/internal/task"
)

type fakePublisher struct {
	enabled bool
	err     error
	name    string
	files   map[string]string
}

func (f *fakePublisher) Enabled() bool { return f.enabled }

func (f *fakePublisher) Publish(_ context.Context, name, _ string, files map[string]string) (string, error) {
	f.name = name
	f.files = files
	if f.err != nil {
		return "", f.err
	}
	return "https://github.com/me/" + name, nil
}

func newGenerator(t *testing.T, reply string, mgr *task.Manager, pub Publisher) (*Generator, *llm.StaticClient, string) {
	t.Helper()
	dir := t.TempDir()
	client := llm.NewStaticClient(reply)
	a, err := agent.New(agent.StaticFactory(client), "server-key", logging.Nop())
	if err != nil {
		t.Fatal(err)
	}
	p, err := persist.New(persist.Options{Dir: dir, Mode: persist.ModeOverwrite, Logger: logging.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	return NewGenerator(a, p, mgr, pub, logging.Nop()), client, dir
}

func TestGenerateFencedPython(t *testing.T) {
	reply := "```json\n{\"code\":\"print('hi')\",\"language\":\"python\"}\n```"
	g, _, dir := newGenerator(t, reply, nil, nil)

	out, err := g.Generate(context.Background(), Request{Query: "say hi"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Saved.Name != "generated_code.py" {
		t.Errorf("name = %q", out.Saved.Name)
	}
	if out.Saved.Confirmation != "Code saved to `generated_code.py`" {
		t.Errorf("confirmation = %q", out.Saved.Confirmation)
	}
	data, err := os.ReadFile(filepath.Join(dir, "generated_code.py"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "print('hi')" {
		t.Errorf("file = %q", data)
	}
}

func TestGenerateEmptyQuery(t *testing.T) {
	g, client, _ := newGenerator(t, "{}", nil, nil)

	_, err := g.Generate(context.Background(), Request{Query: "   "})
	if !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err = %v, want ErrEmptyQuery", err)
	}
	if client.Calls() != 0 {
		t.Errorf("model called %d times for empty query", client.Calls())
	}
}

func TestGenerateParseErrorKeepsRaw(t *testing.T) {
	g, _, dir := newGenerator(t, "Sorry, I cannot help", nil, nil)

	_, err := g.Generate(context.Background(), Request{Query: "q"})
	var perr *extract.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if perr.Raw != "Sorry, I cannot help" {
		t.Errorf("raw = %q", perr.Raw)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("files written on parse failure: %v", entries)
	}
}

func TestGenerateSaveFailureKeepsCode(t *testing.T) {
	reply := `{"code":"DISPLAY 'HI'.","language":"cobol"}`
	g, _, _ := newGenerator(t, reply, nil, nil)

	out, err := g.Generate(context.Background(), Request{Query: "q"})
	var uerr *persist.UnsupportedLanguageError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnsupportedLanguageError, got %v", err)
	}
	if out == nil || out.Code == nil || out.Code.Code != "DISPLAY 'HI'." {
		t.Fatalf("outcome = %+v", out)
	}
	if out.Raw != reply || out.Saved.Name != "" {
		t.Errorf("raw = %q, saved = %+v", out.Raw, out.Saved)
	}
}

func TestGenerateResearch(t *testing.T) {
	reply := `{"topic":"Go","response":"A language.","sources":["go.dev"],"tools_Used":[]}`
	g, _, dir := newGenerator(t, reply, nil, nil)

	out, err := g.Generate(context.Background(), Request{Query: "what is go", Variant: agent.VariantResearch})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Research == nil || out.Research.Topic != "Go" {
		t.Fatalf("research = %+v", out.Research)
	}
	data, err := os.ReadFile(filepath.Join(dir, "research_output.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--- Research Output ---", "Topic: Go", "- go.dev"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("research file missing %q:\n%s", want, data)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]error{
		"ok":                   nil,
		"empty_query":          ErrEmptyQuery,
		"auth_error":           &llm.AuthenticationError{Provider: "x", Err: llm.ErrCredentialMissing},
		"service_error":        &llm.ServiceError{Provider: "x", Err: errors.New("boom")},
		"parse_error":          &extract.ParseError{Reason: "bad"},
		"unsupported_language": &persist.UnsupportedLanguageError{Language: "cobol"},
		"write_error":          &persist.WriteError{Path: "p", Err: errors.New("disk")},
		"error":                errors.New("other"),
	}
	for want, err := range tests {
		if got := Classify(err); got != want {
			t.Errorf("Classify(%v) = %q, want %q", err, got, want)
		}
	}
}

func runTask(t *testing.T, g *Generator, mgr *task.Manager, created task.Task) task.Task {
	t.Helper()
	g.RunTask(context.Background(), created)
	got, err := mgr.GetTask(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestRunTaskStatusFlow(t *testing.T) {
	mgr := task.NewManager(1, 1)
	defer mgr.Shutdown()
	g, _, _ := newGenerator(t, `{"code":"package main","language":"go","filename":"main"}`, mgr, nil)

	created := mgr.CreateTask("write go", "code", "", "")
	var seen []task.Status
	mgr.SubscribeToTask(created.ID, func(tk task.Task) { seen = append(seen, tk.Status) })

	got := runTask(t, g, mgr, created)
	if got.Status != task.StatusCompleted {
		t.Fatalf("status = %q (%s)", got.Status, got.Error)
	}
	if got.Result == nil || got.Result.FileName != "main.go" || got.Result.Language != "go" {
		t.Errorf("result = %+v", got.Result)
	}

	want := []task.Status{task.StatusInvoking, task.StatusParsing, task.StatusSaving, task.StatusCompleted}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestRunTaskParseFailureStoresRaw(t *testing.T) {
	mgr := task.NewManager(1, 1)
	defer mgr.Shutdown()
	g, _, _ := newGenerator(t, "not json", mgr, nil)

	got := runTask(t, g, mgr, mgr.CreateTask("q", "code", "", ""))
	if got.Status != task.StatusFailed {
		t.Fatalf("status = %q", got.Status)
	}
	if got.RawOutput != "not json" {
		t.Errorf("raw = %q", got.RawOutput)
	}
}

func TestRunTaskSaveFailureStoresRaw(t *testing.T) {
	mgr := task.NewManager(1, 1)
	defer mgr.Shutdown()
	reply := `{"code":"x","language":"cobol"}`
	g, _, _ := newGenerator(t, reply, mgr, nil)

	got := runTask(t, g, mgr, mgr.CreateTask("q", "code", "", ""))
	if got.Status != task.StatusFailed {
		t.Fatalf("status = %q", got.Status)
	}
	if got.RawOutput != reply {
		t.Errorf("raw = %q", got.RawOutput)
	}
}

func TestRunTaskUnknownVariant(t *testing.T) {
	mgr := task.NewManager(1, 1)
	defer mgr.Shutdown()
	g, client, _ := newGenerator(t, "{}", mgr, nil)

	got := runTask(t, g, mgr, mgr.CreateTask("q", "poetry", "", ""))
	if got.Status != task.StatusFailed {
		t.Fatalf("status = %q", got.Status)
	}
	if client.Calls() != 0 {
		t.Error("model called for unknown variant")
	}
}

func TestRunTaskPublishes(t *testing.T) {
	mgr := task.NewManager(1, 1)
	defer mgr.Shutdown()
	pub := &fakePublisher{enabled: true}
	g, _, _ := newGenerator(t, `{"code":"print(1)","language":"python","filename":"one"}`, mgr, pub)

	got := runTask(t, g, mgr, mgr.CreateTask("q", "code", "", "demo"))
	if got.Status != task.StatusCompleted {
		t.Fatalf("status = %q (%s)", got.Status, got.Error)
	}
	if got.RepoURL != "https://github.com/me/demo" {
		t.Errorf("repo url = %q", got.RepoURL)
	}
	if pub.files["one.py"] != "print(1)" {
		t.Errorf("published files = %v", pub.files)
	}
}

func TestRunTaskPublishFailure(t *testing.T) {
	mgr := task.NewManager(1, 1)
	defer mgr.Shutdown()
	pub := &fakePublisher{enabled: true, err: errors.New("denied")}
	g, _, _ := newGenerator(t, `{"code":"print(1)","language":"python"}`, mgr, pub)

	got := runTask(t, g, mgr, mgr.CreateTask("q", "code", "", "demo"))
	if got.Status != task.StatusFailed || !strings.Contains(got.Error, "denied") {
		t.Errorf("got status=%q error=%q", got.Status, got.Error)
	}
}

func TestRunTaskSkipsPublishWhenDisabled(t *testing.T) {
	mgr := task.NewManager(1, 1)
	defer mgr.Shutdown()
	pub := &fakePublisher{}
	g, _, _ := newGenerator(t, `{"code":"print(1)","language":"python"}`, mgr, pub)

	got := runTask(t, g, mgr, mgr.CreateTask("q", "code", "", "demo"))
	if got.Status != task.StatusCompleted {
		t.Fatalf("status = %q", got.Status)
	}
	if pub.name != "" || got.RepoURL != "" {
		t.Error("publish ran without a token")
	}
}

func TestRunTaskViaWorkers(t *testing.T) {
	mgr := task.NewManager(1, 2)
	g, _, _ := newGenerator(t, `{"code":"x","language":"sql"}`, mgr, nil)

	done := make(chan task.Task, 1)
	created := mgr.CreateTask("q", "code", "", "")
	mgr.SubscribeToTask(created.ID, func(tk task.Task) {
		if tk.IsTerminal() {
			done <- tk
		}
	})
	mgr.Start(g.RunTask)
	if err := mgr.Enqueue(created.ID); err != nil {
		t.Fatal(err)
	}

	select {
	case tk := <-done:
		if tk.Status != task.StatusCompleted {
			t.Errorf("status = %q", tk.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}
	mgr.Shutdown()
}
