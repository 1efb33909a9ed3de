package extract

import (
	"errors"
	"reflect"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"upper tag", "  ```JSON\n{\"a\":1}\n```  ", `{"a":1}`},
		{"single line", "```json{\"a\":1}```", `{"a":1}`},
		{"no fence", "  {\"a\":1}\n", `{"a":1}`},
		{"unterminated", "```json\n{\"a\":1}", `{"a":1}`},
		{"only fence", "```", ""},
		{"empty", "", ""},
		{"fence not at start", "here:\n```json\n{}\n```", "here:\n```json\n{}\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Fatalf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseCodeFenced(t *testing.T) {
	raw := "```json\n{\"code\":\"print('hi')\",\"language\":\"python\"}\n```"
	got, err := ParseCode(raw)
	if err != nil {
		t.Fatalf("ParseCode returned error: %v", err)
	}
	want := CodeResult{Code: "print('hi')", Language: "python"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseCodeWithFilenameAndExtras(t *testing.T) {
	raw := `{"code":"ls *.txt","language":"bash","filename":"list_txt","note":"ignored"}`
	got, err := ParseCode(raw)
	if err != nil {
		t.Fatalf("ParseCode returned error: %v", err)
	}
	if got.Filename != "list_txt" || got.Language != "bash" || got.Code != "ls *.txt" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestParseCodeNullFilename(t *testing.T) {
	got, err := ParseCode(`{"code":"x","language":"go","filename":null}`)
	if err != nil {
		t.Fatalf("ParseCode returned error: %v", err)
	}
	if got.Filename != "" {
		t.Fatalf("expected empty filename, got %q", got.Filename)
	}
}

func TestParseCodeDuplicateKeyLastWins(t *testing.T) {
	got, err := ParseCode(`{"code":"a","language":"python","code":"b"}`)
	if err != nil {
		t.Fatalf("ParseCode returned error: %v", err)
	}
	if got.Code != "b" {
		t.Fatalf("expected last code value, got %q", got.Code)
	}
}

func TestParseCodeFailures(t *testing.T) {
	tests := map[string]string{
		"missing code":     `{"language":"python"}`,
		"missing language": `{"code":"print(1)"}`,
		"code not string":  `{"code":42,"language":"python"}`,
		"filename not str": `{"code":"x","language":"go","filename":7}`,
		"not json":         "Sure! Here is your code: print('hi')",
		"array":            `[{"code":"x","language":"go"}]`,
		"truncated":        "```json\n{\"code\":\"print(",
		"empty":            "   ",
		"code is object":   `{"code":{"x":"1"},"language":"go"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseCode(raw)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if perr.Raw != raw {
				t.Fatalf("raw text not preserved: %q", perr.Raw)
			}
			if got != (CodeResult{}) {
				t.Fatalf("expected zero result, got %+v", got)
			}
		})
	}
}

func TestParseResearch(t *testing.T) {
	raw := "```json\n{\"topic\":\"Go\",\"response\":\"A language.\",\"sources\":[\"go.dev\"],\"tools_Used\":[\"search\",\"wiki\"]}\n```"
	got, err := ParseResearch(raw)
	if err != nil {
		t.Fatalf("ParseResearch returned error: %v", err)
	}
	want := ResearchResult{Topic: "Go", Response: "A language.", Sources: []string{"go.dev"}, ToolsUsed: []string{"search", "wiki"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseResearchEmptyLists(t *testing.T) {
	got, err := ParseResearch(`{"topic":"t","response":"r","sources":[],"tools_Used":[]}`)
	if err != nil {
		t.Fatalf("ParseResearch returned error: %v", err)
	}
	if got.Sources == nil || len(got.Sources) != 0 {
		t.Fatalf("expected empty non-nil sources, got %#v", got.Sources)
	}
}

func TestParseResearchFailures(t *testing.T) {
	tests := map[string]string{
		"missing tools":     `{"topic":"t","response":"r","sources":[]}`,
		"sources not list":  `{"topic":"t","response":"r","sources":"go.dev","tools_Used":[]}`,
		"non-string source": `{"topic":"t","response":"r","sources":[1],"tools_Used":[]}`,
		"wrong case key":    `{"topic":"t","response":"r","sources":[],"tools_used":[]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseResearch(raw)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}
