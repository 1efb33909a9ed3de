// Package extract turns free-form model replies into validated results.
package extract

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const fence = "```"

// CodeResult is the code-generation reply
type CodeResult struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Filename string `json:"filename,omitempty"`
}

// ResearchResult is the research reply
type ResearchResult struct {
	Topic     string   `json:"topic"`
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
	ToolsUsed []string `json:"tools_Used"`
}

// ParseError reports a reply that is not valid JSON or does not match the
// expected schema. Raw is the text exactly as the model returned it.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return "failed to parse model response: " + e.Reason
}

// StripFences removes a surrounding markdown code fence, including an optional
// language tag after the opening marker. Text that does not start with a fence
// is only trimmed.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, fence) {
		return s
	}

	s = strings.TrimPrefix(s, fence)
	s = strings.TrimLeftFunc(s, isTagRune)
	if idx := strings.LastIndex(s, fence); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isTagRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

// ParseCode extracts a CodeResult. code and language are required strings,
// filename is optional.
func ParseCode(raw string) (CodeResult, error) {
	obj, err := object(raw)
	if err != nil {
		return CodeResult{}, err
	}

	code, err := requiredString(raw, obj, "code")
	if err != nil {
		return CodeResult{}, err
	}
	language, err := requiredString(raw, obj, "language")
	if err != nil {
		return CodeResult{}, err
	}
	filename, err := optionalString(raw, obj, "filename")
	if err != nil {
		return CodeResult{}, err
	}

	return CodeResult{Code: code, Language: language, Filename: filename}, nil
}

// ParseResearch extracts a ResearchResult. All four fields are required.
func ParseResearch(raw string) (ResearchResult, error) {
	obj, err := object(raw)
	if err != nil {
		return ResearchResult{}, err
	}

	topic, err := requiredString(raw, obj, "topic")
	if err != nil {
		return ResearchResult{}, err
	}
	response, err := requiredString(raw, obj, "response")
	if err != nil {
		return ResearchResult{}, err
	}
	sources, err := requiredStrings(raw, obj, "sources")
	if err != nil {
		return ResearchResult{}, err
	}
	tools, err := requiredStrings(raw, obj, "tools_Used")
	if err != nil {
		return ResearchResult{}, err
	}

	return ResearchResult{Topic: topic, Response: response, Sources: sources, ToolsUsed: tools}, nil
}

func object(raw string) (gjson.Result, error) {
	body := StripFences(raw)
	if body == "" {
		return gjson.Result{}, &ParseError{Raw: raw, Reason: "empty response"}
	}
	if !gjson.Valid(body) {
		return gjson.Result{}, &ParseError{Raw: raw, Reason: "response is not valid JSON"}
	}
	obj := gjson.Parse(body)
	if !obj.IsObject() {
		return gjson.Result{}, &ParseError{Raw: raw, Reason: "response is not a JSON object"}
	}
	return obj, nil
}

// field looks a key up without gjson path syntax so keys are matched
// literally. A duplicated key resolves to its last occurrence.
func field(obj gjson.Result, key string) gjson.Result {
	var out gjson.Result
	obj.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
		}
		return true
	})
	return out
}

func requiredString(raw string, obj gjson.Result, key string) (string, error) {
	v := field(obj, key)
	if !v.Exists() {
		return "", &ParseError{Raw: raw, Reason: fmt.Sprintf("missing required field %q", key)}
	}
	if v.Type != gjson.String {
		return "", &ParseError{Raw: raw, Reason: fmt.Sprintf("field %q must be a string", key)}
	}
	return v.String(), nil
}

func optionalString(raw string, obj gjson.Result, key string) (string, error) {
	v := field(obj, key)
	if !v.Exists() || v.Type == gjson.Null {
		return "", nil
	}
	if v.Type != gjson.String {
		return "", &ParseError{Raw: raw, Reason: fmt.Sprintf("field %q must be a string", key)}
	}
	return v.String(), nil
}

func requiredStrings(raw string, obj gjson.Result, key string) ([]string, error) {
	v := field(obj, key)
	if !v.Exists() {
		return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("missing required field %q", key)}
	}
	if !v.IsArray() {
		return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("field %q must be a list of strings", key)}
	}
	items := v.Array()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != gjson.String {
			return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("field %q must be a list of strings", key)}
		}
		out = append(out, item.String())
	}
	return out, nil
}
