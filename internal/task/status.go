package task

import "time"

// Status represents the status of a task
type Status string

const (
	StatusPending    Status = "pending"
	StatusInvoking   Status = "invoking"
	StatusParsing    Status = "parsing"
	StatusSaving     Status = "saving"
	StatusPublishing Status = "publishing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Result is what a completed task produced
type Result struct {
	FileName     string   `json:"file_name"`
	Path         string   `json:"path"`
	Confirmation string   `json:"confirmation"`
	Language     string   `json:"language,omitempty"`
	Code         string   `json:"code,omitempty"`
	Topic        string   `json:"topic,omitempty"`
	Response     string   `json:"response,omitempty"`
	Sources      []string `json:"sources,omitempty"`
	ToolsUsed    []string `json:"tools_used,omitempty"`
}

// Task represents a queued generation request
type Task struct {
	ID        string    `json:"task_id"`
	Query     string    `json:"query"`
	Variant   string    `json:"variant"`
	APIKey    string    `json:"-"`
	RepoName  string    `json:"repo_name,omitempty"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Result    *Result   `json:"result,omitempty"`
	RepoURL   string    `json:"repo_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	RawOutput string    `json:"raw_output,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateStatus updates the task status and message
func (t *Task) UpdateStatus(status Status, message string) {
	t.Status = status
	t.Message = message
	t.UpdatedAt = time.Now()
}

// SetError sets the task error and status to failed
func (t *Task) SetError(err error, raw string) {
	t.Status = StatusFailed
	t.Error = err.Error()
	t.RawOutput = raw
	t.Message = "Task failed"
	t.UpdatedAt = time.Now()
}

// IsTerminal returns true if the task is in a terminal state
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// snapshot returns a copy that is safe to hand to other goroutines
func (t *Task) snapshot() Task {
	c := *t
	if t.Result != nil {
		r := *t.Result
		r.Sources = append([]string(nil), t.Result.Sources...)
		r.ToolsUsed = append([]string(nil), t.Result.ToolsUsed...)
		c.Result = &r
	}
	return c
}
