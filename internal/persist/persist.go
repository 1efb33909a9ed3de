// Package persist writes generated code and research notes to disk.
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cosmos-link/code-agent/internal/metrics"
	"github.com/rs/zerolog"
)

// Mode selects what happens when the target file already exists
type Mode string

const (
	// ModeOverwrite truncates the target; repeated writes leave identical content.
	ModeOverwrite Mode = "overwrite"
	// ModeAppend adds a timestamped block per write; the file only grows.
	ModeAppend Mode = "append"
)

const (
	defaultBaseName     = "generated_code"
	defaultResearchName = "research_output.txt"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeOverwrite:
		return ModeOverwrite, nil
	case ModeAppend:
		return ModeAppend, nil
	}
	return "", fmt.Errorf("unknown persistence mode %q", s)
}

// Options configures a Persister
type Options struct {
	Dir          string
	Mode         Mode
	Fallback     bool
	DefaultName  string
	ResearchName string
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Saved describes a completed write
type Saved struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Mode         Mode   `json:"mode"`
	Confirmation string `json:"confirmation"`
}

// WriteError wraps an I/O failure while saving
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Persister writes files under a single output directory.
type Persister struct {
	opts Options
	mu   sync.Mutex
}

// New creates a persister. Mode must be set explicitly.
func New(opts Options) (*Persister, error) {
	if opts.Mode != ModeOverwrite && opts.Mode != ModeAppend {
		return nil, fmt.Errorf("persistence mode must be %q or %q, got %q", ModeOverwrite, ModeAppend, opts.Mode)
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.DefaultName == "" {
		opts.DefaultName = defaultBaseName
	}
	if opts.ResearchName == "" {
		opts.ResearchName = defaultResearchName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Persister{opts: opts}, nil
}

// Mode returns the configured persistence mode
func (p *Persister) Mode() Mode { return p.opts.Mode }

// FileName returns the name code in language would be saved under
func (p *Persister) FileName(code, language, filename string) (string, error) {
	ext, err := ResolveExtension(language, code, p.opts.Fallback)
	if err != nil {
		return "", err
	}
	return p.baseName(filename) + ext, nil
}

// SaveCode writes code to <filename or default><ext> in the output directory.
func (p *Persister) SaveCode(code, language, filename string) (Saved, error) {
	name, err := p.FileName(code, language, filename)
	if err != nil {
		return Saved{}, err
	}
	path := filepath.Join(p.opts.Dir, name)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.opts.Mode {
	case ModeAppend:
		block := fmt.Sprintf("# Generated Code (%s)\n\n%s\n\n", p.opts.Now().Format(time.RFC3339), code)
		err = p.appendFile(path, block)
	default:
		err = p.writeFile(path, code)
	}
	if err != nil {
		return Saved{}, err
	}

	metrics.FilesWrittenTotal.WithLabelValues(string(p.opts.Mode)).Inc()
	p.opts.Logger.Info().
		Str("path", path).
		Str("mode", string(p.opts.Mode)).
		Int("bytes", len(code)).
		Msg("code saved")

	return Saved{
		Path:         path,
		Name:         name,
		Mode:         p.opts.Mode,
		Confirmation: fmt.Sprintf("Code saved to `%s`", name),
	}, nil
}

// SaveText appends a timestamped research block. An empty name uses the
// configured research file.
func (p *Persister) SaveText(name, text string) (Saved, error) {
	if name = sanitize(name); name == "" {
		name = p.opts.ResearchName
	}
	path := filepath.Join(p.opts.Dir, name)
	block := fmt.Sprintf("--- Research Output ---\nTimestamp: %s\n\n%s\n\n", p.opts.Now().Format("2006-01-02 15:04:05"), text)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.appendFile(path, block); err != nil {
		return Saved{}, err
	}

	metrics.FilesWrittenTotal.WithLabelValues(string(ModeAppend)).Inc()
	p.opts.Logger.Info().Str("path", path).Msg("research saved")

	return Saved{
		Path:         path,
		Name:         name,
		Mode:         ModeAppend,
		Confirmation: fmt.Sprintf("Data successfully saved to `%s`", name),
	}, nil
}

func (p *Persister) baseName(filename string) string {
	if base := sanitize(filename); base != "" {
		return base
	}
	return p.opts.DefaultName
}

// sanitize keeps the final path element so model-supplied names cannot
// escape the output directory.
func sanitize(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(filepath.FromSlash(name))
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return ""
	}
	return base
}

func (p *Persister) writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func (p *Persister) appendFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return &WriteError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
