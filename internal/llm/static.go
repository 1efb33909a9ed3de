package llm

import (
	"context"
	"sync"
)

// StaticClient returns a canned reply. It records the last prompt it saw so
// tests can assert on the instruction set.
type StaticClient struct {
	Reply string
	Err   error

	mu         sync.Mutex
	calls      int
	lastSystem string
	lastPrompt string
}

// NewStaticClient creates a client that always answers with reply
func NewStaticClient(reply string) *StaticClient {
	return &StaticClient{Reply: reply}
}

// Name returns the provider name
func (s *StaticClient) Name() string { return "static" }

// Complete records the request and returns Reply or Err
func (s *StaticClient) Complete(_ context.Context, system, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastSystem = system
	s.lastPrompt = prompt
	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// Calls returns how many requests were made
func (s *StaticClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Last returns the most recent system instruction and prompt
func (s *StaticClient) Last() (system, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSystem, s.lastPrompt
}

var _ Client = (*StaticClient)(nil)
