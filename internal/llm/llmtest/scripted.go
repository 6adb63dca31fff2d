// Package llmtest provides a scripted completion service for tests.
package llmtest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Reply is one scripted answer.
type Reply struct {
	Text  string
	Err   error
	Delay time.Duration
}

// Scripted answers prompts from a queue of replies, or by routing on prompt
// content when Route is set. It records every prompt it receives.
type Scripted struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string

	// Route, when non-nil, answers any prompt it recognizes before the queue is used.
	Route func(prompt string) (Reply, bool)
}

// New returns a Scripted completer that answers with texts in order.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Push appends a reply to the queue.
func (s *Scripted) Push(r Reply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s
}

func (s *Scripted) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	var (
		r  Reply
		ok bool
	)
	if s.Route != nil {
		r, ok = s.Route(prompt)
	}
	if !ok {
		if len(s.replies) == 0 {
			s.mu.Unlock()
			return "", errors.New("llmtest: no scripted reply left")
		}
		r = s.replies[0]
		s.replies = s.replies[1:]
	}
	s.mu.Unlock()

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.Text, r.Err
}

// Prompts returns the prompts received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Calls counts prompts containing substr.
func (s *Scripted) Calls(substr string) int {
	n := 0
	for _, p := range s.Prompts() {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}
