// Package llm talks to the chat-completion backends that write quiz items.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoProvider      = errors.New("no LLM provider registered")
	ErrUnknownProvider = errors.New("unknown LLM provider")
)

// Provider completes one prompt.
type Provider interface {
	Name() string
	Complete(ctx context.Context, p *Prompt) (*Completion, error)
}

// Prompt is a single-turn request: standing instructions plus one ask.
// Quiz items never need conversation history.
type Prompt struct {
	Model       string // empty uses the backend's configured model
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// JSON asks the backend to constrain output to a JSON object when it can.
	JSON bool
}

// Completion is the text a backend returned.
type Completion struct {
	Text         string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Selection is the provider a session will ask, with its configured model.
type Selection struct {
	Name     string
	Provider Provider
	Model    string
}

// Registry holds the enabled providers in registration order.
type Registry struct {
	mu        sync.RWMutex
	entries   []Selection
	preferred string
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds p under name, replacing an earlier registration in place.
func (r *Registry) Register(name string, p Provider, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := Selection{Name: name, Provider: p, Model: model}
	for i := range r.entries {
		if r.entries[i].Name == name {
			r.entries[i] = entry
			return
		}
	}
	r.entries = append(r.entries, entry)
}

// Prefer makes name the provider Select returns. "" and "auto" restore
// first-registered order.
func (r *Registry) Prefer(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" || name == "auto" {
		r.preferred = ""
		return nil
	}
	for _, e := range r.entries {
		if e.Name == name {
			r.preferred = name
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// Select returns the preferred provider, or the first registered one.
func (r *Registry) Select() (Selection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return Selection{}, ErrNoProvider
	}
	for _, e := range r.entries {
		if e.Name == r.preferred {
			return e, nil
		}
	}
	return r.entries[0], nil
}

// Names lists registered providers in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}
