package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Factory builds a gateway for target, a base URL or a command line
// depending on the backend.
type Factory func(ctx context.Context, target string) (Gateway, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry has the built-in backends: "adk" and "exec".
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("adk", func(ctx context.Context, target string) (Gateway, error) {
		return NewADKGateway(target), nil
	})
	r.Register("exec", func(ctx context.Context, target string) (Gateway, error) {
		return NewExecGateway(target)
	})
	return r
}

func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, target string) (Gateway, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown agent backend: %s", name)
	}
	return f(ctx, target)
}
