package llm

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

type Factory func(cfg Config) (Client, error)

// Registry maps provider names to client factories. Names are matched
// case-insensitively.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in providers registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}

	r.Register("openai", newOpenAIFactory(DefaultOpenAIEndpoint))
	r.Register("deepseek", newOpenAIFactory(DefaultDeepSeekEndpoint))
	r.Register("claude", NewAnthropic)
	r.Register("anthropic", NewAnthropic)
	r.Register("qwen", NewGeneric)
	r.Register("wenxin", NewGeneric)
	r.Register("generic", NewGeneric)

	return r
}

func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(strings.TrimSpace(name))] = f
}

func (r *Registry) New(cfg Config) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))

	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(r.Providers(), ", "))
	}
	return f(cfg)
}

// Providers lists registered provider names in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
