package plugin

import (
	"fmt"
	"strings"
)

// Named is the common surface of validators and scanners.
type Named interface {
	Name() string
	CanHandle(path string) bool
}

// Registry is a name-keyed collection that remembers insertion order.
type Registry[T Named] struct {
	order   []string
	entries map[string]T
}

// ValidatorRegistry holds provider validators.
type ValidatorRegistry = Registry[Validator]

// ScannerRegistry holds application scanners.
type ScannerRegistry = Registry[Scanner]

// NewRegistry creates an empty registry.
func NewRegistry[T Named]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// NewValidatorRegistry creates an empty validator registry.
func NewValidatorRegistry() *ValidatorRegistry { return NewRegistry[Validator]() }

// NewScannerRegistry creates an empty scanner registry.
func NewScannerRegistry() *ScannerRegistry { return NewRegistry[Scanner]() }

// Register adds p. Names must be unique and non-empty.
func (r *Registry[T]) Register(p T) error {
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin name must not be empty")
	}
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}
	r.entries[name] = p
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for built-in tables that are known to be valid.
func (r *Registry[T]) MustRegister(plugins ...T) *Registry[T] {
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Get looks up a plugin by name.
func (r *Registry[T]) Get(name string) (T, bool) {
	p, ok := r.entries[name]
	return p, ok
}

// List returns plugins in registration order.
func (r *Registry[T]) List() []T {
	out := make([]T, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name])
	}
	return out
}

// Names returns plugin names in registration order.
func (r *Registry[T]) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len is the number of registered plugins.
func (r *Registry[T]) Len() int { return len(r.order) }

// Handling returns, in registration order, the plugins that can handle path.
func (r *Registry[T]) Handling(path string) []T {
	var out []T
	for _, name := range r.order {
		if p := r.entries[name]; p.CanHandle(path) {
			out = append(out, p)
		}
	}
	return out
}

// Filter returns a new registry with the allow-list applied first and the
// deny-list second. An empty allow-list allows everything. Aliases lets
// callers match on more than the name (validators also match on ProviderID).
func (r *Registry[T]) Filter(only, exclude []string, aliases func(T) []string) *Registry[T] {
	allowed := toSet(only)
	denied := toSet(exclude)

	out := NewRegistry[T]()
	for _, name := range r.order {
		p := r.entries[name]
		keys := []string{name}
		if aliases != nil {
			keys = append(keys, aliases(p)...)
		}
		if len(allowed) > 0 && !anyIn(keys, allowed) {
			continue
		}
		if anyIn(keys, denied) {
			continue
		}
		out.entries[name] = p
		out.order = append(out.order, name)
	}
	return out
}

// FilterValidators applies provider allow/deny lists, matching on validator
// name or provider id.
func FilterValidators(r *ValidatorRegistry, only, exclude []string) *ValidatorRegistry {
	return r.Filter(only, exclude, func(v Validator) []string {
		return []string{v.ProviderID()}
	})
}

// ByProvider finds the first validator whose ProviderID or name equals provider.
func ByProvider(r *ValidatorRegistry, provider string) (Validator, bool) {
	if v, ok := r.Get(provider); ok {
		return v, true
	}
	for _, v := range r.List() {
		if v.ProviderID() == provider {
			return v, true
		}
	}
	return nil, false
}

// ProviderIDs lists the provider ids of r in registration order.
func ProviderIDs(r *ValidatorRegistry) []string {
	out := make([]string, 0, r.Len())
	for _, v := range r.List() {
		out = append(out, v.ProviderID())
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			set[item] = struct{}{}
		}
	}
	return set
}

func anyIn(keys []string, set map[string]struct{}) bool {
	for _, k := range keys {
		if _, ok := set[strings.ToLower(k)]; ok {
			return true
		}
	}
	return false
}
