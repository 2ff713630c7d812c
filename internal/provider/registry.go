package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"chat-gateway/internal/config"
	"chat-gateway/internal/models"
)

// ErrDuplicateProvider indicates an attempt to register the same id twice.
var ErrDuplicateProvider = errors.New("provider already registered")

// ErrUnknownProvider indicates a lookup for an id that was never registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Adapter translates the normalized request into one provider's wire format.
// Complete never panics on provider failure; every outcome is a result variant.
type Adapter interface {
	ID() string
	Configured() bool
	Complete(ctx context.Context, message string) models.CompletionResult
}

// Registry maps provider ids and aliases onto adapters. Resolution is total:
// anything that is not a registered id or alias resolves to the default.
type Registry struct {
	mu          sync.RWMutex
	adapters    map[string]Adapter
	aliases     map[string]string
	defaultID   string
	registerSeq []string
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		aliases:  make(map[string]string),
	}
}

// Register adds an adapter under its id.
func (r *Registry) Register(a Adapter) error {
	if a == nil {
		return errors.New("adapter must not be nil")
	}
	id := config.NormalizeID(a.ID())
	if id == "" {
		return errors.New("adapter id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, id)
	}
	r.adapters[id] = a
	r.registerSeq = append(r.registerSeq, id)
	return nil
}

// Alias makes alias resolve to the registered id target.
func (r *Registry) Alias(alias, target string) error {
	alias = config.NormalizeID(alias)
	target = config.NormalizeID(target)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[alias]; exists {
		return fmt.Errorf("alias %q conflicts with existing provider", alias)
	}
	if _, ok := r.adapters[target]; !ok {
		return fmt.Errorf("alias %q references %w %q", alias, ErrUnknownProvider, target)
	}
	r.aliases[alias] = target
	return nil
}

// SetDefault selects the provider used for unknown or missing ids.
func (r *Registry) SetDefault(id string) error {
	id = config.NormalizeID(id)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.adapters[id]; !ok {
		return fmt.Errorf("default %w: %s", ErrUnknownProvider, id)
	}
	r.defaultID = id
	return nil
}

// DefaultID returns the id unknown requests fall back to. Without an explicit
// default the first registered adapter is used.
func (r *Registry) DefaultID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultLocked()
}

func (r *Registry) defaultLocked() string {
	if r.defaultID != "" {
		return r.defaultID
	}
	if len(r.registerSeq) > 0 {
		return r.registerSeq[0]
	}
	return ""
}

// Resolve maps a requested id onto an adapter and its canonical id. It only
// returns a nil adapter when the registry is empty.
func (r *Registry) Resolve(requested string) (Adapter, string) {
	id := config.NormalizeID(requested)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.adapters[id]; ok {
		return a, id
	}
	if target, ok := r.aliases[id]; ok {
		return r.adapters[target], target
	}

	fallback := r.defaultLocked()
	return r.adapters[fallback], fallback
}

// Lookup returns the adapter registered under id, without alias or default
// resolution.
func (r *Registry) Lookup(id string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[config.NormalizeID(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	return a, nil
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
