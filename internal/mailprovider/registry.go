package mailprovider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrProviderExists is returned when registering a provider type twice.
var ErrProviderExists = errors.New("mailprovider registry: provider already registered")

// ErrUnknownProvider is returned when no factory matches the requested type.
var ErrUnknownProvider = errors.New("mailprovider registry: unknown provider")

// Metadata describes a provider implementation.
type Metadata struct {
	Type         string
	DisplayName  string
	Hierarchical bool
}

// Factory builds an adapter instance bound to one tenant's credential.
type Factory func(cfg Config) (Adapter, error)

// Descriptor pairs provider metadata with its factory.
type Descriptor struct {
	Metadata Metadata
	Factory  Factory
}

// Registry maintains the catalogue of known provider implementations. The
// orchestrator never branches on provider type; it asks the registry for an
// adapter and talks to the capability interface.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]Descriptor)}
}

// NewDefaultRegistry returns a registry with both built-in variants
// registered.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// Both registrations are static; errors here would be programming bugs.
	_ = r.Register(Descriptor{
		Metadata: Metadata{Type: ProviderGoogle, DisplayName: "Gmail", Hierarchical: false},
		Factory: func(cfg Config) (Adapter, error) {
			return NewFlatLabelAdapter(ProviderGoogle, cfg)
		},
	})
	_ = r.Register(Descriptor{
		Metadata: Metadata{Type: ProviderMicrosoft, DisplayName: "Outlook", Hierarchical: true},
		Factory: func(cfg Config) (Adapter, error) {
			return NewHierarchicalAdapter(ProviderMicrosoft, cfg)
		},
	})
	return r
}

// Register adds a provider descriptor, enforcing uniqueness by type.
func (r *Registry) Register(desc Descriptor) error {
	providerType := strings.ToLower(strings.TrimSpace(desc.Metadata.Type))
	if providerType == "" {
		return errors.New("mailprovider registry: metadata type is required")
	}
	if desc.Factory == nil {
		return errors.New("mailprovider registry: factory is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[providerType]; exists {
		return fmt.Errorf("%w: %s", ErrProviderExists, providerType)
	}

	desc.Metadata.Type = providerType
	r.descriptors[providerType] = desc
	return nil
}

// Metadata returns registered provider metadata sorted by type.
func (r *Registry) Metadata() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Metadata, 0, len(r.descriptors))
	for _, desc := range r.descriptors {
		items = append(items, desc.Metadata)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Type < items[j].Type })
	return items
}

// New builds an adapter for the requested provider type.
func (r *Registry) New(providerType string, cfg Config) (Adapter, error) {
	r.mu.RLock()
	desc, ok := r.descriptors[strings.ToLower(strings.TrimSpace(providerType))]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerType)
	}
	return desc.Factory(cfg)
}
