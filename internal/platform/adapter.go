package platform

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Known platform identifiers
const (
	Facebook  = "facebook"
	Instagram = "instagram"
	Pinterest = "pinterest"
	Etsy      = "etsy"
	EBay      = "ebay"
	Shopify   = "shopify"
)

// Content is the normalized content handed to an adapter
type Content struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	MediaRefs []string `json:"media_refs,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// PublishResponse is the platform-side identity of a published post
type PublishResponse struct {
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// Adapter is the per-platform capability the orchestrator publishes through.
// Implementations own request shaping, transport and timeouts; the core only
// sees content in and an identifier or error out.
type Adapter interface {
	Name() string
	Format(ctx context.Context, content Content) (Content, error)
	Publish(ctx context.Context, content Content) (*PublishResponse, error)
	ValidateConnection(ctx context.Context) error
}

// Registry maps platform identifiers to adapter instances, resolved at startup
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its own name
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for a platform
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %q", name)
	}
	return a, nil
}

// Names returns the registered platform identifiers, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
