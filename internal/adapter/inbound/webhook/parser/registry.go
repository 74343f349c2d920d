package parser

import (
	"fmt"
	"sync"

	"github.com/jonny/engagebot/internal/domain/port/inbound"
)

// Registry manages CallbackParser instances keyed by callback object kind.
type Registry struct {
	mu      sync.RWMutex
	parsers []inbound.CallbackParser
}

var _ inbound.ParserRegistry = (*Registry)(nil)

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry returns a registry with the Instagram and Page parsers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewInstagramParser())
	r.Register(NewPageParser())
	return r
}

// Register adds a parser. A later parser for the same object replaces the
// earlier one.
func (r *Registry) Register(p inbound.CallbackParser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.parsers {
		if existing.Object() == p.Object() {
			r.parsers[i] = p
			return
		}
	}
	r.parsers = append(r.parsers, p)
}

// Resolve returns the parser registered for object.
func (r *Registry) Resolve(object string) (inbound.CallbackParser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.parsers {
		if p.Object() == object {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no parser for object %q", object)
}

// Objects returns the object kinds of all registered parsers.
func (r *Registry) Objects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	objects := make([]string, len(r.parsers))
	for i, p := range r.parsers {
		objects[i] = p.Object()
	}
	return objects
}
