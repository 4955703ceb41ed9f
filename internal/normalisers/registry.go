package normalisers

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// AnyMIMEType in SupportedMIMETypes makes a normaliser a fallback for every type.
const AnyMIMEType = "*/*"

// Registry dispatches raw documents to the highest priority normaliser that
// supports their connector and MIME type.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry with the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
	slices.SortStableFunc(r.normalisers, func(a, b driven.Normaliser) int {
		return b.Priority() - a.Priority()
	})
}

// Normalise transforms a raw document using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	n := r.lookup(raw)
	if n == nil {
		return nil, fmt.Errorf("%w: no normaliser for %s (%s)", domain.ErrUnsupportedType, raw.MIMEType, raw.URI)
	}
	return n.Normalise(ctx, raw)
}

// Supports reports whether some normaliser accepts the MIME type.
func (r *Registry) Supports(mimeType string) bool {
	return r.lookup(&domain.RawDocument{MIMEType: mimeType}) != nil
}

// SupportedMIMETypes returns all MIME types that can be normalised, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, n := range r.normalisers {
		for _, m := range n.SupportedMIMETypes() {
			if m != AnyMIMEType && !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	slices.Sort(out)
	return out
}

func (r *Registry) lookup(raw *domain.RawDocument) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.normalisers {
		if connectors := n.SupportedConnectorTypes(); len(connectors) > 0 && raw.Source != "" &&
			!slices.Contains(connectors, raw.Source) {
			continue
		}
		mimes := n.SupportedMIMETypes()
		if slices.Contains(mimes, raw.MIMEType) || slices.Contains(mimes, AnyMIMEType) {
			return n
		}
	}
	return nil
}
