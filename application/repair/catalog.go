package repair

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drses/frozen-realms-shim/graph"
)

// DetectorMiddleware wraps a patch's detector, e.g. to add tracing or a
// timeout.
type DetectorMiddleware func(patch string, next DetectFunc) DetectFunc

// Catalog is an immutable, ordered list of patches.
type Catalog struct {
	patches []Patch
}

type catalogBuilder struct {
	names      map[string]bool
	patches    []Patch
	middleware []DetectorMiddleware
	errors     []error
}

// CatalogOption configures NewCatalog.
type CatalogOption func(*catalogBuilder)

// NewCatalog builds a catalog. Patches keep the order they were added in.
// Empty or duplicate names and patches without a detector are rejected.
func NewCatalog(opts ...CatalogOption) (*Catalog, error) {
	b := &catalogBuilder{names: make(map[string]bool)}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("failed to build repair catalog: %w", errors.Join(b.errors...))
	}

	patches := make([]Patch, len(b.patches))
	for i, p := range b.patches {
		for j := len(b.middleware) - 1; j >= 0; j-- {
			p.Detect = b.middleware[j](p.Name, p.Detect)
		}
		patches[i] = p
	}
	return &Catalog{patches: patches}, nil
}

// Patches returns a copy of the patches in order.
func (c *Catalog) Patches() []Patch {
	out := make([]Patch, len(c.patches))
	copy(out, c.patches)
	return out
}

// Len returns the number of patches.
func (c *Catalog) Len() int {
	return len(c.patches)
}

// Names returns the patch names in order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.patches))
	for i, p := range c.patches {
		names[i] = p.Name
	}
	return names
}

func (b *catalogBuilder) add(p Patch) {
	switch {
	case p.Name == "":
		b.errors = append(b.errors, fmt.Errorf("patch name cannot be empty"))
	case b.names[p.Name]:
		b.errors = append(b.errors, fmt.Errorf("duplicate patch name: %q", p.Name))
	case p.Detect == nil:
		b.errors = append(b.errors, fmt.Errorf("patch %q has no detector", p.Name))
	default:
		b.names[p.Name] = true
		b.patches = append(b.patches, p)
	}
}

// WithPatch appends one patch.
func WithPatch(p Patch) CatalogOption {
	return func(b *catalogBuilder) {
		b.add(p)
	}
}

// WithPatches appends patches in order.
func WithPatches(patches ...Patch) CatalogOption {
	return func(b *catalogBuilder) {
		for _, p := range patches {
			b.add(p)
		}
	}
}

// WithDetectorMiddleware wraps every detector. Middleware runs FIFO.
func WithDetectorMiddleware(mw ...DetectorMiddleware) CatalogOption {
	return func(b *catalogBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// TimeoutMiddleware bounds the context each detector sees.
func TimeoutMiddleware(d time.Duration) DetectorMiddleware {
	return func(_ string, next DetectFunc) DetectFunc {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, root *graph.Object) (bool, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, root)
		}
	}
}
