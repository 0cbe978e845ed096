package ses

import (
	"context"
	"fmt"
	"sync"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
	"github.com/drses/frozen-realms-shim/primordials"
)

var (
	defaultMu       sync.Mutex
	defaultBaseline *Baseline
)

// Init builds the process-wide host graph and initializes it. It can be
// attempted once per process.
func Init(ctx context.Context, opts ...Option) (*Report, error) {
	defaultMu.Lock()
	if defaultBaseline != nil {
		defaultMu.Unlock()
		return nil, domainerrors.ErrAlreadyInitialized
	}
	cfg := defaultBaselineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	root, err := primordials.NewHost(append([]primordials.HostOption{primordials.WithLogger(cfg.logger)}, cfg.hostOpts...)...)
	if err != nil {
		defaultMu.Unlock()
		return nil, fmt.Errorf("failed to build host: %w", err)
	}
	b := NewBaseline(root, opts...)
	defaultBaseline = b
	defaultMu.Unlock()

	return b.Initialize(ctx)
}

// Default returns the process-wide baseline, or nil before Init.
func Default() *Baseline {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultBaseline
}

// Confine evaluates source against the process-wide baseline.
func Confine(ctx context.Context, source string, bindings map[string]any) (graph.Value, error) {
	b := Default()
	if b == nil {
		return nil, domainerrors.ErrNotReady
	}
	return b.Confine(ctx, source, bindings)
}

// ConfineModule runs a WebAssembly module against the process-wide
// baseline.
func ConfineModule(ctx context.Context, wasm []byte, imports map[string]host.Import) (graph.Value, error) {
	b := Default()
	if b == nil {
		return nil, domainerrors.ErrNotReady
	}
	return b.ConfineModule(ctx, wasm, imports)
}
