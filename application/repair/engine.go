package repair

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drses/frozen-realms-shim/domain/entities"
	domainErrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/ledger"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/domain/ports"
	"github.com/drses/frozen-realms-shim/graph"
)

// engineConfig holds configuration for an Engine.
type engineConfig struct {
	logger   *slog.Logger
	observer ports.RepairObserver
	disabled *policy.GlobSet
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger: slog.Default(),
	}
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an observer called once per graded patch.
func WithObserver(o ports.RepairObserver) EngineOption {
	return func(c *engineConfig) {
		c.observer = o
	}
}

// WithDisabled turns off the repair half of every patch whose name matches
// one of the globs. Their detectors still run.
func WithDisabled(globs *policy.GlobSet) EngineOption {
	return func(c *engineConfig) {
		c.disabled = globs
	}
}

// Engine applies a Catalog to a host graph.
type Engine struct {
	catalog *Catalog
	config  engineConfig
}

// NewEngine creates an engine for catalog.
func NewEngine(catalog *Catalog, opts ...EngineOption) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if catalog == nil {
		catalog = &Catalog{}
	}
	return &Engine{catalog: catalog, config: cfg}
}

// Run grades every patch in catalog order, records each outcome in led and
// returns the results. It never stops early: a failing detector abandons
// the rest of its region, and every abandoned patch is still recorded.
func (e *Engine) Run(ctx context.Context, root *graph.Object, led *ledger.Ledger) []Result {
	results := make([]Result, 0, e.catalog.Len())
	abandoned := make(map[string]error)

	for _, p := range e.catalog.patches {
		r := e.grade(ctx, root, p, abandoned)
		led.Record(r.Category(), r.Severity)
		if e.config.observer != nil {
			e.config.observer.OnRepair(r.Patch, r.Status.String(), r.Severity)
		}
		e.log(ctx, r)
		results = append(results, r)
	}
	return results
}

func (e *Engine) grade(ctx context.Context, root *graph.Object, p Patch, abandoned map[string]error) Result {
	r := Result{Patch: p.Name, Region: p.Region}

	if cause, ok := abandoned[p.Region]; ok && p.Region != "" {
		r.Status = StatusAbandoned
		r.Severity = entities.SeverityNotSupported
		r.Err = fmt.Errorf("region %s abandoned: %w", p.Region, cause)
		return r
	}

	fail := func(err error) Result {
		failure := &domainErrors.RepairDetectionFailure{Err: err, Patch: p.Name, Region: p.Region}
		if p.Region != "" {
			abandoned[p.Region] = failure
		}
		r.Status = StatusDetectorFailed
		r.Severity = entities.SeverityNotSupported
		r.Err = failure
		return r
	}

	present, err := detect(ctx, root, p)
	if err != nil {
		return fail(err)
	}
	if !present {
		r.Status = StatusAbsent
		r.Severity = entities.SeveritySafe
		return r
	}

	if e.config.disabled.Match(p.Name) {
		r.Status = StatusDisabled
		r.Severity = p.unrepaired()
		return r
	}
	if p.Repair == nil {
		r.Status = StatusUnrepaired
		r.Severity = p.unrepaired()
		return r
	}
	if err := apply(ctx, root, p); err != nil {
		r.Status = StatusRepairFailed
		r.Severity = p.unrepaired()
		r.Err = fmt.Errorf("failed to repair %s: %w", p.Name, err)
		return r
	}

	// Verify.
	present, err = detect(ctx, root, p)
	if err != nil {
		return fail(err)
	}
	if present {
		r.Status = StatusUnrepaired
		r.Severity = p.unrepaired()
		return r
	}
	r.Status = StatusRepaired
	r.Severity = p.Severity
	return r
}

func (e *Engine) log(ctx context.Context, r Result) {
	attrs := []any{
		"patch", r.Patch,
		"status", r.Status.String(),
		"severity", r.Severity.String(),
	}
	if r.Region != "" {
		attrs = append(attrs, "region", r.Region)
	}
	switch {
	case r.Err != nil:
		e.config.logger.WarnContext(ctx, "repair not applied", append(attrs, "error", r.Err)...)
	case r.Status == StatusRepaired:
		e.config.logger.InfoContext(ctx, "repair applied", attrs...)
	default:
		e.config.logger.DebugContext(ctx, "repair graded", attrs...)
	}
}

// detect runs the patch's detector, converting a panic into an error.
func detect(ctx context.Context, root *graph.Object, p Patch) (present bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			present, err = false, fmt.Errorf("detector panicked: %v", rec)
		}
	}()
	return p.Detect(ctx, root)
}

func apply(ctx context.Context, root *graph.Object, p Patch) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("repair panicked: %v", rec)
		}
	}()
	return p.Repair(ctx, root)
}
