// Package ses hardens a host runtime graph once and then confines untrusted
// programs and WebAssembly modules in isolated realms over it.
//
// Initialization repairs known defects, tames the graph against a policy
// tree, and accepts the result only if the worst recorded severity is
// within the configured threshold:
//
//	b := ses.NewBaseline(root, ses.WithThreshold(entities.SeveritySafeSpecViolation))
//	report, err := b.Initialize(ctx)
//	...
//	v, err := b.Confine(ctx, "x + y", map[string]any{"x": 3, "y": 4})
package ses

import (
	"context"
	"fmt"
	"sync"

	"github.com/drses/frozen-realms-shim/application/loader"
	"github.com/drses/frozen-realms-shim/application/realm"
	"github.com/drses/frozen-realms-shim/application/repair"
	"github.com/drses/frozen-realms-shim/application/tame"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/ledger"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
	"github.com/drses/frozen-realms-shim/primordials"
)

// Baseline owns one host graph and its hardening lifecycle.
type Baseline struct {
	mu       sync.Mutex
	cfg      baselineConfig
	root     *graph.Object
	state    State
	report   *Report
	runner   *realm.Runner
	abortErr error
}

// NewBaseline prepares root for hardening. Nothing is modified until
// Initialize runs.
func NewBaseline(root *graph.Object, opts ...Option) *Baseline {
	cfg := defaultBaselineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Baseline{cfg: cfg, root: root}
}

// State returns the current lifecycle state.
func (b *Baseline) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Report returns the initialization report, or nil before initialization
// has finished.
func (b *Baseline) Report() *Report {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.report
}

// Initialize repairs and tames the host graph, then accepts or rejects it.
// It runs at most once per Baseline. On rejection the report is still
// returned alongside an *errors.InitializationAborted.
func (b *Baseline) Initialize(ctx context.Context) (*Report, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}

	report, runner, err := b.harden(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.report = report
	if err != nil {
		b.state = StateAborted
		b.abortErr = err
		b.cfg.logger.ErrorContext(ctx, "initialization aborted", "error", err)
		return report, err
	}
	b.state = StateReady
	b.runner = runner
	b.cfg.logger.InfoContext(ctx, "baseline ready", "worst", report.Worst.String(), "threshold", report.Threshold.String())
	return report, nil
}

func (b *Baseline) begin() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateUninitialized {
		return domainerrors.ErrAlreadyInitialized
	}
	if b.root == nil {
		return fmt.Errorf("host graph cannot be nil")
	}
	if b.root.IsFrozen() {
		return domainerrors.ErrAlreadyHardened
	}
	b.state = StateInitializing
	b.cfg.logger.Debug("baseline initializing")
	return nil
}

func (b *Baseline) harden(ctx context.Context) (*Report, *realm.Runner, error) {
	cfg := b.cfg
	pol, err := b.loadPolicy()
	if err != nil {
		return nil, nil, err
	}
	engine, walker, err := b.stages()
	if err != nil {
		return nil, nil, err
	}

	led := ledger.New()
	results := engine.Run(ctx, b.root, led)
	tamed, err := walker.Tame(ctx, b.root, pol, led)
	if err != nil {
		led.Seal()
		return nil, nil, fmt.Errorf("taming failed: %w", err)
	}
	led.Seal()

	report := &Report{
		Repairs:   results,
		Taming:    tamed,
		Ledger:    led.Snapshot(),
		Worst:     led.Worst(),
		Threshold: cfg.threshold,
		Accepted:  led.Accept(cfg.threshold),
	}
	if !report.Accepted {
		return report, nil, &domainerrors.InitializationAborted{
			Summary:   report.Summary(),
			Worst:     report.Worst,
			Threshold: report.Threshold,
		}
	}

	factoryOpts := []realm.FactoryOption{
		realm.WithLogger(cfg.logger),
		realm.WithExecutor(host.NewExecutor(append([]host.Option{host.WithLogger(cfg.logger)}, cfg.executorOpts...)...)),
	}
	if cfg.maxCallDepth > 0 {
		factoryOpts = append(factoryOpts, realm.WithMaxCallDepth(cfg.maxCallDepth))
	}
	factory, err := realm.NewFactory(b.root, factoryOpts...)
	if err != nil {
		return report, nil, fmt.Errorf("failed to create realm factory: %w", err)
	}
	return report, realm.NewRunner(factory), nil
}

func (b *Baseline) loadPolicy() (*policy.Node, error) {
	switch {
	case b.cfg.policy != nil:
		return b.cfg.policy, nil
	case b.cfg.policyPath != "":
		l, err := loader.NewLoader(loader.WithLogger(b.cfg.logger))
		if err != nil {
			return nil, err
		}
		return l.LoadPolicyFile(b.cfg.policyPath)
	default:
		return primordials.DefaultPolicy()
	}
}

func (b *Baseline) stages() (*repair.Engine, *tame.Walker, error) {
	cfg := b.cfg
	catalog := cfg.catalog
	if catalog == nil {
		var err error
		if catalog, err = primordials.DefaultCatalog(); err != nil {
			return nil, nil, err
		}
	}
	disabled, err := policy.NewGlobSet(cfg.disabledRepairs...)
	if err != nil {
		return nil, nil, &domainerrors.ConfigError{Field: "disabled_repairs", Err: err}
	}
	engineOpts := []repair.EngineOption{repair.WithLogger(cfg.logger), repair.WithDisabled(disabled)}
	if cfg.repairObserver != nil {
		engineOpts = append(engineOpts, repair.WithObserver(cfg.repairObserver))
	}

	walkerOpts := []tame.WalkerOption{
		tame.WithLogger(cfg.logger),
		tame.WithMaxExamples(cfg.maxExamples),
		tame.WithKnownExtensions(cfg.knownExtensions...),
	}
	if cfg.unlisted != nil {
		walkerOpts = append(walkerOpts, tame.WithUnlistedSeverity(*cfg.unlisted))
	}
	if cfg.dispositions != nil {
		walkerOpts = append(walkerOpts, tame.WithDispositionHandler(cfg.dispositions))
	}
	walker, err := tame.NewWalker(walkerOpts...)
	if err != nil {
		return nil, nil, &domainerrors.ConfigError{Field: "known_extensions", Err: err}
	}
	return repair.NewEngine(catalog, engineOpts...), walker, nil
}

func (b *Baseline) ready() (*realm.Runner, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateReady:
		return b.runner, nil
	case StateAborted:
		return nil, b.abortErr
	default:
		return nil, domainerrors.ErrNotReady
	}
}

// Confine evaluates source in a fresh realm with bindings as its only
// additions to the hardened primordials. Evaluation failures are
// *errors.EvaluationError; calling before the baseline is ready returns
// errors.ErrNotReady, and after an aborted initialization the abort error.
func (b *Baseline) Confine(ctx context.Context, source string, bindings map[string]any) (graph.Value, error) {
	runner, err := b.ready()
	if err != nil {
		return nil, err
	}
	return runner.Confine(ctx, source, bindings)
}

// ConfineModule runs a WebAssembly module in a fresh realm that can call
// only imports.
func (b *Baseline) ConfineModule(ctx context.Context, wasm []byte, imports map[string]host.Import) (graph.Value, error) {
	runner, err := b.ready()
	if err != nil {
		return nil, err
	}
	return runner.ConfineModule(ctx, wasm, imports)
}
