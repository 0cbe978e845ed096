package ses

import (
	"log/slog"

	"github.com/drses/frozen-realms-shim/application/repair"
	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/domain/ports"
	"github.com/drses/frozen-realms-shim/host"
	"github.com/drses/frozen-realms-shim/primordials"
)

type baselineConfig struct {
	logger          *slog.Logger
	threshold       entities.Severity
	policy          *policy.Node
	policyPath      string
	catalog         *repair.Catalog
	maxExamples     int
	knownExtensions []string
	unlisted        *entities.Severity
	disabledRepairs []string
	repairObserver  ports.RepairObserver
	dispositions    ports.DispositionHandler
	maxCallDepth    int
	executorOpts    []host.Option
	hostOpts        []primordials.HostOption
}

func defaultBaselineConfig() baselineConfig {
	return baselineConfig{
		logger:    slog.Default(),
		threshold: entities.SeveritySafe,
	}
}

// Option configures a Baseline.
type Option func(*baselineConfig)

// WithLogger sets the logger for every stage of initialization.
func WithLogger(l *slog.Logger) Option {
	return func(c *baselineConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithThreshold sets the worst severity initialization accepts. The default
// is Safe.
func WithThreshold(s entities.Severity) Option {
	return func(c *baselineConfig) {
		c.threshold = s
	}
}

// WithPolicy tames with pol instead of the bundled policy.
func WithPolicy(pol *policy.Node) Option {
	return func(c *baselineConfig) {
		c.policy = pol
	}
}

// WithPolicyFile tames with the policy document at path (YAML, JSON or
// JSONC).
func WithPolicyFile(path string) Option {
	return func(c *baselineConfig) {
		c.policyPath = path
	}
}

// WithCatalog repairs with catalog instead of the bundled one.
func WithCatalog(catalog *repair.Catalog) Option {
	return func(c *baselineConfig) {
		c.catalog = catalog
	}
}

// WithMaxExamples bounds the violating paths kept in the report.
func WithMaxExamples(n int) Option {
	return func(c *baselineConfig) {
		c.maxExamples = n
	}
}

// WithKnownExtensions lists path globs of host extensions whose removal is
// expected.
func WithKnownExtensions(patterns ...string) Option {
	return func(c *baselineConfig) {
		c.knownExtensions = append(c.knownExtensions, patterns...)
	}
}

// WithUnlistedSeverity sets the severity of removing a name the policy does
// not mention.
func WithUnlistedSeverity(s entities.Severity) Option {
	return func(c *baselineConfig) {
		c.unlisted = &s
	}
}

// WithDisabledRepairs skips applying patches whose names match the globs.
// Their detectors still run.
func WithDisabledRepairs(patterns ...string) Option {
	return func(c *baselineConfig) {
		c.disabledRepairs = append(c.disabledRepairs, patterns...)
	}
}

// WithRepairObserver is notified of every graded patch.
func WithRepairObserver(o ports.RepairObserver) Option {
	return func(c *baselineConfig) {
		c.repairObserver = o
	}
}

// WithDispositionHandler is notified of every taming decision.
func WithDispositionHandler(h ports.DispositionHandler) Option {
	return func(c *baselineConfig) {
		c.dispositions = h
	}
}

// WithMaxCallDepth bounds nested calls in confined programs.
func WithMaxCallDepth(n int) Option {
	return func(c *baselineConfig) {
		c.maxCallDepth = n
	}
}

// WithExecutorOptions configures the WebAssembly executor.
func WithExecutorOptions(opts ...host.Option) Option {
	return func(c *baselineConfig) {
		c.executorOpts = append(c.executorOpts, opts...)
	}
}

// WithHostOptions configures the host graph Init builds. NewBaseline
// ignores it.
func WithHostOptions(opts ...primordials.HostOption) Option {
	return func(c *baselineConfig) {
		c.hostOpts = append(c.hostOpts, opts...)
	}
}
