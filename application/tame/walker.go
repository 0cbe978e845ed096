// Package tame implements the Taming Walker: it prunes a host graph to what
// a Policy Tree permits and freezes everything that remains reachable.
package tame

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

// CategoryPolicyMismatch is the ledger category for records that do not fit
// the graph.
const CategoryPolicyMismatch = "taming:policy-mismatch"

// walkerConfig holds configuration for a Walker.
type walkerConfig struct {
	logger          *slog.Logger
	handler         ports.DispositionHandler
	knownExtensions []string
	maxExamples     int
	unlisted        entities.Severity
}

func defaultWalkerConfig() walkerConfig {
	return walkerConfig{
		logger:      slog.Default(),
		maxExamples: entities.DefaultMaxExamples,
		unlisted:    entities.SeverityNewSymptom,
	}
}

// WalkerOption configures a Walker.
type WalkerOption func(*walkerConfig)

// WithMaxExamples bounds the violating paths kept in the report.
func WithMaxExamples(n int) WalkerOption {
	return func(c *walkerConfig) {
		c.maxExamples = n
	}
}

// WithKnownExtensions lowers the severity of deleting an unlisted property
// whose path matches one of the doublestar patterns to SafeSpecViolation.
// Paths are dotted, e.g. "Object.prototype.__*".
func WithKnownExtensions(patterns ...string) WalkerOption {
	return func(c *walkerConfig) {
		c.knownExtensions = append(c.knownExtensions, patterns...)
	}
}

// WithUnlistedSeverity sets the severity of deleting an unlisted property.
func WithUnlistedSeverity(s entities.Severity) WalkerOption {
	return func(c *walkerConfig) {
		c.unlisted = s
	}
}

// WithDispositionHandler registers a handler called for every decision.
func WithDispositionHandler(h ports.DispositionHandler) WalkerOption {
	return func(c *walkerConfig) {
		c.handler = h
	}
}

// WithLogger sets the walker's logger.
func WithLogger(l *slog.Logger) WalkerOption {
	return func(c *walkerConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Walker tames graphs. A Walker holds no per-run state and may be reused.
type Walker struct {
	config    walkerConfig
	extension *policy.GlobSet
}

// NewWalker creates a walker. It fails when a known-extension pattern is
// malformed.
func NewWalker(opts ...WalkerOption) (*Walker, error) {
	cfg := defaultWalkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.unlisted.Valid() {
		return nil, fmt.Errorf("invalid unlisted severity %d", int(cfg.unlisted))
	}
	globs, err := policy.NewGlobSet(cfg.knownExtensions...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile known extensions: %w", err)
	}
	return &Walker{config: cfg, extension: globs}, nil
}

// registration pairs an object with the record that describes it.
type registration struct {
	node *policy.Node
	path string
}

type frame struct {
	obj  *graph.Object
	path string
}

// run holds the state of a single Tame call.
type run struct {
	w          *Walker
	ledger     *ledger.Ledger
	report     *entities.DispositionReport
	registered map[*graph.Object]registration
	visited    map[*graph.Object]bool
	stack      []frame
}

// Tame applies pol to the graph rooted at root. Every decision is recorded
// in led and folded into the returned report. Every object reachable from
// root through kept properties and delegation edges ends up frozen.
//
// Tame is idempotent: a second pass over a tamed graph deletes nothing.
func (w *Walker) Tame(ctx context.Context, root *graph.Object, pol *policy.Node, led *ledger.Ledger) (*entities.DispositionReport, error) {
	if root == nil {
		return nil, fmt.Errorf("cannot tame a nil root")
	}
	if pol == nil {
		pol = policy.NewNode()
	}

	r := &run{
		w:          w,
		ledger:     led,
		report:     entities.NewDispositionReport(w.config.maxExamples),
		registered: make(map[*graph.Object]registration),
		visited:    make(map[*graph.Object]bool),
	}
	r.report.PolicyDigest = policy.Digest(pol)

	r.register(root, pol)
	if err := r.clean(ctx, root); err != nil {
		return r.report, err
	}
	r.report.Visited = len(r.visited)

	w.config.logger.InfoContext(ctx, "taming complete",
		"summary", r.report.Summary(),
		"visited", r.report.Visited,
		"policy_digest", r.report.PolicyDigest)
	return r.report, nil
}

// register pairs nested records with the objects they describe. It follows
// own data properties only and never invokes accessors.
func (r *run) register(root *graph.Object, pol *policy.Node) {
	type item struct {
		obj  *graph.Object
		node *policy.Node
		path string
	}
	work := []item{{obj: root, node: pol}}

	for len(work) > 0 {
		it := work[len(work)-1]
		work = work[:len(work)-1]

		if prev, ok := r.registered[it.obj]; ok {
			if prev.node != it.node {
				r.mismatch(it.path, fmt.Sprintf("object already described by the record at %q", displayPath(prev.path)),
					entities.SeverityUnsafeSpecViolation)
			}
			continue
		}
		r.registered[it.obj] = registration{node: it.node, path: it.path}

		for _, name := range it.node.Names() {
			entry, _ := it.node.Lookup(name)
			path := policy.JoinPath(it.path, name)
			d, ok := it.obj.GetOwn(name)
			if !ok {
				if entry.Permits() {
					r.decide(entities.Violation{
						Path:        path,
						Disposition: entities.DispositionMissing,
						Severity:    entities.SeveritySafe,
						Reason:      "listed but absent",
					})
				}
				continue
			}
			if entry.Kind != policy.KindNested {
				continue
			}
			if d.Accessor {
				r.mismatch(path, "record describes an accessor", entities.SeveritySafeSpecViolation)
				continue
			}
			child, isObj := d.Value.(*graph.Object)
			if !isObj {
				r.mismatch(path, "record describes a "+graph.TypeOf(d.Value), entities.SeveritySafeSpecViolation)
				continue
			}
			work = append(work, item{obj: child, node: entry.Node, path: path})
		}
	}
}

// clean visits every reachable object once with an explicit stack, so
// cycles and deep graphs are both safe.
func (r *run) clean(ctx context.Context, root *graph.Object) error {
	r.stack = append(r.stack, frame{obj: root})
	for len(r.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("taming interrupted: %w", err)
		}
		f := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		if r.visited[f.obj] {
			continue
		}
		r.visited[f.obj] = true

		if reg, ok := r.registered[f.obj]; ok {
			f.path = reg.path
		}
		for _, name := range f.obj.OwnKeys() {
			r.cleanProperty(f.obj, f.path, name)
		}
		f.obj.Freeze()

		if proto := f.obj.Proto(); proto != nil {
			r.push(proto, protoPath(proto, f.path))
		}
	}
	return nil
}

func (r *run) cleanProperty(obj *graph.Object, objPath, name string) {
	d, ok := obj.GetOwn(name)
	if !ok {
		return
	}
	path := policy.JoinPath(objPath, name)
	entry, inherited, matched := r.resolve(obj, name)

	switch {
	case !matched:
		sev, reason := r.w.config.unlisted, "not listed"
		if r.w.extension.Match(path) {
			sev, reason = entities.SeveritySafeSpecViolation, "known extension"
		}
		r.remove(obj, path, name, d, sev, reason)

	case entry.Kind == policy.KindDeny:
		if r.ancestorInherits(obj, name) {
			r.remove(obj, path, name, d, entities.SeveritySafe, "denied")
			return
		}
		r.remove(obj, path, name, d, entities.SeveritySafeSpecViolation, "denied")

	case entry.Kind == policy.KindPermitAccessorAware:
		if d.Accessor {
			r.decide(entities.Violation{Path: path, Disposition: entities.DispositionFrozenOnly, Severity: entities.SeveritySafe, Reason: "accessor"})
			r.pushAccessor(d, path)
			return
		}
		r.keep(path, d, inherited)

	default:
		if d.Accessor {
			r.remove(obj, path, name, d, entities.SeveritySafeSpecViolation, "accessor not permitted")
			return
		}
		r.keep(path, d, inherited)
	}
}

// resolve finds the entry governing name on obj: the object's own record
// first, then the delegation chain. InheritPermit carries over to
// delegators, and so does a Deny that suppresses one further up.
func (r *run) resolve(obj *graph.Object, name string) (entry policy.Entry, inherited, matched bool) {
	if reg, ok := r.registered[obj]; ok {
		if e, found := reg.node.Lookup(name); found {
			return e, false, true
		}
	}
	for p := obj.Proto(); p != nil; p = p.Proto() {
		reg, ok := r.registered[p]
		if !ok {
			continue
		}
		e, found := reg.node.Lookup(name)
		if !found {
			continue
		}
		switch e.Kind {
		case policy.KindInheritPermit, policy.KindDeny:
			return e, true, true
		}
		return policy.Entry{}, false, false
	}
	return policy.Entry{}, false, false
}

func (r *run) ancestorInherits(obj *graph.Object, name string) bool {
	for p := obj.Proto(); p != nil; p = p.Proto() {
		if reg, ok := r.registered[p]; ok {
			if e, found := reg.node.Lookup(name); found && e.Kind == policy.KindInheritPermit {
				return true
			}
		}
	}
	return false
}

func (r *run) keep(path string, d graph.Descriptor, inherited bool) {
	reason := "listed"
	if inherited {
		reason = "inherited"
	}
	r.decide(entities.Violation{Path: path, Disposition: entities.DispositionKept, Severity: entities.SeveritySafe, Reason: reason})
	if child, ok := d.Value.(*graph.Object); ok {
		r.push(child, path)
	}
}

// remove deletes name from obj. A non-configurable property cannot be
// deleted; it is skipped and its value is still walked and frozen.
func (r *run) remove(obj *graph.Object, path, name string, d graph.Descriptor, sev entities.Severity, reason string) {
	if err := obj.Delete(name); err == nil {
		r.decide(entities.Violation{Path: path, Disposition: entities.DispositionDeleted, Severity: sev, Reason: reason})
		return
	}

	skipSev := entities.SeveritySafeSpecViolation
	if _, isObj := d.Value.(*graph.Object); isObj || d.Accessor {
		skipSev = entities.SeverityUnsafeSpecViolation
	}
	r.decide(entities.Violation{Path: path, Disposition: entities.DispositionSkipped, Severity: skipSev, Reason: reason + ", not configurable"})
	if d.Accessor {
		r.pushAccessor(d, path)
		return
	}
	if child, ok := d.Value.(*graph.Object); ok {
		r.push(child, path)
	}
}

func (r *run) pushAccessor(d graph.Descriptor, path string) {
	if d.Get != nil {
		r.push(d.Get, path+"[get]")
	}
	if d.Set != nil {
		r.push(d.Set, path+"[set]")
	}
}

func (r *run) push(obj *graph.Object, path string) {
	if !r.visited[obj] {
		r.stack = append(r.stack, frame{obj: obj, path: path})
	}
}

func (r *run) decide(v entities.Violation) {
	r.report.Add(v)
	r.ledger.Record("taming:"+v.Disposition.Key(), v.Severity)
	if r.w.config.handler != nil {
		r.w.config.handler.OnDisposition(v)
	}
	if v.Severity > entities.SeveritySafe {
		r.w.config.logger.Debug("property tamed",
			"path", v.Path,
			"disposition", v.Disposition.String(),
			"severity", v.Severity.String(),
			"reason", v.Reason)
	}
}

func (r *run) mismatch(path, reason string, sev entities.Severity) {
	err := &domainErrors.PolicyMismatch{Path: displayPath(path), Reason: reason, Severity: sev}
	r.report.AddMismatch(err.Path, reason, sev)
	r.ledger.Record(CategoryPolicyMismatch, sev)
	r.w.config.logger.Warn("policy mismatch", "error", err, "severity", sev.String())
}

// protoPath names a delegation target: its label when it has one,
// otherwise the delegator's path with a suffix.
func protoPath(proto *graph.Object, from string) string {
	if label := proto.Label(); label != "" {
		return label
	}
	return policy.JoinPath(from, "__proto__")
}

func displayPath(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
