package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/drses/frozen-realms-shim/graph"
)

const defaultMaxCallDepth = 512

type config struct {
	maxCallDepth int32
}

// Option configures an Interpreter.
type Option func(*config)

// WithMaxCallDepth bounds nested script function calls. Exceeding it
// raises a catchable RangeError.
func WithMaxCallDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxCallDepth = int32(n)
		}
	}
}

// Interpreter evaluates programs against one global object. Top-level var
// and function declarations become properties of the global; top-level
// let and const bindings persist between runs.
//
// An Interpreter is not safe for concurrent runs.
type Interpreter struct {
	in       *graph.Intrinsics
	global   *graph.Object
	lexical  *scope
	depth    atomic.Int32
	maxDepth int32
}

// New returns an interpreter that builds literals from in and resolves free
// identifiers on global.
func New(in *graph.Intrinsics, global *graph.Object, opts ...Option) *Interpreter {
	cfg := config{maxCallDepth: defaultMaxCallDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Interpreter{
		in:       in,
		global:   global,
		lexical:  newScope(nil),
		maxDepth: cfg.maxCallDepth,
	}
}

// Eval parses and runs src.
func (ip *Interpreter) Eval(ctx context.Context, src string) (graph.Value, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return ip.Run(ctx, prog)
}

// Run executes prog and returns its completion value: the value of the last
// expression statement evaluated at top level.
//
// Script-level failures are returned as *graph.ThrownError or
// *graph.Exception. Cancellation of ctx stops the run at the next loop
// iteration or call and cannot be caught by the script.
func (ip *Interpreter) Run(ctx context.Context, prog *Program) (graph.Value, error) {
	st := &state{ip: ip, ctx: ctx, top: true, result: graph.Undefined}
	if err := st.checkpoint(); err != nil {
		return nil, err
	}
	if err := st.hoistGlobals(prog.body); err != nil {
		return nil, err
	}
	for _, s := range prog.body {
		if _, err := st.exec(s, ip.lexical); err != nil {
			return nil, err
		}
	}
	return st.result, nil
}

type control int

const (
	ctlNormal control = iota
	ctlReturn
	ctlBreak
	ctlContinue
)

type completion struct {
	value graph.Value
	kind  control
}

// state is one activation: the program body or a single function call.
type state struct {
	ip     *Interpreter
	ctx    context.Context
	result graph.Value
	top    bool
}

func (st *state) checkpoint() error {
	if err := st.ctx.Err(); err != nil {
		return fmt.Errorf("evaluation interrupted: %w", err)
	}
	return nil
}

// catchable reports whether a script catch clause may observe err.
func catchable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (st *state) hoistGlobals(body []stmt) error {
	names := make(map[string]bool)
	hoistVars(body, names)
	for name := range names {
		if hasProperty(st.ip.global, name) {
			continue
		}
		if err := st.ip.global.DefineOwn(name, graph.DataDescriptor(graph.Undefined, true, true, false)); err != nil {
			return err
		}
	}
	for _, s := range body {
		decl, ok := s.(*funcDecl)
		if !ok {
			continue
		}
		fn := st.ip.closure(decl.fn, st.ip.lexical, false)
		if st.ip.global.HasOwn(decl.fn.name) {
			if err := st.ip.global.Set(st.ctx, decl.fn.name, fn); err != nil {
				return err
			}
			continue
		}
		if err := st.ip.global.DefineOwn(decl.fn.name, graph.DataDescriptor(fn, true, true, false)); err != nil {
			return err
		}
	}
	return nil
}

func (st *state) hoistFunctions(body []stmt, sc *scope) {
	for _, s := range body {
		if decl, ok := s.(*funcDecl); ok {
			sc.vars[decl.fn.name] = &binding{value: st.ip.closure(decl.fn, sc, false), mutable: true}
		}
	}
}

func (ip *Interpreter) closure(fn *funcLit, sc *scope, expression bool) *graph.Object {
	env := sc
	if expression && fn.name != "" {
		env = newScope(sc)
	}
	obj := ip.in.NewFunction(fn.name, len(fn.params), func(c graph.Call) (graph.Value, error) {
		return ip.invoke(c, fn, env)
	})
	if env != sc {
		env.vars[fn.name] = &binding{value: obj}
	}
	return obj
}

func (ip *Interpreter) invoke(c graph.Call, fn *funcLit, env *scope) (graph.Value, error) {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	st := &state{ip: ip, ctx: ctx}
	if err := st.checkpoint(); err != nil {
		return nil, err
	}
	if ip.depth.Add(1) > ip.maxDepth {
		ip.depth.Add(-1)
		return nil, graph.Throw(graph.KindRangeError, "maximum call stack size exceeded")
	}
	defer ip.depth.Add(-1)

	fs := newFunctionScope(env, c.This)
	fs.vars["arguments"] = &binding{value: ip.in.NewArray(c.Args...), mutable: true}
	for i, p := range fn.params {
		fs.vars[p] = &binding{value: c.Arg(i), mutable: true}
	}
	names := make(map[string]bool)
	hoistVars(fn.body, names)
	for name := range names {
		if _, ok := fs.vars[name]; !ok {
			fs.vars[name] = &binding{value: graph.Undefined, mutable: true}
		}
	}
	st.hoistFunctions(fn.body, fs)

	for _, s := range fn.body {
		done, err := st.exec(s, fs)
		if err != nil {
			return nil, err
		}
		if done.kind == ctlReturn {
			return done.value, nil
		}
	}
	return graph.Undefined, nil
}

func (st *state) exec(s stmt, sc *scope) (completion, error) {
	switch x := s.(type) {
	case *exprStmt:
		v, err := st.eval(x.x, sc)
		if err != nil {
			return completion{}, err
		}
		if st.top {
			st.result = v
		}
		return completion{}, nil
	case *varDecl:
		return completion{}, st.declare(x, sc)
	case *funcDecl, *emptyStmt:
		return completion{}, nil
	case *blockStmt:
		return st.block(x.body, newScope(sc))
	case *ifStmt:
		test, err := st.eval(x.test, sc)
		if err != nil {
			return completion{}, err
		}
		if graph.ToBoolean(test) {
			return st.exec(x.then, sc)
		}
		if x.otherwise != nil {
			return st.exec(x.otherwise, sc)
		}
		return completion{}, nil
	case *whileStmt:
		return st.loop(sc, x.test, nil, x.body, true)
	case *doWhileStmt:
		return st.loop(sc, x.test, nil, x.body, false)
	case *forStmt:
		ls := newScope(sc)
		if x.init != nil {
			if _, err := st.exec(x.init, ls); err != nil {
				return completion{}, err
			}
		}
		return st.loop(ls, x.test, x.update, x.body, true)
	case *returnStmt:
		var v graph.Value = graph.Undefined
		if x.value != nil {
			var err error
			if v, err = st.eval(x.value, sc); err != nil {
				return completion{}, err
			}
		}
		return completion{kind: ctlReturn, value: v}, nil
	case *breakStmt:
		return completion{kind: ctlBreak}, nil
	case *continueStmt:
		return completion{kind: ctlContinue}, nil
	case *throwStmt:
		v, err := st.eval(x.value, sc)
		if err != nil {
			return completion{}, err
		}
		return completion{}, &graph.Exception{Value: v}
	case *tryStmt:
		return st.try(x, sc)
	default:
		return completion{}, fmt.Errorf("unsupported statement %T", s)
	}
}

func (st *state) block(body []stmt, sc *scope) (completion, error) {
	st.hoistFunctions(body, sc)
	for _, s := range body {
		done, err := st.exec(s, sc)
		if err != nil || done.kind != ctlNormal {
			return done, err
		}
	}
	return completion{}, nil
}

// loop runs body while test holds. A nil test loops forever; testFirst is
// false for do-while.
func (st *state) loop(sc *scope, test, update expr, body stmt, testFirst bool) (completion, error) {
	for first := true; ; first = false {
		if err := st.checkpoint(); err != nil {
			return completion{}, err
		}
		if test != nil && (testFirst || !first) {
			v, err := st.eval(test, sc)
			if err != nil {
				return completion{}, err
			}
			if !graph.ToBoolean(v) {
				return completion{}, nil
			}
		}
		done, err := st.exec(body, sc)
		if err != nil {
			return completion{}, err
		}
		switch done.kind {
		case ctlBreak:
			return completion{}, nil
		case ctlReturn:
			return done, nil
		}
		if update != nil {
			if _, err := st.eval(update, sc); err != nil {
				return completion{}, err
			}
		}
	}
}

func (st *state) try(x *tryStmt, sc *scope) (completion, error) {
	done, err := st.block(x.block.body, newScope(sc))
	if err != nil && x.handler != nil && catchable(err) {
		hs := newScope(sc)
		if x.param != "" {
			hs.vars[x.param] = &binding{value: st.ip.in.ErrorValue(err), mutable: true}
		}
		done, err = st.block(x.handler.body, hs)
	}
	if x.finalizer != nil {
		fin, ferr := st.block(x.finalizer.body, newScope(sc))
		if ferr != nil || fin.kind != ctlNormal {
			return fin, ferr
		}
	}
	return done, err
}

func (st *state) declare(x *varDecl, sc *scope) error {
	for _, d := range x.decls {
		var v graph.Value = graph.Undefined
		if d.init != nil {
			var err error
			if v, err = st.eval(d.init, sc); err != nil {
				return err
			}
		} else if x.kind == "var" {
			continue
		}
		if x.kind == "var" {
			if err := st.putName(d.name, v, sc); err != nil {
				return err
			}
			continue
		}
		if err := sc.declare(d.name, v, x.kind == "let", true); err != nil {
			return err
		}
	}
	return nil
}

func hasProperty(o *graph.Object, name string) bool {
	for cur := o; cur != nil; cur = cur.Proto() {
		if cur.HasOwn(name) {
			return true
		}
	}
	return false
}

// resolvable reports whether name is bound in scope or on the global.
func (st *state) resolvable(name string, sc *scope) bool {
	if _, ok := sc.lookup(name); ok {
		return true
	}
	return hasProperty(st.ip.global, name)
}

func (st *state) lookupName(name string, sc *scope) (graph.Value, error) {
	if b, ok := sc.lookup(name); ok {
		return b.value, nil
	}
	if hasProperty(st.ip.global, name) {
		return st.ip.global.Get(st.ctx, name)
	}
	switch name {
	case "undefined":
		return graph.Undefined, nil
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	}
	return nil, graph.Throw(graph.KindReferenceError, "%s is not defined", name)
}

func (st *state) putName(name string, v graph.Value, sc *scope) error {
	if b, ok := sc.lookup(name); ok {
		if !b.mutable {
			return graph.Throw(graph.KindTypeError, "assignment to constant variable '%s'", name)
		}
		b.value = v
		return nil
	}
	if hasProperty(st.ip.global, name) {
		return st.ip.global.Set(st.ctx, name, v)
	}
	return graph.Throw(graph.KindReferenceError, "%s is not defined", name)
}

// reference is an assignable location: a name, or a property of a base
// value.
type reference struct {
	base   graph.Value
	name   string
	member bool
}

func (st *state) reference(e expr, sc *scope) (reference, error) {
	switch x := e.(type) {
	case *ident:
		return reference{name: x.name}, nil
	case *member:
		base, key, err := st.memberParts(x, sc)
		if err != nil {
			return reference{}, err
		}
		return reference{base: base, name: key, member: true}, nil
	default:
		return reference{}, graph.Throw(graph.KindSyntaxError, "invalid assignment target")
	}
}

func (st *state) getValue(r reference, sc *scope) (graph.Value, error) {
	if r.member {
		return st.ip.in.GetProperty(st.ctx, r.base, r.name)
	}
	return st.lookupName(r.name, sc)
}

func (st *state) putValue(r reference, v graph.Value, sc *scope) error {
	if !r.member {
		return st.putName(r.name, v, sc)
	}
	o, ok := r.base.(*graph.Object)
	if !ok {
		if graph.IsNullish(r.base) {
			return graph.Throw(graph.KindTypeError, "cannot set property '%s' of %s", r.name, graph.Describe(r.base))
		}
		return graph.Throw(graph.KindTypeError, "cannot create property '%s' on %s", r.name, graph.Describe(r.base))
	}
	return o.Set(st.ctx, r.name, v)
}

func (st *state) memberParts(m *member, sc *scope) (graph.Value, string, error) {
	base, err := st.eval(m.object, sc)
	if err != nil {
		return nil, "", err
	}
	if m.index == nil {
		return base, m.name, nil
	}
	idx, err := st.eval(m.index, sc)
	if err != nil {
		return nil, "", err
	}
	key, err := graph.ToString(st.ctx, idx)
	if err != nil {
		return nil, "", err
	}
	return base, key, nil
}

func (st *state) eval(e expr, sc *scope) (graph.Value, error) {
	switch x := e.(type) {
	case *numberLit:
		return x.value, nil
	case *stringLit:
		return x.value, nil
	case *boolLit:
		return x.value, nil
	case *nullLit:
		return graph.Null, nil
	case *undefinedLit:
		return graph.Undefined, nil
	case *thisExpr:
		return sc.thisValue(), nil
	case *ident:
		return st.lookupName(x.name, sc)
	case *arrayLit:
		elems, err := st.evalList(x.elems, sc)
		if err != nil {
			return nil, err
		}
		return st.ip.in.NewArray(elems...), nil
	case *objectLit:
		o := st.ip.in.NewObject()
		for _, p := range x.props {
			v, err := st.eval(p.value, sc)
			if err != nil {
				return nil, err
			}
			if err := o.DefineOwn(p.key, graph.DataDescriptor(v, true, true, true)); err != nil {
				return nil, err
			}
		}
		return o, nil
	case *funcLit:
		return st.ip.closure(x, sc, true), nil
	case *member:
		base, key, err := st.memberParts(x, sc)
		if err != nil {
			return nil, err
		}
		return st.ip.in.GetProperty(st.ctx, base, key)
	case *callExpr:
		return st.call(x, sc)
	case *newExpr:
		return st.construct(x, sc)
	case *unary:
		return st.unary(x, sc)
	case *update:
		r, err := st.reference(x.target, sc)
		if err != nil {
			return nil, err
		}
		old, err := st.getValue(r, sc)
		if err != nil {
			return nil, err
		}
		n, err := graph.ToNumber(st.ctx, old)
		if err != nil {
			return nil, err
		}
		next := n + 1
		if x.op == "--" {
			next = n - 1
		}
		if err := st.putValue(r, next, sc); err != nil {
			return nil, err
		}
		if x.prefix {
			return next, nil
		}
		return n, nil
	case *binary:
		left, err := st.eval(x.left, sc)
		if err != nil {
			return nil, err
		}
		right, err := st.eval(x.right, sc)
		if err != nil {
			return nil, err
		}
		return st.binary(x.op, left, right)
	case *logical:
		left, err := st.eval(x.left, sc)
		if err != nil {
			return nil, err
		}
		if graph.ToBoolean(left) == (x.op == "||") {
			return left, nil
		}
		return st.eval(x.right, sc)
	case *conditional:
		test, err := st.eval(x.test, sc)
		if err != nil {
			return nil, err
		}
		if graph.ToBoolean(test) {
			return st.eval(x.then, sc)
		}
		return st.eval(x.otherwise, sc)
	case *assign:
		return st.assign(x, sc)
	case *sequence:
		var v graph.Value = graph.Undefined
		for _, item := range x.exprs {
			var err error
			if v, err = st.eval(item, sc); err != nil {
				return nil, err
			}
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported expression %T", e)
	}
}

func (st *state) evalList(list []expr, sc *scope) ([]graph.Value, error) {
	out := make([]graph.Value, 0, len(list))
	for _, item := range list {
		v, err := st.eval(item, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (st *state) assign(x *assign, sc *scope) (graph.Value, error) {
	r, err := st.reference(x.target, sc)
	if err != nil {
		return nil, err
	}
	var v graph.Value
	if x.op == "=" {
		if v, err = st.eval(x.value, sc); err != nil {
			return nil, err
		}
	} else {
		old, err := st.getValue(r, sc)
		if err != nil {
			return nil, err
		}
		rhs, err := st.eval(x.value, sc)
		if err != nil {
			return nil, err
		}
		if v, err = st.binary(x.op[:len(x.op)-1], old, rhs); err != nil {
			return nil, err
		}
	}
	if err := st.putValue(r, v, sc); err != nil {
		return nil, err
	}
	return v, nil
}

func (st *state) call(x *callExpr, sc *scope) (graph.Value, error) {
	var this graph.Value = graph.Undefined
	var callee graph.Value
	var err error
	if m, ok := x.callee.(*member); ok {
		var key string
		if this, key, err = st.memberParts(m, sc); err != nil {
			return nil, err
		}
		if callee, err = st.ip.in.GetProperty(st.ctx, this, key); err != nil {
			return nil, err
		}
	} else if callee, err = st.eval(x.callee, sc); err != nil {
		return nil, err
	}
	args, err := st.evalList(x.args, sc)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(*graph.Object)
	if !ok || !fn.IsCallable() {
		return nil, graph.Throw(graph.KindTypeError, "%s is not a function", calleeName(x.callee))
	}
	if err := st.checkpoint(); err != nil {
		return nil, err
	}
	return fn.Call(st.ctx, this, args)
}

func (st *state) construct(x *newExpr, sc *scope) (graph.Value, error) {
	callee, err := st.eval(x.callee, sc)
	if err != nil {
		return nil, err
	}
	args, err := st.evalList(x.args, sc)
	if err != nil {
		return nil, err
	}
	fn, ok := callee.(*graph.Object)
	if !ok || !fn.IsConstructor() {
		return nil, graph.Throw(graph.KindTypeError, "%s is not a constructor", calleeName(x.callee))
	}
	if err := st.checkpoint(); err != nil {
		return nil, err
	}
	return fn.Construct(st.ctx, args)
}

func calleeName(e expr) string {
	switch x := e.(type) {
	case *ident:
		return x.name
	case *member:
		if x.index == nil {
			return calleeName(x.object) + "." + x.name
		}
		return calleeName(x.object) + "[...]"
	case *thisExpr:
		return "this"
	default:
		return "expression"
	}
}

func (st *state) unary(x *unary, sc *scope) (graph.Value, error) {
	switch x.op {
	case "typeof":
		if id, ok := x.operand.(*ident); ok && !st.resolvable(id.name, sc) {
			return "undefined", nil
		}
	case "delete":
		m, ok := x.operand.(*member)
		if !ok {
			if _, err := st.eval(x.operand, sc); err != nil {
				return nil, err
			}
			return true, nil
		}
		base, key, err := st.memberParts(m, sc)
		if err != nil {
			return nil, err
		}
		o, ok := base.(*graph.Object)
		if !ok {
			if graph.IsNullish(base) {
				return nil, graph.Throw(graph.KindTypeError, "cannot delete property '%s' of %s", key, graph.Describe(base))
			}
			return true, nil
		}
		if err := o.Delete(key); err != nil {
			return nil, err
		}
		return true, nil
	}

	v, err := st.eval(x.operand, sc)
	if err != nil {
		return nil, err
	}
	switch x.op {
	case "typeof":
		return graph.TypeOf(v), nil
	case "void":
		return graph.Undefined, nil
	case "!":
		return !graph.ToBoolean(v), nil
	case "-":
		n, err := graph.ToNumber(st.ctx, v)
		if err != nil {
			return nil, err
		}
		return -n, nil
	default:
		return graph.ToNumber(st.ctx, v)
	}
}

func (st *state) binary(op string, left, right graph.Value) (graph.Value, error) {
	ctx := st.ctx
	switch op {
	case "+":
		return add(ctx, left, right)
	case "-", "*", "/", "%":
		a, err := graph.ToNumber(ctx, left)
		if err != nil {
			return nil, err
		}
		b, err := graph.ToNumber(ctx, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			return a / b, nil
		default:
			return math.Mod(a, b), nil
		}
	case "<", ">", "<=", ">=":
		return compare(ctx, op, left, right)
	case "===":
		return graph.StrictEquals(left, right), nil
	case "!==":
		return !graph.StrictEquals(left, right), nil
	case "==", "!=":
		eq, err := graph.LooseEquals(ctx, left, right)
		if err != nil {
			return nil, err
		}
		return eq == (op == "=="), nil
	case "instanceof":
		return instanceOf(ctx, left, right)
	case "in":
		o, ok := right.(*graph.Object)
		if !ok {
			return nil, graph.Throw(graph.KindTypeError, "cannot use 'in' operator to search for a key in %s", graph.Describe(right))
		}
		key, err := graph.ToString(ctx, left)
		if err != nil {
			return nil, err
		}
		return hasProperty(o, key), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
}

func add(ctx context.Context, left, right graph.Value) (graph.Value, error) {
	a, err := graph.ToPrimitive(ctx, left, "default")
	if err != nil {
		return nil, err
	}
	b, err := graph.ToPrimitive(ctx, right, "default")
	if err != nil {
		return nil, err
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr || bStr {
		as, err := graph.ToString(ctx, a)
		if err != nil {
			return nil, err
		}
		bs, err := graph.ToString(ctx, b)
		if err != nil {
			return nil, err
		}
		return as + bs, nil
	}
	x, err := graph.ToNumber(ctx, a)
	if err != nil {
		return nil, err
	}
	y, err := graph.ToNumber(ctx, b)
	if err != nil {
		return nil, err
	}
	return x + y, nil
}

func compare(ctx context.Context, op string, left, right graph.Value) (graph.Value, error) {
	a, err := graph.ToPrimitive(ctx, left, "number")
	if err != nil {
		return nil, err
	}
	b, err := graph.ToPrimitive(ctx, right, "number")
	if err != nil {
		return nil, err
	}
	as, aStr := a.(string)
	bs, bStr := b.(string)
	if aStr && bStr {
		switch op {
		case "<":
			return as < bs, nil
		case ">":
			return as > bs, nil
		case "<=":
			return as <= bs, nil
		default:
			return as >= bs, nil
		}
	}
	x, err := graph.ToNumber(ctx, a)
	if err != nil {
		return nil, err
	}
	y, err := graph.ToNumber(ctx, b)
	if err != nil {
		return nil, err
	}
	switch op {
	case "<":
		return x < y, nil
	case ">":
		return x > y, nil
	case "<=":
		return x <= y, nil
	default:
		return x >= y, nil
	}
}

func instanceOf(ctx context.Context, left, right graph.Value) (graph.Value, error) {
	ctor, ok := right.(*graph.Object)
	if !ok || !ctor.IsCallable() {
		return nil, graph.Throw(graph.KindTypeError, "right-hand side of 'instanceof' is not callable")
	}
	o, ok := left.(*graph.Object)
	if !ok {
		return false, nil
	}
	pv, err := ctor.Get(ctx, "prototype")
	if err != nil {
		return nil, err
	}
	proto, ok := pv.(*graph.Object)
	if !ok {
		return nil, graph.Throw(graph.KindTypeError, "function has non-object prototype in instanceof check")
	}
	for cur := o.Proto(); cur != nil; cur = cur.Proto() {
		if cur == proto {
			return true, nil
		}
	}
	return false, nil
}
