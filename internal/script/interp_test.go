package script_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/internal/script"
	"github.com/drses/frozen-realms-shim/natives"
	"github.com/drses/frozen-realms-shim/primordials"
)

func newInterpreter(t testing.TB, opts ...script.Option) (*script.Interpreter, *graph.Object) {
	t.Helper()
	root, err := primordials.NewHost()
	require.NoError(t, err)
	in, err := natives.IntrinsicsFrom(root)
	require.NoError(t, err)
	return script.New(in, root, opts...), root
}

func eval(t *testing.T, src string) graph.Value {
	t.Helper()
	ip, _ := newInterpreter(t)
	v, err := ip.Eval(context.Background(), src)
	require.NoError(t, err, src)
	return v
}

func thrownKind(t *testing.T, err error) graph.ErrorKind {
	t.Helper()
	var thrown *graph.ThrownError
	require.True(t, errors.As(err, &thrown), "expected a thrown error, got %v", err)
	return thrown.Kind
}

func TestEval_Expressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want graph.Value
	}{
		{"precedence", "1 + 2 * 3", 7.0},
		{"parentheses", "(1 + 2) * 3", 9.0},
		{"remainder", "10 % 3", 1.0},
		{"string concatenation", "'a' + 1", "a1"},
		{"unary minus", "-(2 - 5)", 3.0},
		{"unary plus coerces", "+'42'", 42.0},
		{"not", "!0", true},
		{"typeof undeclared", "typeof nothingHere", "undefined"},
		{"typeof function", "typeof function () {}", "function"},
		{"loose equality", "null == undefined", true},
		{"strict equality", "null === undefined", false},
		{"string comparison", "'apple' < 'banana'", true},
		{"NaN comparison", "NaN < 1 || NaN >= 1", false},
		{"logical and", "1 < 2 && 2 < 3", true},
		{"logical or yields operand", "0 || 'fallback'", "fallback"},
		{"conditional", "1 > 2 ? 'x' : 'y'", "y"},
		{"array length", "[1, 2, 3].length", 3.0},
		{"nested member", "var o = {a: {b: 2}}; o.a.b", 2.0},
		{"bracket member", "var o = {'k-1': 5}; o['k-' + 1]", 5.0},
		{"string index", "'abc'[1]", "b"},
		{"native method", "Math.max(3, 9, 4)", 9.0},
		{"method this", "var o = {v: 2, get: function () { return this.v }}; o.get()", 2.0},
		{"new native constructor", "new Error('boom').message", "boom"},
		{"instanceof", "new TypeError('x') instanceof Error", true},
		{"in operator", "'a' in {a: 1}", true},
		{"sequence", "(1, 2, 3)", 3.0},
		{"void", "void 1", graph.Undefined},
		{"hex literal", "0xff", 255.0},
		{"exponent literal", "1.5e3", 1500.0},
		{"escapes", `"a\tbA"`, "a\tbA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, tt.src))
		})
	}
}

func TestEval_Statements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want graph.Value
	}{
		{"completion of if", "var x = 1; if (x) { 'yes' } else { 'no' }", "yes"},
		{"declarations have no completion", "1; var y = 2", 1.0},
		{"automatic semicolons", "var a = 1\nvar b = 2\na + b", 3.0},
		{"update operators", "var i = 5; i++; ++i; i--", 7.0},
		{"compound assignment", "var s = 'a'; s += 'b'; s", "ab"},
		{"for loop", "var sum = 0; for (var i = 0; i < 10; i++) { sum += i } sum", 45.0},
		{"while with break and continue", `
			var n = 0, hits = 0
			while (true) {
				n++
				if (n % 2 === 0) continue
				if (n > 9) break
				hits++
			}
			hits`, 5.0},
		{"do while runs once", "var c = 0; do { c++ } while (false); c", 1.0},
		{"let is block scoped", "let v = 'outer'; { let v = 'inner' } v", "outer"},
		{"closures", `
			function counter() {
				var count = 0
				return function () { return ++count }
			}
			var next = counter()
			next(); next(); next()`, 3.0},
		{"recursion", "function fact(n) { return n <= 1 ? 1 : n * fact(n - 1) } fact(10)", 3628800.0},
		{"hoisted function", "twice(4); function twice(n) { return 2 * n }", 8.0},
		{"named function expression", "var f = function self(n) { return n ? self(n - 1) + 1 : 0 }; f(3)", 3.0},
		{"arguments", "function f() { return arguments.length } f(1, 2, 3)", 3.0},
		{"catch native error", "try { null.x } catch (e) { e instanceof TypeError }", true},
		{"catch thrown value", "try { throw 42 } catch (e) { e }", 42.0},
		{"finally runs after return", `
			var log = ''
			function f() { try { return 'a' } finally { log = 'f' } }
			f() + log`, "af"},
		{"catch without binding", "var r = 'none'; try { undefinedThing } catch { r = 'caught' } r", "caught"},
		{"delete configurable", "var o = {a: 1}; delete o.a; 'a' in o", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eval(t, tt.src))
		})
	}
}

func TestEval_RuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind graph.ErrorKind
	}{
		{"undeclared read", "missing + 1", graph.KindReferenceError},
		{"undeclared write", "missing = 1", graph.KindReferenceError},
		{"constant reassignment", "const c = 1; c = 2", graph.KindTypeError},
		{"frozen write", "var o = Object.freeze({a: 1}); o.a = 2", graph.KindTypeError},
		{"frozen extension", "var o = Object.freeze({}); o.b = 1", graph.KindTypeError},
		{"frozen delete", "var o = Object.freeze({a: 1}); delete o.a", graph.KindTypeError},
		{"property of undefined", "var u; u.x", graph.KindTypeError},
		{"call non-function", "var n = 1; n()", graph.KindTypeError},
		{"new non-constructor", "new Math.max()", graph.KindTypeError},
		{"property on primitive", "var s = 'x'; s.y = 1", graph.KindTypeError},
		{"let redeclaration", "let d = 1; { let e = 1 } let d = 2", graph.KindSyntaxError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, _ := newInterpreter(t)
			_, err := ip.Eval(context.Background(), tt.src)
			require.Error(t, err)
			assert.Equal(t, tt.kind, thrownKind(t, err))
		})
	}
}

func TestEval_UncaughtThrow(t *testing.T) {
	ip, _ := newInterpreter(t)
	_, err := ip.Eval(context.Background(), "throw {code: 7}")
	var exc *graph.Exception
	require.True(t, errors.As(err, &exc))
	o, ok := exc.Value.(*graph.Object)
	require.True(t, ok)
	code, err := o.Get(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, 7.0, code)
}

func TestEval_SyntaxErrorPosition(t *testing.T) {
	tests := []struct {
		src        string
		line, col  int
		msgContain string
	}{
		{"var x = ;", 1, 9, "unexpected token"},
		{"1 +\n  )", 2, 3, "unexpected token"},
		{"'open", 1, 1, "unterminated string"},
		{"return 1", 1, 1, "illegal return"},
		{"break", 1, 1, "illegal break"},
		{"const k", 1, 7, "missing initializer"},
		{"a b", 1, 3, "unexpected token"},
		{"x = 1 = 2", 1, 7, "invalid assignment target"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := script.Parse(tt.src)
			var syn *script.SyntaxError
			require.True(t, errors.As(err, &syn), "got %v", err)
			assert.Equal(t, tt.line, syn.Line)
			assert.Equal(t, tt.col, syn.Column)
			assert.Contains(t, syn.Msg, tt.msgContain)
		})
	}
}

func TestParse_DeepNestingRejected(t *testing.T) {
	src := ""
	for j := 0; j < 2000; j++ {
		src += "("
	}
	_, err := script.Parse(src + "1")
	var syn *script.SyntaxError
	require.True(t, errors.As(err, &syn))
	assert.Contains(t, syn.Msg, "nested too deeply")
}

func TestRun_GlobalsPersistAcrossRuns(t *testing.T) {
	ip, root := newInterpreter(t)
	ctx := context.Background()

	_, err := ip.Eval(ctx, "var n = 1; let k = 10; function bump() { n++ }")
	require.NoError(t, err)
	assert.True(t, root.HasOwn("n"))
	assert.True(t, root.HasOwn("bump"))
	assert.False(t, root.HasOwn("k"), "let bindings stay off the global object")

	v, err := ip.Eval(ctx, "bump(); n + k")
	require.NoError(t, err)
	assert.Equal(t, 12.0, v)
}

func TestRun_ProgramIsReusable(t *testing.T) {
	prog, err := script.Parse("var total = 0; for (var i = 1; i <= 4; i++) total += i; total")
	require.NoError(t, err)

	for j := 0; j < 2; j++ {
		ip, _ := newInterpreter(t)
		v, err := ip.Run(context.Background(), prog)
		require.NoError(t, err)
		assert.Equal(t, 10.0, v)
	}
}

func TestRun_Canceled(t *testing.T) {
	ip, _ := newInterpreter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ip.Eval(ctx, "while (true) {}")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CancellationIsNotCatchable(t *testing.T) {
	ip, root := newInterpreter(t)
	ctx, cancel := context.WithCancel(context.Background())
	stop := graph.NewFunction(nil, "stop", 0, func(graph.Call) (graph.Value, error) {
		cancel()
		return graph.Undefined, nil
	})
	require.NoError(t, root.DefineOwn("stop", graph.DataDescriptor(stop, true, false, true)))

	_, err := ip.Eval(ctx, "var caught = false; try { stop(); for (;;) {} } catch (e) { caught = true }")
	assert.ErrorIs(t, err, context.Canceled)
	caught, getErr := root.Get(context.Background(), "caught")
	require.NoError(t, getErr)
	assert.Equal(t, false, caught)
}

func TestRun_CallDepthLimit(t *testing.T) {
	ip, _ := newInterpreter(t, script.WithMaxCallDepth(50))

	_, err := ip.Eval(context.Background(), "function f() { return f() } f()")
	assert.Equal(t, graph.KindRangeError, thrownKind(t, err))

	v, err := ip.Eval(context.Background(), "try { f() } catch (e) { e instanceof RangeError }")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestRun_ScriptFunctionsAreGraphFunctions(t *testing.T) {
	ip, _ := newInterpreter(t)
	v, err := ip.Eval(context.Background(), "(function add(a, b) { return a + b })")
	require.NoError(t, err)

	fn, ok := v.(*graph.Object)
	require.True(t, ok)
	name, ok := fn.GetOwn("name")
	require.True(t, ok)
	assert.Equal(t, "add", name.Value)

	sum, err := fn.Call(context.Background(), graph.Undefined, []graph.Value{3.0, 4.0})
	require.NoError(t, err)
	assert.Equal(t, 7.0, sum)
}
