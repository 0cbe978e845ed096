package natives_test

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

func evalHost(t *testing.T, src string) (graph.Value, error) {
	t.Helper()
	root, err := primordials.NewHost()
	require.NoError(t, err)
	in, err := natives.IntrinsicsFrom(root)
	require.NoError(t, err)
	return script.New(in, root).Eval(context.Background(), src)
}

func TestStandardBundles_Behaviour(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want graph.Value
	}{
		{"array map", "[1, 2, 3].map(function (x) { return x * 2 }).join('-')", "2-4-6"},
		{"array filter", "[1, 2, 3, 4].filter(function (x) { return x % 2 == 0 }).length", 2.0},
		{"array reduce", "[1, 2, 3].reduce(function (a, b) { return a + b }, 0)", 6.0},
		{"array indexOf", "[1, 2, 3].indexOf(2)", 1.0},
		{"array push returns length", "var a = [1]; a.push(2, 3)", 3.0},
		{"array isArray", "Array.isArray([]) && !Array.isArray({})", true},
		{"object keys keep insertion order", "Object.keys({b: 1, a: 2}).join(',')", "b,a"},
		{"object create", "Object.getPrototypeOf(Object.create(null)) === null", true},
		{"object freeze", "var o = Object.freeze({a: 1}); Object.isFrozen(o)", true},
		{"hasOwnProperty", "var o = Object.create({inherited: 1}); o.own = 2; o.hasOwnProperty('own') && !o.hasOwnProperty('inherited')", true},
		{"function call", "function f() { return this.v } f.call({v: 9})", 9.0},
		{"function apply", "function add(a, b) { return a + b } add.apply(null, [2, 5])", 7.0},
		{"function bind", "function add(a, b) { return a + b } add.bind(null, 1)(2)", 3.0},
		{"json roundtrip", `JSON.stringify(JSON.parse('{"a":[1,"x",true,null]}'))`, `{"a":[1,"x",true,null]}`},
		{"json parse delegates to Object.prototype", "Object.getPrototypeOf(JSON.parse('{}')) === Object.prototype", true},
		{"math", "Math.max(1, 5, 3) + Math.floor(2.7) + Math.abs(-1)", 8.0},
		{"string methods", "'  Hello '.trim().toUpperCase()", "HELLO"},
		{"string split", "'a,b,c'.split(',').length", 3.0},
		{"number toFixed", "(1.005).toFixed(1)", "1.0"},
		{"parseInt", "parseInt('42px')", 42.0},
		{"isNaN", "isNaN(parseFloat('x'))", true},
		{"error toString", "String(new TypeError('bad'))", "TypeError: bad"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := evalHost(t, tt.src)
			require.NoError(t, err, tt.src)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestStandardBundles_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind graph.ErrorKind
	}{
		{"push onto frozen array", "var a = Object.freeze([1]); a.push(2)", graph.KindTypeError},
		{"json syntax", "JSON.parse('{')", graph.KindSyntaxError},
		{"json cycle", "var o = {}; o.o = o; JSON.stringify(o)", graph.KindTypeError},
		{"defineProperty on non-extensible", "var o = Object.preventExtensions({}); Object.defineProperty(o, 'x', {value: 1})", graph.KindTypeError},
		{"call non-function", "Function.prototype.call.call(1)", graph.KindTypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evalHost(t, tt.src)
			var thrown *graph.ThrownError
			require.True(t, errors.As(err, &thrown), "got %v", err)
			assert.Equal(t, tt.kind, thrown.Kind)
		})
	}
}

func TestIntrinsicsFrom(t *testing.T) {
	root, err := primordials.NewHost()
	require.NoError(t, err)

	in, err := natives.IntrinsicsFrom(root)
	require.NoError(t, err)
	proto, _ := graph.Lookup(root, "Array", "prototype")
	assert.Same(t, proto, in.ArrayPrototype)
	assert.Contains(t, in.ErrorPrototypes, graph.KindTypeError)

	_, err = natives.IntrinsicsFrom(graph.New(nil))
	assert.Error(t, err)
}

func TestIntrinsicsFrom_ErrorsAreOptional(t *testing.T) {
	root, err := primordials.NewHost()
	require.NoError(t, err)
	require.NoError(t, root.Delete("Error"))

	in, err := natives.IntrinsicsFrom(root)
	require.NoError(t, err)
	assert.NotContains(t, in.ErrorPrototypes, graph.KindError)
	assert.Contains(t, in.ErrorPrototypes, graph.KindTypeError)
}
