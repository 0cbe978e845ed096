package realm_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/application/realm"
	"github.com/drses/frozen-realms-shim/application/tame"
	"github.com/drses/frozen-realms-shim/domain/entities"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/ledger"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/host"
	"github.com/drses/frozen-realms-shim/internal/testutil"
	"github.com/drses/frozen-realms-shim/natives"
	"github.com/drses/frozen-realms-shim/primordials"
)

func hardenedRoot(t testing.TB) *graph.Object {
	t.Helper()
	root, err := primordials.NewHost()
	require.NoError(t, err)
	pol, err := primordials.DefaultPolicy()
	require.NoError(t, err)
	w, err := tame.NewWalker()
	require.NoError(t, err)
	_, err = w.Tame(context.Background(), root, pol, ledger.New())
	require.NoError(t, err)
	return root
}

func newRunner(t testing.TB, opts ...realm.FactoryOption) (*realm.Runner, *realm.Factory) {
	t.Helper()
	f, err := realm.NewFactory(hardenedRoot(t), opts...)
	require.NoError(t, err)
	return realm.NewRunner(f), f
}

func TestNewFactory_RejectsUnfrozenRoot(t *testing.T) {
	root, err := primordials.NewHost()
	require.NoError(t, err)

	_, err = realm.NewFactory(root)
	assert.ErrorIs(t, err, realm.ErrNotFrozen)

	_, err = realm.NewFactory(nil)
	assert.Error(t, err)
}

func TestNewFactory_RejectsUnfrozenPrototype(t *testing.T) {
	objProto := graph.New(nil)
	ctor := func(proto *graph.Object) *graph.Object {
		c := graph.New(objProto)
		require.NoError(t, c.DefineOwn("prototype", graph.DataDescriptor(proto, false, false, false)))
		c.Freeze()
		return c
	}
	strProto := graph.New(objProto)
	root := graph.New(nil)
	for name, proto := range map[string]*graph.Object{
		"Object":   objProto,
		"Function": graph.New(objProto),
		"Array":    graph.New(objProto),
		"String":   strProto,
	} {
		require.NoError(t, root.DefineOwn(name, graph.DataDescriptor(ctor(proto), false, false, false)))
		if proto != strProto {
			proto.Freeze()
		}
	}
	root.Freeze()

	_, err := realm.NewFactory(root)
	require.ErrorIs(t, err, realm.ErrNotFrozen)
	assert.Contains(t, err.Error(), "String.prototype")
}

func TestNewFactory_PolicyWithoutErrors(t *testing.T) {
	root, err := primordials.NewHost()
	require.NoError(t, err)
	pol := policy.NewNode().
		Set("Object", policy.Nested(policy.NewNode().Set("prototype", policy.InheritPermit))).
		Set("Function", policy.Nested(policy.NewNode().Set("prototype", policy.InheritPermit))).
		Set("Array", policy.Nested(policy.NewNode().Set("prototype", policy.InheritPermit)))
	w, err := tame.NewWalker(tame.WithUnlistedSeverity(entities.SeveritySafe))
	require.NoError(t, err)
	_, err = w.Tame(context.Background(), root, pol, ledger.New())
	require.NoError(t, err)
	_, hasError := graph.Lookup(root, "Error")
	require.False(t, hasError)

	f, err := realm.NewFactory(root)
	require.NoError(t, err)
	for _, kind := range natives.ErrorKinds {
		p, ok := f.Intrinsics().ErrorPrototypes[kind]
		require.True(t, ok, kind)
		assert.True(t, p.IsFrozen(), kind)
	}

	r := realm.NewRunner(f)
	v, err := r.Confine(context.Background(), "try { missing } catch (e) { e.name }", nil)
	require.NoError(t, err)
	assert.Equal(t, "ReferenceError", v)

	_, err = r.Confine(context.Background(), "missing", nil)
	testutil.RequireEvaluationError(t, err, domainerrors.EvalReference)
}

func TestConfine_Bindings(t *testing.T) {
	r, _ := newRunner(t)

	v, err := r.Confine(context.Background(), "x + y", map[string]any{"x": 3, "y": 4})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
}

func TestConfine_Errors(t *testing.T) {
	r, _ := newRunner(t)

	tests := []struct {
		name string
		src  string
		kind domainerrors.EvaluationKind
	}{
		{"unknown identifier", "undefinedName", domainerrors.EvalReference},
		{"syntax", "var = 1", domainerrors.EvalSyntax},
		{"frozen prototype write", "Array.prototype.push = 1", domainerrors.EvalType},
		{"prototype pollution", "Object.prototype.polluted = true", domainerrors.EvalType},
		{"shared binding reassignment", "Object = 1", domainerrors.EvalType},
		{"thrown value", "throw 'nope'", domainerrors.EvalThrown},
		{"thrown error keeps its kind", "try { missing } catch (e) { throw e }", domainerrors.EvalReference},
		{"plain error", "throw new Error('bad')", domainerrors.EvalThrown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Confine(context.Background(), tt.src, nil)
			evalErr := testutil.RequireEvaluationError(t, err, tt.kind)
			assert.NotEmpty(t, evalErr.Realm)
		})
	}
}

func TestConfine_UnsupportedBinding(t *testing.T) {
	r, _ := newRunner(t)

	_, err := r.Confine(context.Background(), "ch", map[string]any{"ch": make(chan int)})
	testutil.RequireEvaluationError(t, err, domainerrors.EvalBinding)

	_, err = r.Confine(context.Background(), "1", map[string]any{"Object": 1})
	testutil.RequireEvaluationError(t, err, domainerrors.EvalBinding)
}

func TestConfine_Canceled(t *testing.T) {
	r, _ := newRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Confine(ctx, "while (true) {}", nil)
	testutil.RequireEvaluationError(t, err, domainerrors.EvalCanceled)
}

func TestConfine_RealmsAreIsolated(t *testing.T) {
	r, _ := newRunner(t)
	ctx := context.Background()

	_, err := r.Confine(ctx, "var leaked = 1; globalThis.other = 2", nil)
	require.NoError(t, err)

	v, err := r.Confine(ctx, "typeof leaked + ',' + typeof other", nil)
	require.NoError(t, err)
	assert.Equal(t, "undefined,undefined", v)
}

func TestConfine_ConcurrentCounters(t *testing.T) {
	r, _ := newRunner(t)
	const workers = 16

	var wg sync.WaitGroup
	results := make([]graph.Value, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = r.Confine(context.Background(),
				"var counter = start; for (var i = 0; i < 100; i++) { counter++ } counter",
				map[string]any{"start": i})
		}()
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, float64(i+100), results[i])
	}
}

func TestRealm_EvaluationsShareGlobals(t *testing.T) {
	_, f := newRunner(t)
	rlm := f.CreateRealm()
	ctx := context.Background()

	require.NoError(t, rlm.Bind("base", 40))
	_, err := rlm.Evaluate(ctx, "var total = base + 1")
	require.NoError(t, err)
	v, err := rlm.Evaluate(ctx, "total + 1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	other := f.CreateRealm()
	assert.NotEqual(t, rlm.ID(), other.ID())
	assert.False(t, other.Global().HasOwn("total"))
}

func TestRealm_SharesFrozenPrimordials(t *testing.T) {
	_, f := newRunner(t)
	a, b := f.CreateRealm(), f.CreateRealm()

	va, err := a.Global().Get(context.Background(), "Array")
	require.NoError(t, err)
	vb, err := b.Global().Get(context.Background(), "Array")
	require.NoError(t, err)
	assert.Same(t, va, vb)
	testutil.AssertFrozenPath(t, a.Global(), "Array", "prototype")
}

func TestRealm_NativeBinding(t *testing.T) {
	_, f := newRunner(t)
	rlm := f.CreateRealm()

	var seen []graph.Value
	require.NoError(t, rlm.Bind("record", graph.NativeFunc(func(c graph.Call) (graph.Value, error) {
		seen = append(seen, c.Args...)
		return graph.Undefined, nil
	})))
	_, err := rlm.Evaluate(context.Background(), "record(1, 'two')")
	require.NoError(t, err)
	assert.Equal(t, []graph.Value{1.0, "two"}, seen)
}

func TestExport(t *testing.T) {
	r, _ := newRunner(t)

	v, err := r.Confine(context.Background(),
		"({ name: 'n', list: [1, 'a', true, null], nested: { ok: input.flag } })",
		map[string]any{"input": map[string]any{"flag": true}})
	require.NoError(t, err)

	out, err := realm.Export(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":   "n",
		"list":   []any{1.0, "a", true, nil},
		"nested": map[string]any{"ok": true},
	}, out)
}

func TestExport_Cycle(t *testing.T) {
	r, _ := newRunner(t)

	v, err := r.Confine(context.Background(), "var o = {}; o.self = o; o", nil)
	require.NoError(t, err)
	_, err = realm.Export(v)
	assert.Error(t, err)
}

func TestConfineModule(t *testing.T) {
	r, _ := newRunner(t)
	add := host.Func("add", 2, func(c graph.Call) (graph.Value, error) {
		a, _ := c.Arg(0).(float64)
		b, _ := c.Arg(1).(float64)
		return a + b, nil
	})

	v, err := r.ConfineModule(context.Background(), testutil.AddModule, map[string]host.Import{"add": add})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)
}

func TestConfineModule_Errors(t *testing.T) {
	r, _ := newRunner(t)

	tests := []struct {
		name    string
		wasm    []byte
		imports map[string]host.Import
		kind    domainerrors.EvaluationKind
	}{
		{"invalid bytes", []byte("not wasm"), nil, domainerrors.EvalSyntax},
		{"import not granted", testutil.AddModule, nil, domainerrors.EvalBinding},
		{"no entry point", testutil.EmptyModule, nil, domainerrors.EvalBinding},
		{"trap", testutil.TrapModule, nil, domainerrors.EvalThrown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ConfineModule(context.Background(), tt.wasm, tt.imports)
			testutil.RequireEvaluationError(t, err, tt.kind)
		})
	}
}
