package wazero

import (
	"context"
	"errors"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/internal/testutil"
)

func TestDefaultAdapterConfig(t *testing.T) {
	cfg := defaultAdapterConfig()

	if cfg.ModuleName != "env" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "env")
	}
	if cfg.Logger == nil {
		t.Error("Logger must default to slog.Default()")
	}
}

func TestWithModuleName(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithModuleName("custom_module")(&cfg)

	if cfg.ModuleName != "custom_module" {
		t.Errorf("ModuleName = %q, want %q", cfg.ModuleName, "custom_module")
	}
}

func TestWithLogger_IgnoresNil(t *testing.T) {
	cfg := defaultAdapterConfig()
	WithLogger(nil)(&cfg)

	if cfg.Logger == nil {
		t.Error("a nil logger must not replace the default")
	}
}

func TestRealmIDFromContext(t *testing.T) {
	ctx := WithRealmID(context.Background(), "realm-1")

	id, ok := RealmIDFromContext(ctx)
	if !ok || id != "realm-1" {
		t.Errorf("RealmIDFromContext = %q, %v", id, ok)
	}
	if got := RealmID(context.Background(), nil); got != "" {
		t.Errorf("RealmID without tag or module = %q, want empty", got)
	}
}

func TestRegisterImports_RejectsUncallable(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	err := RegisterImports(ctx, rt, map[string]Import{"x": {Fn: graph.New(nil)}})
	if err == nil {
		t.Fatal("expected an error for a non-callable import")
	}
}

// runGuest instantiates a guest module linked against the registered host
// module and calls its run export.
func runGuest(ctx context.Context, t *testing.T, rt wazero.Runtime, wasm []byte) (float64, error) {
	t.Helper()
	mod, err := rt.Instantiate(ctx, wasm)
	if err != nil {
		t.Fatalf("instantiate guest: %v", err)
	}
	defer mod.Close(ctx)

	run := mod.ExportedFunction("run")
	if run == nil {
		t.Fatal("guest does not export run")
	}
	res, err := run.Call(ctx)
	if err != nil {
		return 0, err
	}
	return api.DecodeF64(res[0]), nil
}

func TestRegisterImports_ExportsGrantedFunctions(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	var seen []graph.Value
	add := graph.NewFunction(nil, "add", 2, func(c graph.Call) (graph.Value, error) {
		seen = append(seen, c.Args...)
		a, _ := c.Arg(0).(float64)
		b, _ := c.Arg(1).(float64)
		return a + b, nil
	})
	if err := RegisterImports(ctx, rt, map[string]Import{"add": {Fn: add, Params: 2}}); err != nil {
		t.Fatalf("RegisterImports: %v", err)
	}
	if rt.Module(DefaultModuleName) == nil {
		t.Fatal("host module was not instantiated")
	}

	got, err := runGuest(ctx, t, rt, testutil.AddModule)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != 7 {
		t.Errorf("run() = %v, want 7", got)
	}
	if len(seen) != 2 || seen[0] != 3.0 || seen[1] != 4.0 {
		t.Errorf("add saw %v, want [3 4]", seen)
	}
}

func TestRegisterImports_CustomModuleName(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	add := graph.NewFunction(nil, "add", 2, func(graph.Call) (graph.Value, error) { return 0.0, nil })
	if err := RegisterImports(ctx, rt, map[string]Import{"add": {Fn: add, Params: 2}}, WithModuleName("other")); err != nil {
		t.Fatalf("RegisterImports: %v", err)
	}
	if rt.Module(DefaultModuleName) != nil {
		t.Fatal("env must not exist when another module name is configured")
	}
	if _, err := rt.Instantiate(ctx, testutil.AddModule); err == nil {
		t.Fatal("a guest importing env.add must not link")
	}
}

func TestRegisterImports_FailureIsReported(t *testing.T) {
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	boom := graph.NewFunction(nil, "boom", 0, func(graph.Call) (graph.Value, error) {
		return nil, graph.Throw(graph.KindError, "boom")
	})
	var reported string
	err := RegisterImports(ctx, rt, map[string]Import{"boom": {Fn: boom}},
		WithFailureHandler(func(name string, _ error) { reported = name }))
	if err != nil {
		t.Fatalf("RegisterImports: %v", err)
	}

	_, err = runGuest(ctx, t, rt, testutil.BoomModule)
	if err == nil {
		t.Fatal("expected the call to fail")
	}
	if reported != "boom" {
		t.Errorf("failure handler saw %q, want %q", reported, "boom")
	}
	var impErr *ImportError
	if !errors.As(err, &impErr) {
		t.Logf("runtime did not preserve the import error chain: %v", err)
	}
}
