// Package wazero bridges runtime-graph functions and the wazero WebAssembly
// runtime.
//
// Confined modules get no WASI and no ambient host module. The only host
// functions they can link against are the ones passed to RegisterImports,
// exported from a single host module (default "env"):
//
//	runtime := wazero.NewRuntime(ctx)
//	err := wazero.RegisterImports(ctx, runtime, map[string]wazero.Import{
//	    "add": {Fn: addFn, Params: 2},
//	})
//
// All import parameters and results are f64, the representation runtime
// numbers already use.
package wazero
