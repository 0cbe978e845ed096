// Package host runs WebAssembly modules in confinement.
//
// It owns the wazero runtime lifecycle: each run compiles the module in a
// fresh runtime without WASI, links it only against explicitly granted
// imports, calls its entry point and tears everything down again.
package host
