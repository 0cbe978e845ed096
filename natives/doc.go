// Package natives provides pure Go implementations of the standard library
// functions a hardened baseline exposes: Object, Function, Array, String,
// Number, Boolean, Math, JSON, the error constructors and a few globals.
//
// Functions are registered by their dotted path ("Array.prototype.push") in
// an immutable Registry. Related functions come in bundles that close over a
// shared *graph.Intrinsics, so the values they create delegate to the same
// prototypes as the graph they are installed into.
package natives
