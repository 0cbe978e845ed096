// Package primordials builds an emulated host global object and bundles the
// data that hardens it: the default policy document and the default repair
// catalog.
//
// A host from NewHost is mutable until it is tamed. WithExtensions adds the
// kind of non-standard properties real hosts carry, and WithDefects swaps in
// broken natives that DefaultRepairs knows how to detect and replace.
package primordials
