// Package graph models the live object graph of a dynamic, prototype-based
// runtime as an explicit Go data structure.
//
// Every runtime object is a *Object holding an ordered own-property table and
// a single delegation ("prototype") edge. Property lookups that miss on an
// object continue along the delegation chain; writes never do. Delegation
// edges are ownership-free: an object does not own its prototype, and the
// same prototype may be shared by any number of delegators.
//
// The package deliberately does not lean on Go embedding or interfaces for
// inheritance; all delegation is data, so other packages can traverse,
// inspect, tame and freeze the graph.
//
// Values flowing through the graph are one of:
//
//   - Undefined and Null
//   - bool
//   - float64
//   - string
//   - *Object
//
// Objects are safe for concurrent use. Frozen objects are never written again,
// which is what allows realms to share tamed primordials without locking
// beyond the per-object read lock.
package graph
