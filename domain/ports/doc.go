// Package ports defines the interfaces the hardening domain depends on.
// Adapters for document formats, schema validation and observers implement
// them outside the domain.
package ports
