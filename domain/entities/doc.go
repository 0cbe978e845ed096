// Package entities provides the core value types of the hardening domain:
// severities, property dispositions and the reports that aggregate them.
package entities
