// Package repair runs the Repair Engine: an ordered catalog of detector and
// repair pairs applied to a host graph before it is tamed.
package repair

import (
	"context"
	"fmt"

	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/drses/frozen-realms-shim/graph"
)

// DetectFunc reports whether a defect is present under root.
type DetectFunc func(ctx context.Context, root *graph.Object) (bool, error)

// RepairFunc fixes a defect in place.
type RepairFunc func(ctx context.Context, root *graph.Object) error

// Patch pairs a detector with the repair that cures it.
type Patch struct {
	Detect      DetectFunc
	Repair      RepairFunc
	Name        string
	Description string

	// Region groups patches that inspect the same part of the graph. When a
	// detector fails the rest of its region is abandoned.
	Region string

	// Severity is recorded when the repair is applied and verified.
	Severity entities.Severity

	// UnrepairedSeverity is recorded when the defect remains. Safe means
	// unset and is treated as NewSymptom.
	UnrepairedSeverity entities.Severity
}

func (p Patch) unrepaired() entities.Severity {
	if p.UnrepairedSeverity == entities.SeveritySafe {
		return entities.SeverityNewSymptom
	}
	return p.UnrepairedSeverity
}

// Status is the outcome of one patch.
type Status int

const (
	StatusAbsent Status = iota
	StatusRepaired
	StatusRepairFailed
	StatusUnrepaired
	StatusDetectorFailed
	StatusAbandoned
	StatusDisabled
)

var statusNames = [...]string{
	StatusAbsent:         "absent",
	StatusRepaired:       "repaired",
	StatusRepairFailed:   "repair-failed",
	StatusUnrepaired:     "unrepaired",
	StatusDetectorFailed: "detector-failed",
	StatusAbandoned:      "abandoned",
	StatusDisabled:       "disabled",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText renders the status for reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result records how one patch was graded.
type Result struct {
	Err      error             `json:"error,omitempty"`
	Patch    string            `json:"patch"`
	Region   string            `json:"region,omitempty"`
	Status   Status            `json:"status"`
	Severity entities.Severity `json:"severity"`
}

// Category returns the ledger category the result is recorded under.
func (r Result) Category() string {
	return "repair:" + r.Status.String()
}
