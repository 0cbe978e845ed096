package entities

// Disposition is the outcome the taming walker assigned to one property.
type Disposition int

const (
	DispositionKept       Disposition = iota // Permitted and retained
	DispositionDeleted                       // Removed from its owner
	DispositionSkipped                       // Should have been removed but could not be
	DispositionFrozenOnly                    // Accessor retained, only frozen
	DispositionMissing                       // Listed by the policy, absent on the host
)

// String returns the report label of the disposition.
func (d Disposition) String() string {
	switch d {
	case DispositionKept:
		return "Kept"
	case DispositionDeleted:
		return "Deleted"
	case DispositionSkipped:
		return "Skipped"
	case DispositionFrozenOnly:
		return "Frozen only"
	case DispositionMissing:
		return "Missing"
	default:
		return "Unknown"
	}
}

// Key returns the ledger category suffix for the disposition.
func (d Disposition) Key() string {
	switch d {
	case DispositionKept:
		return "kept"
	case DispositionDeleted:
		return "deleted"
	case DispositionSkipped:
		return "skipped"
	case DispositionFrozenOnly:
		return "frozen-only"
	case DispositionMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Violation describes one property whose disposition carried a non-Safe
// severity, or whose handling is worth surfacing in the report.
type Violation struct {
	Path        string      `json:"path" yaml:"path"`
	Reason      string      `json:"reason" yaml:"reason"`
	Disposition Disposition `json:"disposition" yaml:"disposition"`
	Severity    Severity    `json:"severity" yaml:"severity"`
}

// MarshalText renders the disposition label in JSON and YAML output.
func (d Disposition) MarshalText() ([]byte, error) {
	return []byte(d.Key()), nil
}
