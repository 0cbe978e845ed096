package ports

import "github.com/drses/frozen-realms-shim/domain/entities"

// DispositionHandler is called for every property decision the taming
// walker makes. Implementations can log, collect metrics, or fail tests.
type DispositionHandler interface {
	OnDisposition(v entities.Violation)
}

// RepairObserver is called once per patch after the repair engine has
// graded it. status is the lower-case outcome, e.g. "repaired".
type RepairObserver interface {
	OnRepair(patch, status string, severity entities.Severity)
}
