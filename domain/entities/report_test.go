package entities_test

import (
	"testing"

	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/stretchr/testify/assert"
)

func TestDispositionReport_Add(t *testing.T) {
	r := entities.NewDispositionReport(2)

	r.Add(entities.Violation{Path: "Object.keys", Disposition: entities.DispositionKept})
	r.Add(entities.Violation{Path: "Math.random", Disposition: entities.DispositionDeleted, Severity: entities.SeverityNewSymptom})
	r.Add(entities.Violation{Path: "process.pid", Disposition: entities.DispositionSkipped, Severity: entities.SeveritySafeSpecViolation})
	r.Add(entities.Violation{Path: "Date.now", Disposition: entities.DispositionDeleted, Severity: entities.SeveritySafeSpecViolation})

	assert.Equal(t, 1, r.Count(entities.DispositionKept))
	assert.Equal(t, 2, r.Count(entities.DispositionDeleted))
	assert.Equal(t, 1, r.Count(entities.DispositionSkipped))
	assert.Equal(t, 0, r.Count(entities.DispositionFrozenOnly))
	assert.Equal(t, 4, r.Total())
	assert.Equal(t, entities.SeverityNewSymptom, r.Worst)

	assert.Len(t, r.Examples, 2)
	assert.Equal(t, "Math.random", r.Examples[0].Path)
	assert.Equal(t, 1, r.Omitted)
}

func TestDispositionReport_DefaultLimit(t *testing.T) {
	r := entities.NewDispositionReport(0)
	assert.Equal(t, entities.DefaultMaxExamples, r.MaxExamples)
}

func TestDispositionReport_Summary(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		r := entities.NewDispositionReport(5)
		assert.Equal(t, "Max Severity: Safe(0).", r.Summary())
		assert.Empty(t, r.CountsSummary())
	})

	t.Run("worst category first", func(t *testing.T) {
		r := entities.NewDispositionReport(5)
		for j := 0; j < 3; j++ {
			r.Add(entities.Violation{Disposition: entities.DispositionKept})
		}
		r.Add(entities.Violation{Disposition: entities.DispositionSkipped, Severity: entities.SeveritySafeSpecViolation})
		r.Add(entities.Violation{Disposition: entities.DispositionDeleted, Severity: entities.SeverityUnsafeSpecViolation})

		assert.Equal(t,
			"Max Severity: Unsafe spec violation(2). 1 Deleted / 1 Skipped / 3 Kept",
			r.Summary())
		assert.Equal(t, "1 Deleted / 1 Skipped / 3 Kept", r.CountsSummary())
	})
}

func TestDisposition_String(t *testing.T) {
	assert.Equal(t, "Frozen only", entities.DispositionFrozenOnly.String())
	assert.Equal(t, "frozen-only", entities.DispositionFrozenOnly.Key())
	assert.Equal(t, "missing", entities.DispositionMissing.Key())
	assert.Equal(t, "Unknown", entities.Disposition(17).String())
}
