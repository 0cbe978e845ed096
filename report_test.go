package ses_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	ses "github.com/drses/frozen-realms-shim"
	"github.com/drses/frozen-realms-shim/application/repair"
	"github.com/drses/frozen-realms-shim/domain/entities"
)

func TestReport_Summary(t *testing.T) {
	taming := entities.NewDispositionReport(5)
	taming.Add(entities.Violation{Path: "a", Disposition: entities.DispositionKept})
	taming.Add(entities.Violation{Path: "b", Disposition: entities.DispositionDeleted, Severity: entities.SeveritySafeSpecViolation})

	tests := []struct {
		name   string
		report ses.Report
		want   string
	}{
		{
			name:   "nothing decided",
			report: ses.Report{},
			want:   "Max Severity: Safe(0).",
		},
		{
			name:   "empty taming",
			report: ses.Report{Taming: entities.NewDispositionReport(5)},
			want:   "Max Severity: Safe(0).",
		},
		{
			name: "both stages",
			report: ses.Report{
				Worst:   entities.SeveritySafeSpecViolation,
				Repairs: []repair.Result{{Patch: "p1", Status: repair.StatusAbsent}, {Patch: "p2", Status: repair.StatusAbsent}},
				Taming:  taming,
			},
			want: "Max Severity: Safe spec violation(1). Repairs: 2 absent. Taming: 1 Deleted / 1 Kept.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.Summary())
		})
	}
}
