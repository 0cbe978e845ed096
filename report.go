package ses

import (
	"fmt"
	"strings"

	"github.com/drses/frozen-realms-shim/application/repair"
	"github.com/drses/frozen-realms-shim/domain/entities"
)

// Report is the outcome of one initialization.
type Report struct {
	Taming    *entities.DispositionReport `json:"taming"`
	Ledger    map[string]int              `json:"ledger"`
	Repairs   []repair.Result             `json:"repairs"`
	Worst     entities.Severity           `json:"worst"`
	Threshold entities.Severity           `json:"threshold"`
	Accepted  bool                        `json:"accepted"`
}

// Summary renders the report on one line, worst severity first, e.g.
// "Max Severity: Safe(0). Repairs: 6 absent. Taming: 412 Kept / 30 Missing."
func (r *Report) Summary() string {
	line := fmt.Sprintf("Max Severity: %s(%d).", r.Worst, int(r.Worst))

	counts := make(map[repair.Status]int)
	for _, res := range r.Repairs {
		counts[res.Status]++
	}
	var parts []string
	for s := repair.StatusAbsent; s <= repair.StatusDisabled; s++ {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	if len(parts) > 0 {
		line += " Repairs: " + strings.Join(parts, ", ") + "."
	}

	if r.Taming != nil {
		if tamed := r.Taming.CountsSummary(); tamed != "" {
			line += " Taming: " + tamed + "."
		}
	}
	return line
}
