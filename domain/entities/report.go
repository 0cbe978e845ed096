package entities

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxExamples bounds the violating paths kept in a report.
const DefaultMaxExamples = 10

// DispositionReport aggregates the outcome of one taming pass.
type DispositionReport struct {
	Counts       map[Disposition]int      `json:"counts"`
	WorstBy      map[Disposition]Severity `json:"worst_by"`
	PolicyDigest string                   `json:"policy_digest,omitempty"`
	Examples     []Violation              `json:"examples,omitempty"`
	Mismatches   []Violation              `json:"mismatches,omitempty"`
	Visited      int                      `json:"visited"`
	Omitted      int                      `json:"omitted,omitempty"`
	MaxExamples  int                      `json:"max_examples"`
	Worst        Severity                 `json:"worst"`
}

// NewDispositionReport returns an empty report keeping at most maxExamples
// violating paths. A non-positive limit selects DefaultMaxExamples.
func NewDispositionReport(maxExamples int) *DispositionReport {
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamples
	}
	return &DispositionReport{
		Counts:      make(map[Disposition]int),
		WorstBy:     make(map[Disposition]Severity),
		MaxExamples: maxExamples,
	}
}

// Add folds one property decision into the report. Decisions worse than
// Safe are retained as examples until the limit is reached.
func (r *DispositionReport) Add(v Violation) {
	r.Counts[v.Disposition]++
	r.WorstBy[v.Disposition] = r.WorstBy[v.Disposition].Max(v.Severity)
	r.Worst = r.Worst.Max(v.Severity)
	if v.Severity == SeveritySafe {
		return
	}
	if len(r.Examples) < r.MaxExamples {
		r.Examples = append(r.Examples, v)
		return
	}
	r.Omitted++
}

// AddMismatch records a policy record that did not fit the graph. Mismatches
// are not property decisions and are kept apart from Counts.
func (r *DispositionReport) AddMismatch(path, reason string, sev Severity) {
	r.Worst = r.Worst.Max(sev)
	r.Mismatches = append(r.Mismatches, Violation{Path: path, Reason: reason, Severity: sev})
}

// Count returns how many properties received disposition d.
func (r *DispositionReport) Count(d Disposition) int {
	return r.Counts[d]
}

// Total returns the number of property decisions in the report.
func (r *DispositionReport) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Summary renders a one-line report such as
// "Max Severity: Safe spec violation(1). 414 Kept / 24 Deleted / 1 Skipped".
// Dispositions are listed worst first.
func (r *DispositionReport) Summary() string {
	line := fmt.Sprintf("Max Severity: %s(%d).", r.Worst, int(r.Worst))
	if body := r.CountsSummary(); body != "" {
		line += " " + body
	}
	return line
}

// CountsSummary renders the non-zero disposition counts, worst category
// first, e.g. "1 Deleted / 1 Skipped / 3 Kept". It is empty when nothing
// was decided.
func (r *DispositionReport) CountsSummary() string {
	var present []Disposition
	for d, n := range r.Counts {
		if n > 0 {
			present = append(present, d)
		}
	}
	sort.Slice(present, func(i, j int) bool {
		a, b := present[i], present[j]
		if r.WorstBy[a] != r.WorstBy[b] {
			return r.WorstBy[a] > r.WorstBy[b]
		}
		return a < b
	})

	parts := make([]string, 0, len(present))
	for _, d := range present {
		parts = append(parts, fmt.Sprintf("%d %s", r.Counts[d], d))
	}
	return strings.Join(parts, " / ")
}
