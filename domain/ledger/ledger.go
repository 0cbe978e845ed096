// Package ledger provides the Severity Ledger: a running, per-category tally
// of every graded decision made while hardening a baseline.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/drses/frozen-realms-shim/domain/entities"
)

// Ledger accumulates severities. The zero value is ready to use.
// Once sealed it rejects further records.
type Ledger struct {
	mu         sync.RWMutex
	counts     map[string]int
	byCategory map[string]entities.Severity
	bySeverity map[entities.Severity]int
	worst      entities.Severity
	sealed     bool
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Record adds one observation. Recording into a sealed ledger is a
// programming error and panics.
func (l *Ledger) Record(category string, sev entities.Severity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sealed {
		panic(fmt.Sprintf("ledger: record %q after seal", category))
	}
	if l.counts == nil {
		l.counts = make(map[string]int)
		l.byCategory = make(map[string]entities.Severity)
		l.bySeverity = make(map[entities.Severity]int)
	}
	l.counts[category]++
	l.byCategory[category] = l.byCategory[category].Max(sev)
	l.bySeverity[sev]++
	l.worst = l.worst.Max(sev)
}

// Worst returns the maximum severity recorded so far, Safe when empty.
func (l *Ledger) Worst() entities.Severity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.worst
}

// Accept reports whether the worst recorded severity is within threshold.
func (l *Ledger) Accept(threshold entities.Severity) bool {
	return l.Worst() <= threshold
}

// Count returns the number of records in category.
func (l *Ledger) Count(category string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[category]
}

// CountAt returns the number of records graded exactly sev.
func (l *Ledger) CountAt(sev entities.Severity) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bySeverity[sev]
}

// WorstIn returns the worst severity recorded in category.
func (l *Ledger) WorstIn(category string) entities.Severity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byCategory[category]
}

// Categories returns the recorded categories in sorted order.
func (l *Ledger) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.counts))
	for c := range l.counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the per-category counts.
func (l *Ledger) Snapshot() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int, len(l.counts))
	for c, n := range l.counts {
		out[c] = n
	}
	return out
}

// Seal makes the ledger immutable. Sealing twice is harmless.
func (l *Ledger) Seal() {
	l.mu.Lock()
	l.sealed = true
	l.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (l *Ledger) Sealed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sealed
}
