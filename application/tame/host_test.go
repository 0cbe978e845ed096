package tame_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/application/tame"
	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/drses/frozen-realms-shim/domain/ledger"
	"github.com/drses/frozen-realms-shim/graph"
	"github.com/drses/frozen-realms-shim/primordials"
)

func TestTame_StandardHostIsSafe(t *testing.T) {
	root, err := primordials.NewHost()
	require.NoError(t, err)
	pol, err := primordials.DefaultPolicy()
	require.NoError(t, err)

	led := ledger.New()
	report, err := newWalker(t).Tame(context.Background(), root, pol, led)
	require.NoError(t, err)

	assert.Equal(t, entities.SeveritySafe, report.Worst, report.Examples)
	assert.Zero(t, report.Count(entities.DispositionDeleted))
	assert.Positive(t, report.Count(entities.DispositionKept))
	assert.Positive(t, report.Count(entities.DispositionMissing), "the policy lists more than the host carries")
	assert.Empty(t, report.Mismatches)

	for _, path := range [][]string{
		{"Object", "prototype"},
		{"Array", "prototype"},
		{"Function", "prototype"},
		{"Math"},
		{"JSON"},
	} {
		o, ok := graph.Lookup(root, path...)
		require.True(t, ok, path)
		assert.True(t, o.IsFrozen(), path)
	}
}

func TestTame_HostExtensions(t *testing.T) {
	root, err := primordials.NewHost(primordials.WithExtensions())
	require.NoError(t, err)
	pol, err := primordials.DefaultPolicy()
	require.NoError(t, err)

	c := &collector{}
	w := newWalker(t, tame.WithDispositionHandler(c), tame.WithKnownExtensions("Object.prototype.__*"))
	report, err := w.Tame(context.Background(), root, pol, ledger.New())
	require.NoError(t, err)

	tests := []struct {
		path        string
		disposition entities.Disposition
		severity    entities.Severity
	}{
		{"process", entities.DispositionSkipped, entities.SeverityUnsafeSpecViolation},
		{"process.pid", entities.DispositionSkipped, entities.SeveritySafeSpecViolation},
		{"process.cwd", entities.DispositionDeleted, entities.SeverityNewSymptom},
		{"Math.random", entities.DispositionDeleted, entities.SeverityNewSymptom},
		{"Date.now", entities.DispositionDeleted, entities.SeverityNewSymptom},
		{"Date.prototype.getTime", entities.DispositionKept, entities.SeveritySafe},
		{"Object.prototype.__defineGetter__", entities.DispositionDeleted, entities.SeveritySafeSpecViolation},
		{"Object.prototype.__proto__", entities.DispositionDeleted, entities.SeveritySafeSpecViolation},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := c.find(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.disposition, v.Disposition)
			assert.Equal(t, tt.severity, v.Severity)
		})
	}

	assert.Equal(t, entities.SeverityNewSymptom, report.Worst)
	_, hasRandom := graph.Lookup(root, "Math", "random")
	assert.False(t, hasRandom)
	process, ok := graph.Lookup(root, "process")
	require.True(t, ok, "a non-configurable global survives, frozen")
	assert.True(t, process.IsFrozen())
}

func BenchmarkTame_StandardHost(b *testing.B) {
	pol, err := primordials.DefaultPolicy()
	require.NoError(b, err)
	w, err := tame.NewWalker()
	require.NoError(b, err)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		root, err := primordials.NewHost(primordials.WithExtensions())
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
		if _, err := w.Tame(context.Background(), root, pol, ledger.New()); err != nil {
			b.Fatal(err)
		}
	}
}
