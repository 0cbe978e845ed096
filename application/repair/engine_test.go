package repair_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/application/repair"
	"github.com/drses/frozen-realms-shim/domain/entities"
	domainErrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/ledger"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/graph"
)

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) OnRepair(patch, status string, severity entities.Severity) {
	m.Called(patch, status, severity)
}

// flagPatch builds a patch whose defect is the "broken" flag on root.
func flagPatch(name string) repair.Patch {
	return repair.Patch{
		Name:     name,
		Severity: entities.SeveritySafeSpecViolation,
		Detect: func(_ context.Context, root *graph.Object) (bool, error) {
			d, ok := root.GetOwn(name)
			return ok && d.Value == true, nil
		},
		Repair: func(_ context.Context, root *graph.Object) error {
			return root.Delete(name)
		},
	}
}

func brokenRoot(names ...string) *graph.Object {
	root := graph.New(nil)
	for _, n := range names {
		_ = root.DefineOwn(n, graph.DataDescriptor(true, true, true, true))
	}
	return root
}

func TestEngine_Statuses(t *testing.T) {
	failing := errors.New("probe exploded")

	stubborn := flagPatch("stubborn")
	stubborn.Repair = func(context.Context, *graph.Object) error { return nil }
	stubborn.UnrepairedSeverity = entities.SeverityNotIsolated

	refusing := flagPatch("refusing")
	refusing.Repair = func(context.Context, *graph.Object) error { return failing }

	detectOnly := flagPatch("detect-only")
	detectOnly.Repair = nil

	tests := []struct {
		name     string
		patch    repair.Patch
		broken   bool
		status   repair.Status
		severity entities.Severity
	}{
		{"absent", flagPatch("absent"), false, repair.StatusAbsent, entities.SeveritySafe},
		{"repaired", flagPatch("repaired"), true, repair.StatusRepaired, entities.SeveritySafeSpecViolation},
		{"still present after repair", stubborn, true, repair.StatusUnrepaired, entities.SeverityNotIsolated},
		{"repair error", refusing, true, repair.StatusRepairFailed, entities.SeverityNewSymptom},
		{"no repair", detectOnly, true, repair.StatusUnrepaired, entities.SeverityNewSymptom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := repair.NewCatalog(repair.WithPatch(tt.patch))
			require.NoError(t, err)

			root := graph.New(nil)
			if tt.broken {
				root = brokenRoot(tt.patch.Name)
			}
			led := ledger.New()
			results := repair.NewEngine(catalog).Run(context.Background(), root, led)

			require.Len(t, results, 1)
			assert.Equal(t, tt.status, results[0].Status)
			assert.Equal(t, tt.severity, results[0].Severity)
			assert.Equal(t, tt.severity, led.Worst())
			assert.Equal(t, 1, led.Count("repair:"+tt.status.String()))
		})
	}
}

func TestEngine_DetectorFailureAbandonsRegion(t *testing.T) {
	boom := flagPatch("boom")
	boom.Region = "Object"
	boom.Detect = func(context.Context, *graph.Object) (bool, error) {
		return false, errors.New("cannot inspect")
	}
	sibling := flagPatch("sibling")
	sibling.Region = "Object"
	other := flagPatch("other")
	other.Region = "Array"

	catalog, err := repair.NewCatalog(repair.WithPatches(boom, sibling, other))
	require.NoError(t, err)

	led := ledger.New()
	results := repair.NewEngine(catalog).Run(context.Background(), brokenRoot("sibling", "other"), led)
	require.Len(t, results, 3)

	assert.Equal(t, repair.StatusDetectorFailed, results[0].Status)
	var failure *domainErrors.RepairDetectionFailure
	require.ErrorAs(t, results[0].Err, &failure)
	assert.Equal(t, "boom", failure.Patch)

	assert.Equal(t, repair.StatusAbandoned, results[1].Status)
	assert.Equal(t, entities.SeverityNotSupported, results[1].Severity)
	assert.ErrorAs(t, results[1].Err, &failure)

	assert.Equal(t, repair.StatusRepaired, results[2].Status)
	assert.Equal(t, entities.SeverityNotSupported, led.Worst())
	assert.Equal(t, 1, led.Count("repair:abandoned"))
}

func TestEngine_DetectorPanic(t *testing.T) {
	p := flagPatch("panicky")
	p.Detect = func(context.Context, *graph.Object) (bool, error) {
		panic("nil map")
	}
	catalog, err := repair.NewCatalog(repair.WithPatch(p))
	require.NoError(t, err)

	led := ledger.New()
	results := repair.NewEngine(catalog).Run(context.Background(), graph.New(nil), led)

	assert.Equal(t, repair.StatusDetectorFailed, results[0].Status)
	assert.Contains(t, results[0].Err.Error(), "nil map")
	assert.Equal(t, entities.SeverityNotSupported, led.Worst())
}

func TestEngine_Disabled(t *testing.T) {
	globs, err := policy.NewGlobSet("freeze-*")
	require.NoError(t, err)

	catalog, err := repair.NewCatalog(repair.WithPatches(flagPatch("freeze-a"), flagPatch("freeze-b"), flagPatch("push")))
	require.NoError(t, err)

	root := brokenRoot("freeze-a", "push")
	led := ledger.New()
	results := repair.NewEngine(catalog, repair.WithDisabled(globs)).Run(context.Background(), root, led)

	assert.Equal(t, repair.StatusDisabled, results[0].Status)
	assert.Equal(t, entities.SeverityNewSymptom, results[0].Severity)
	assert.True(t, root.HasOwn("freeze-a"), "disabled repair must not run")

	assert.Equal(t, repair.StatusAbsent, results[1].Status)
	assert.Equal(t, repair.StatusRepaired, results[2].Status)
}

func TestEngine_Observer(t *testing.T) {
	obs := &mockObserver{}
	obs.On("OnRepair", "a", "repaired", entities.SeveritySafeSpecViolation).Once()
	obs.On("OnRepair", "b", "absent", entities.SeveritySafe).Once()

	catalog, err := repair.NewCatalog(repair.WithPatches(flagPatch("a"), flagPatch("b")))
	require.NoError(t, err)

	repair.NewEngine(catalog, repair.WithObserver(obs)).Run(context.Background(), brokenRoot("a"), ledger.New())
	obs.AssertExpectations(t)
}

func TestNewCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		opts  []repair.CatalogOption
		error string
	}{
		{"empty name", []repair.CatalogOption{repair.WithPatch(repair.Patch{Detect: flagPatch("x").Detect})}, "patch name cannot be empty"},
		{"duplicate", []repair.CatalogOption{repair.WithPatches(flagPatch("x"), flagPatch("x"))}, `duplicate patch name: "x"`},
		{"no detector", []repair.CatalogOption{repair.WithPatch(repair.Patch{Name: "x"})}, `patch "x" has no detector`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repair.NewCatalog(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.error)
		})
	}
}

func TestCatalog_OrderAndMiddleware(t *testing.T) {
	var calls []string
	trace := func(tag string) repair.DetectorMiddleware {
		return func(patch string, next repair.DetectFunc) repair.DetectFunc {
			return func(ctx context.Context, root *graph.Object) (bool, error) {
				calls = append(calls, tag+":"+patch)
				return next(ctx, root)
			}
		}
	}

	catalog, err := repair.NewCatalog(
		repair.WithPatches(flagPatch("z"), flagPatch("a")),
		repair.WithDetectorMiddleware(trace("outer"), trace("inner")),
		repair.WithDetectorMiddleware(repair.TimeoutMiddleware(time.Second)),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, catalog.Names())

	repair.NewEngine(catalog).Run(context.Background(), graph.New(nil), ledger.New())
	assert.Equal(t, []string{"outer:z", "inner:z", "outer:a", "inner:a"}, calls)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "detector-failed", repair.StatusDetectorFailed.String())
	assert.Equal(t, "status(42)", repair.Status(42).String())

	text, err := repair.StatusRepaired.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "repaired", string(text))
}
