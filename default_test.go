package ses_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ses "github.com/drses/frozen-realms-shim"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/host"
	"github.com/drses/frozen-realms-shim/internal/testutil"
)

// The process-wide baseline can only be initialized once, so its whole
// lifecycle is exercised in a single test.
func TestDefaultBaseline(t *testing.T) {
	ctx := context.Background()
	require.Nil(t, ses.Default())

	_, err := ses.Confine(ctx, "1", nil)
	assert.ErrorIs(t, err, domainerrors.ErrNotReady)
	_, err = ses.ConfineModule(ctx, testutil.EmptyModule, nil)
	assert.ErrorIs(t, err, domainerrors.ErrNotReady)

	report, err := ses.Init(ctx)
	require.NoError(t, err)
	assert.True(t, report.Accepted)
	assert.Equal(t, ses.StateReady, ses.Default().State())

	v, err := ses.Confine(ctx, "x + y", map[string]any{"x": 3, "y": 4})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = ses.ConfineModule(ctx, testutil.AddModule, map[string]host.Import{})
	testutil.RequireEvaluationError(t, err, domainerrors.EvalBinding)

	_, err = ses.Init(ctx)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyInitialized)
}
