// Package testutil provides common test utilities and assertions for
// hardening and confinement tests.
package testutil

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/graph"
)

// AssertJSONEqual compares two JSON strings for equality, ignoring formatting
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}

// RequireEvaluationError asserts err is an EvaluationError of the given
// kind and returns it.
func RequireEvaluationError(t *testing.T, err error, kind domainerrors.EvaluationKind) *domainerrors.EvaluationError {
	t.Helper()

	var evalErr *domainerrors.EvaluationError
	require.True(t, errors.As(err, &evalErr), "expected an EvaluationError, got %v", err)
	assert.Equal(t, kind, evalErr.Kind, evalErr.Error())
	return evalErr
}

// RequireObject asserts v is a runtime object and returns it.
func RequireObject(t *testing.T, v graph.Value, msgAndArgs ...interface{}) *graph.Object {
	t.Helper()

	o, ok := v.(*graph.Object)
	require.True(t, ok, msgAndArgs...)
	return o
}

// AssertFrozenPath asserts that the object at path under root exists and
// is frozen.
func AssertFrozenPath(t *testing.T, root *graph.Object, path ...string) {
	t.Helper()

	o, ok := graph.Lookup(root, path...)
	if assert.True(t, ok, "missing %v", path) {
		assert.True(t, o.IsFrozen(), "%v is not frozen", path)
	}
}
