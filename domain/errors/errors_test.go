package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairDetectionFailure(t *testing.T) {
	baseErr := fmt.Errorf("probe exploded")
	err := &RepairDetectionFailure{Patch: "freeze-does-not-freeze", Region: "Object", Err: baseErr}

	assert.Equal(t, "detector for freeze-does-not-freeze (Object) failed: probe exploded", err.Error())
	assert.True(t, errors.Is(err, baseErr))

	detail := err.ToErrorDetail()
	assert.Equal(t, "repair", detail.Type)
	assert.Equal(t, "freeze-does-not-freeze", detail.Code)
	assert.Equal(t, "Not supported", detail.Severity)
}

func TestRepairDetectionFailure_NoRegion(t *testing.T) {
	err := &RepairDetectionFailure{Patch: "p", Err: fmt.Errorf("boom")}
	assert.Equal(t, "detector for p failed: boom", err.Error())
}

func TestPolicyMismatch(t *testing.T) {
	err := &PolicyMismatch{Path: "Math.PI", Reason: "nested record describes a primitive", Severity: entities.SeveritySafeSpecViolation}

	assert.Equal(t, "policy mismatch at Math.PI: nested record describes a primitive", err.Error())
	detail := ToErrorDetail(err)
	assert.Equal(t, "policy", detail.Type)
	assert.Equal(t, "Math.PI", detail.Details["path"])
	assert.Equal(t, "Safe spec violation", detail.Severity)
}

func TestInitializationAborted(t *testing.T) {
	err := &InitializationAborted{
		Worst:     entities.SeverityNewSymptom,
		Threshold: entities.SeveritySafe,
		Summary:   "Max Severity: New symptom(5).",
	}

	assert.Contains(t, err.Error(), `worst severity "New symptom" exceeds threshold "Safe"`)
	assert.Contains(t, err.Error(), "Max Severity: New symptom(5).")

	var wrapped error = fmt.Errorf("init: %w", err)
	var aborted *InitializationAborted
	require.True(t, errors.As(wrapped, &aborted))
	assert.Equal(t, entities.SeverityNewSymptom, aborted.Worst)
	assert.Equal(t, "lifecycle", ToErrorDetail(wrapped).Type)
}

func TestEvaluationError(t *testing.T) {
	cause := fmt.Errorf("ReferenceError: z is not defined")
	err := &EvaluationError{Kind: EvalReference, Err: cause, Realm: "r-1"}

	assert.Equal(t, "evaluation failed (reference): ReferenceError: z is not defined", err.Error())
	assert.True(t, errors.Is(err, cause))

	detail := err.ToErrorDetail()
	assert.Equal(t, "evaluation", detail.Type)
	assert.Equal(t, "reference", detail.Code)
	assert.Equal(t, "r-1", detail.Details["realm"])

	withMessage := &EvaluationError{Kind: EvalSyntax, Message: "unexpected token ) at 1:3"}
	assert.Equal(t, "evaluation failed (syntax): unexpected token ) at 1:3", withMessage.Error())
}

func TestPolicyError(t *testing.T) {
	err := &PolicyError{Path: "Array.prototype", Err: fmt.Errorf("unsupported entry 42")}
	assert.Equal(t, "invalid policy at Array.prototype: unsupported entry 42", err.Error())

	noPath := &PolicyError{Err: fmt.Errorf("empty document")}
	assert.Equal(t, "invalid policy: empty document", noPath.Error())
}

func TestConfigError(t *testing.T) {
	baseErr := fmt.Errorf("must be a severity")
	err := &ConfigError{Field: "max_severity", Err: baseErr}

	assert.Equal(t, "config validation failed for field 'max_severity': must be a severity", err.Error())
	assert.True(t, errors.Is(err, baseErr))
	assert.Equal(t, "config", err.ToErrorDetail().Type)
}

func TestSchemaError(t *testing.T) {
	err := &SchemaError{Type: "Config", Err: fmt.Errorf("reflection failed")}
	assert.Equal(t, "schema error for type Config: reflection failed", err.Error())
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	generic := ToErrorDetail(fmt.Errorf("boom"))
	assert.Equal(t, "internal", generic.Type)
	assert.Equal(t, "boom", generic.Message)

	lifecycle := ToErrorDetail(fmt.Errorf("confine: %w", ErrNotReady))
	assert.Equal(t, "lifecycle", lifecycle.Type)

	existing := &ErrorDetail{Type: "config", Message: "x"}
	assert.Same(t, existing, ToErrorDetail(existing))
}
