// Package errors provides the typed failures of the hardening domain.
// All error types support unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/drses/frozen-realms-shim/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// Lifecycle sentinels.
var (
	// ErrNotReady is returned when confinement is requested before
	// initialization has completed.
	ErrNotReady = stdErrors.New("baseline is not initialized")
	// ErrAlreadyInitialized is returned by a second initialization attempt.
	ErrAlreadyInitialized = stdErrors.New("baseline initialization already attempted")
	// ErrAlreadyHardened is returned when the host graph is already frozen,
	// i.e. another initialization got there first.
	ErrAlreadyHardened = stdErrors.New("host graph is already hardened")
)

// ToErrorDetail converts a Go error to the structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	switch {
	case stdErrors.Is(err, ErrNotReady), stdErrors.Is(err, ErrAlreadyInitialized), stdErrors.Is(err, ErrAlreadyHardened):
		return &entities.ErrorDetail{Message: err.Error(), Type: "lifecycle"}
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// RepairDetectionFailure reports that a detector could not determine
// whether its defect is present. It is always graded at the highest severity.
type RepairDetectionFailure struct {
	Err    error
	Patch  string
	Region string
}

func (e *RepairDetectionFailure) Error() string {
	if e.Region != "" {
		return fmt.Sprintf("detector for %s (%s) failed: %v", e.Patch, e.Region, e.Err)
	}
	return fmt.Sprintf("detector for %s failed: %v", e.Patch, e.Err)
}

func (e *RepairDetectionFailure) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *RepairDetectionFailure) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: "repair", Code: e.Patch}
	return d.WithSeverity(entities.SeverityNotSupported)
}

// PolicyMismatch reports a policy record that does not fit the host graph:
// a nested record describing a primitive or accessor, or one object claimed
// by two records.
type PolicyMismatch struct {
	Path     string
	Reason   string
	Severity entities.Severity
}

func (e *PolicyMismatch) Error() string {
	return fmt.Sprintf("policy mismatch at %s: %s", e.Path, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *PolicyMismatch) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "policy",
		Code:    "mismatch",
		Details: map[string]any{"path": e.Path},
	}
	return d.WithSeverity(e.Severity)
}

// InitializationAborted reports that the worst recorded severity exceeded
// the acceptance threshold. Confinement stays unavailable afterwards.
type InitializationAborted struct {
	Summary   string
	Worst     entities.Severity
	Threshold entities.Severity
}

func (e *InitializationAborted) Error() string {
	msg := fmt.Sprintf("initialization aborted: worst severity %q exceeds threshold %q", e.Worst, e.Threshold)
	if e.Summary != "" {
		msg += " (" + e.Summary + ")"
	}
	return msg
}

// ToErrorDetail implements DetailedError.
func (e *InitializationAborted) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{
		Message: e.Error(),
		Type:    "lifecycle",
		Code:    "aborted",
		Details: map[string]any{"threshold": e.Threshold.String()},
	}
	return d.WithSeverity(e.Worst)
}

// EvaluationKind classifies why a confined evaluation failed.
type EvaluationKind string

const (
	EvalSyntax    EvaluationKind = "syntax"
	EvalReference EvaluationKind = "reference"
	EvalType      EvaluationKind = "type"
	EvalThrown    EvaluationKind = "thrown"
	EvalBinding   EvaluationKind = "binding"
	EvalCanceled  EvaluationKind = "canceled"
	EvalInternal  EvaluationKind = "internal"
)

// EvaluationError is the only error confinement ever returns.
type EvaluationError struct {
	Err     error
	Kind    EvaluationKind
	Message string
	Realm   string
}

func (e *EvaluationError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("evaluation failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("evaluation failed (%s): %s", e.Kind, e.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *EvaluationError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: "evaluation", Code: string(e.Kind)}
	if e.Realm != "" {
		d.Details = map[string]any{"realm": e.Realm}
	}
	return d
}

// PolicyError reports a malformed policy document.
type PolicyError struct {
	Err  error
	Path string
}

func (e *PolicyError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid policy at %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("invalid policy: %v", e.Err)
}

func (e *PolicyError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *PolicyError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "policy", Code: "invalid"}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}

// SchemaError represents a schema generation or validation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: "schema"}
}
