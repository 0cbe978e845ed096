package entities

import "fmt"

// ErrorDetail is the structured, serializable form of a failure.
// Types: "repair", "policy", "lifecycle", "evaluation", "config", "internal".
type ErrorDetail struct {
	// Wrapped carries the cause, if it is itself structured.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Details holds additional context, e.g. the offending path.
	Details map[string]any `json:"details,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable code such as the patch name or error kind.
	Code string `json:"code,omitempty"`

	// Severity is set when the failure was graded on the severity ladder.
	Severity string `json:"severity,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != "internal" {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches details and returns the receiver.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithCode attaches a code and returns the receiver.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// WithSeverity attaches a severity and returns the receiver.
func (e *ErrorDetail) WithSeverity(s Severity) *ErrorDetail {
	e.Severity = s.String()
	return e
}
