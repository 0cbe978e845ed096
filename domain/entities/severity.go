package entities

import (
	"fmt"
	"strings"
)

// Severity ranks how badly an observed deviation undermines isolation.
// The ordering is total; a larger value is always worse.
type Severity int

const (
	SeveritySafe                Severity = iota // Expected, no action needed
	SeveritySafeSpecViolation                   // Deviates from the standard, but harmless
	SeverityUnsafeSpecViolation                 // Deviates from the standard in an exploitable way
	SeverityNotOcapSafe                         // Leaks authority to confined code
	SeverityNotIsolated                         // Confined code can reach the host
	SeverityNewSymptom                          // Never seen before, assume the worst
	SeverityNotSupported                        // Cannot even be diagnosed
)

// AllSeverities lists every severity from best to worst.
var AllSeverities = []Severity{
	SeveritySafe,
	SeveritySafeSpecViolation,
	SeverityUnsafeSpecViolation,
	SeverityNotOcapSafe,
	SeverityNotIsolated,
	SeverityNewSymptom,
	SeverityNotSupported,
}

var severityNames = map[Severity]string{
	SeveritySafe:                "Safe",
	SeveritySafeSpecViolation:   "Safe spec violation",
	SeverityUnsafeSpecViolation: "Unsafe spec violation",
	SeverityNotOcapSafe:         "Not ocap safe",
	SeverityNotIsolated:         "Not isolated",
	SeverityNewSymptom:          "New symptom",
	SeverityNotSupported:        "Not supported",
}

// String returns the human-readable name of the severity.
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Key returns the kebab-case form used in configuration files.
func (s Severity) Key() string {
	return strings.ReplaceAll(strings.ToLower(s.String()), " ", "-")
}

// Valid reports whether s is one of the defined levels.
func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// Max returns the worse of two severities.
func (s Severity) Max(other Severity) Severity {
	if other > s {
		return other
	}
	return s
}

// ParseSeverity accepts either the display name ("Safe spec violation") or
// the kebab key ("safe-spec-violation"), case-insensitively.
func ParseSeverity(text string) (Severity, error) {
	norm := strings.ToLower(strings.TrimSpace(text))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	for _, s := range AllSeverities {
		if s.Key() == norm {
			return s, nil
		}
	}
	return SeveritySafe, fmt.Errorf("unknown severity %q", text)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
