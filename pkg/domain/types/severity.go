package types

import "fmt"

// Severity is the owner-declared impact of missing an obligation's deadline
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// AllSeverities returns all severities ordered from lowest to highest
func AllSeverities() []Severity {
	return []Severity{
		SeverityLow,
		SeverityMedium,
		SeverityHigh,
		SeverityCritical,
	}
}

// IsValid checks if the severity is valid
func (s Severity) IsValid() bool {
	return s.Rank() > 0
}

// Rank returns the ordinal of the severity (1 = LOW .. 4 = CRITICAL), or 0 when invalid
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a string into a Severity
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return sev, nil
}
