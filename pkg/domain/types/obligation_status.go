package types

import "fmt"

// ObligationStatus represents the lifecycle state of an obligation
type ObligationStatus string

const (
	ObligationStatusActive  ObligationStatus = "ACTIVE"
	ObligationStatusHandled ObligationStatus = "HANDLED"
)

// IsValid checks if the obligation status is valid
func (s ObligationStatus) IsValid() bool {
	switch s {
	case ObligationStatusActive, ObligationStatusHandled:
		return true
	default:
		return false
	}
}

func (s ObligationStatus) String() string {
	return string(s)
}

// ParseObligationStatus parses a string into an ObligationStatus
func ParseObligationStatus(s string) (ObligationStatus, error) {
	status := ObligationStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid obligation status: %s", s)
	}
	return status, nil
}

// DisplayStatus is what an owner sees for an obligation. It adds OVERDUE on top of
// ObligationStatus for ACTIVE obligations whose deadline has passed.
type DisplayStatus string

const (
	DisplayStatusActive  DisplayStatus = "ACTIVE"
	DisplayStatusOverdue DisplayStatus = "OVERDUE"
	DisplayStatusHandled DisplayStatus = "HANDLED"
)
