package usecase

import (
	"errors"
	"fmt"
)

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrObligationNotFound = errors.New("obligation not found")
	ErrUserNotFound       = errors.New("user not found")

	// Paywall
	ErrLimitReached = errors.New("free tier limit reached")

	// Authentication errors
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid session token")

	// Notification run errors
	ErrNoTransport = errors.New("notification transport is not configured")
)

// Context keys for error values
const (
	ObligationIDKey = "obligation_id"
	UserIDKey       = "user_id"
	ThresholdKey    = "threshold"
	LimitKey        = "limit"
)

// LimitReachedCode is the machine readable code clients receive with ErrLimitReached
const LimitReachedCode = "LIMIT_REACHED"

// LimitReachedMessage is the client facing explanation of ErrLimitReached
func LimitReachedMessage(limit int) string {
	return fmt.Sprintf("Free tier limited to %d active obligations. Upgrade to add unlimited obligations.", limit)
}
