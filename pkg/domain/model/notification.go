package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type NotificationID string

// NewNotificationID returns a time-ordered identifier for a notification record
func NewNotificationID() NotificationID {
	return NotificationID(uuid.Must(uuid.NewV7()).String())
}

func (id NotificationID) String() string {
	return string(id)
}

// NotificationRecord is an append-only log entry of one delivery attempt for an
// (obligation, threshold) pair. Its existence, successful or not, blocks further
// attempts at the same threshold.
type NotificationRecord struct {
	ID                 NotificationID
	ObligationID       ObligationID
	UserID             UserID
	Type               types.NotificationType
	DaysBeforeDeadline types.Threshold
	SentAt             time.Time
	Success            bool
	ErrorMessage       string
}

// Validate rejects records that could never have come from a dispatch
func (r *NotificationRecord) Validate() error {
	if r.ObligationID == 0 {
		return goerr.Wrap(ErrInvalidRecord, "obligation id is required")
	}
	if !r.DaysBeforeDeadline.IsValid() {
		return goerr.Wrap(ErrInvalidRecord, "unknown notification threshold",
			goerr.V("threshold", int(r.DaysBeforeDeadline)))
	}
	return nil
}

// EligibleObligation is a due obligation that matched a threshold not yet attempted
type EligibleObligation struct {
	DueObligation
	DaysUntilDeadline     int
	NotificationThreshold types.Threshold
}

// Message is a rendered notification ready for a transport
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}
