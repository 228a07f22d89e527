package model

import (
	"time"

	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type ObligationID int64

// Obligation is a deadline-bound task tracked by its owner
type Obligation struct {
	ID                 ObligationID
	OwnerID            UserID
	TeamID             TeamID // Optional: team the owner belonged to at creation
	Title              string
	Category           types.Category
	DeadlineAt         time.Time
	Consequence        string
	Severity           types.Severity
	Status             types.ObligationStatus
	LastNotificationAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsOwnedBy reports whether the obligation belongs to userID
func (o *Obligation) IsOwnedBy(userID UserID) bool {
	return o.OwnerID == userID
}

// IsActive reports whether the obligation still takes part in notifications
func (o *Obligation) IsActive() bool {
	return o.Status == types.ObligationStatusActive
}

// DisplayStatus returns OVERDUE for an active obligation whose deadline is before now
func (o *Obligation) DisplayStatus(now time.Time) types.DisplayStatus {
	if o.Status == types.ObligationStatusHandled {
		return types.DisplayStatusHandled
	}
	if o.DeadlineAt.Before(now) {
		return types.DisplayStatusOverdue
	}
	return types.DisplayStatusActive
}

// Apply copies validated input fields onto the obligation
func (o *Obligation) Apply(in *ObligationInput) {
	o.Title = in.Title
	o.Category = in.Category
	o.DeadlineAt = in.DeadlineAt.UTC()
	o.Consequence = in.Consequence
	o.Severity = in.Severity
}

// DueObligation is an active obligation joined with the owner fields needed to reach them
type DueObligation struct {
	Obligation
	OwnerEmail string
	OwnerName  string
}
