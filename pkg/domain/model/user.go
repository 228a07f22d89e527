package model

import "github.com/deadline-guardian/guardian/pkg/domain/types"

type UserID string

func (id UserID) String() string {
	return string(id)
}

type TeamID string

// User is an obligation owner
type User struct {
	ID     UserID
	Email  string
	Name   string
	TeamID TeamID
}

// Team carries the billing state used by the free-tier paywall
type Team struct {
	ID                 TeamID
	Name               string
	SubscriptionID     string
	SubscriptionStatus types.SubscriptionStatus
}

// HasSubscription reports whether the team is on a paid or trialing plan
func (t *Team) HasSubscription() bool {
	if t == nil {
		return false
	}
	return t.SubscriptionID != "" && t.SubscriptionStatus.IsPaid()
}
