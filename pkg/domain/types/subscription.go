package types

// SubscriptionStatus mirrors the billing provider's subscription state for a team
type SubscriptionStatus string

const (
	SubscriptionStatusNone     SubscriptionStatus = ""
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid   SubscriptionStatus = "unpaid"
)

// IsPaid reports whether the status grants unlimited obligations
func (s SubscriptionStatus) IsPaid() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}
