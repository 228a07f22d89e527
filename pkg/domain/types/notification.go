package types

// NotificationType is the channel a notification was attempted through
type NotificationType string

const (
	NotificationTypeEmail NotificationType = "EMAIL"
	NotificationTypeSlack NotificationType = "SLACK"
)

func (t NotificationType) String() string {
	return string(t)
}

// Threshold is a fixed number of days before a deadline at which one notification fires
type Threshold int

const (
	ThresholdNone       Threshold = 0
	ThresholdThirtyDays Threshold = 30
	ThresholdSevenDays  Threshold = 7
	ThresholdOneDay     Threshold = 1
)

// AllThresholds returns the notification thresholds from farthest to nearest
func AllThresholds() []Threshold {
	return []Threshold{ThresholdThirtyDays, ThresholdSevenDays, ThresholdOneDay}
}

// IsValid reports whether t is one of 30, 7 or 1
func (t Threshold) IsValid() bool {
	switch t {
	case ThresholdThirtyDays, ThresholdSevenDays, ThresholdOneDay:
		return true
	default:
		return false
	}
}

// Days returns the threshold as a plain day count
func (t Threshold) Days() int {
	return int(t)
}

// Urgency is the display level of a reminder. It is derived from the remaining days
// and has no effect on threshold selection.
type Urgency string

const (
	UrgencyCritical  Urgency = "CRITICAL"
	UrgencyUrgent    Urgency = "URGENT"
	UrgencyImportant Urgency = "IMPORTANT"
)

// UrgencyFor maps remaining days to an urgency level
func UrgencyFor(daysUntil int) Urgency {
	switch {
	case daysUntil <= 1:
		return UrgencyCritical
	case daysUntil <= 7:
		return UrgencyUrgent
	default:
		return UrgencyImportant
	}
}

// Color returns the banner colour used in reminder emails
func (u Urgency) Color() string {
	switch u {
	case UrgencyCritical:
		return "#DC2626"
	case UrgencyUrgent:
		return "#F97316"
	default:
		return "#F59E0B"
	}
}

func (u Urgency) String() string {
	return string(u)
}
