package model

import (
	"time"

	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// NotificationHorizon bounds the pre-filter of the eligibility scan
const NotificationHorizon = 31 * 24 * time.Hour

// DaysUntil returns ceil((deadline - now) / 1 day) over elapsed milliseconds.
// A partial day counts as a full day, so 1ms before a deadline is 1 day and
// half a day past it is 0.
func DaysUntil(now, deadline time.Time) int {
	ms := deadline.Sub(now).Milliseconds()
	days := ms / dayMillis
	if ms%dayMillis > 0 {
		days++
	}
	return int(days)
}

// ThresholdFor maps a day count to the notification band it falls into. Each band
// spans one day either side of its threshold: [29,31] -> 30, [6,8] -> 7, [0,2] -> 1,
// anything else -> none.
func ThresholdFor(daysUntil int) types.Threshold {
	for _, th := range types.AllThresholds() {
		if daysUntil >= th.Days()-1 && daysUntil <= th.Days()+1 {
			return th
		}
	}
	return types.ThresholdNone
}

// ClassifyThreshold computes the remaining days and the matching threshold.
// The threshold is ThresholdNone when no band matches.
func ClassifyThreshold(now, deadline time.Time) (int, types.Threshold) {
	days := DaysUntil(now, deadline)
	return days, ThresholdFor(days)
}
