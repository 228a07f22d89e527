package http

import (
	"net/http"
	"time"

	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// timestampLayout matches JavaScript's Date.toISOString
const timestampLayout = "2006-01-02T15:04:05.000Z"

type cronResponse struct {
	Success   bool   `json:"success"`
	Sent      *int   `json:"sent,omitempty"`
	Failed    *int   `json:"failed,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Timestamp string `json:"timestamp"`
	Error     string `json:"error,omitempty"`
}

func cronNotificationsHandler(notifier Notifier, clock func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logging.From(ctx).Info("notification run triggered", "method", r.Method)

		result, err := notifier.ProcessNotifications(ctx)
		timestamp := clock().UTC().Format(timestampLayout)

		if err != nil {
			errutil.Handle(ctx, err, "triggered notification run failed")
			writeJSON(w, r, http.StatusInternalServerError, cronResponse{
				Success:   false,
				Timestamp: timestamp,
				Error:     err.Error(),
			})
			return
		}

		writeJSON(w, r, http.StatusOK, cronResponse{
			Success:   result.Success,
			Sent:      &result.Sent,
			Failed:    &result.Failed,
			Skipped:   result.Skipped,
			Timestamp: timestamp,
		})
	}
}
