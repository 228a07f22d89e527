package worker

import (
	"context"
	"time"

	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// DefaultNotificationInterval is how often reminders are scanned and sent
const DefaultNotificationInterval = 6 * time.Hour

// Processor runs one notification pass
type Processor interface {
	ProcessNotifications(ctx context.Context) (*usecase.DispatchResult, error)
}

// NotificationWorker triggers notification runs on a fixed interval inside the
// server process. Overlap with external triggers is bounded by the history pre-check
// and, when configured, the run lock.
type NotificationWorker struct {
	processor Processor
	interval  time.Duration
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func NewNotificationWorker(processor Processor, interval time.Duration) *NotificationWorker {
	if interval <= 0 {
		interval = DefaultNotificationInterval
	}
	return &NotificationWorker{
		processor: processor,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the first pass immediately in the background, then one per interval
func (w *NotificationWorker) Start(ctx context.Context) error {
	logging.Default().Info("Notification worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for the current pass to finish
func (w *NotificationWorker) Stop() {
	logging.Default().Info("Notification worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Notification worker stopped")
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.process(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.process(ctx)

		case <-w.stopCh:
			logging.Default().Info("Notification worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Notification worker context cancelled")
			return
		}
	}
}

func (w *NotificationWorker) process(ctx context.Context) {
	startTime := time.Now()
	result, err := w.processor.ProcessNotifications(ctx)
	if err != nil {
		errutil.Handle(ctx, err, "Scheduled notification run failed (will retry next interval)")
		return
	}

	logging.Default().Info("Scheduled notification run completed",
		"sent", result.Sent,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", time.Since(startTime).String())
}
