package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/utils/async"
	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// DispatchResult summarizes one notification run
type DispatchResult struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	// Skipped is set when another run held the run lock
	Skipped bool `json:"skipped,omitempty"`
}

type NotificationUseCase struct {
	repo        interfaces.Repository
	transport   interfaces.Transport
	runLock     interfaces.RunLock
	archiver    interfaces.Archiver
	clock       func() time.Time
	appURL      string
	concurrency int
}

// FindObligationsNeedingNotification returns the ACTIVE obligations due within the
// notification horizon whose current threshold has never been attempted, in fetch
// order. It has no side effects; any storage error aborts the scan.
func (uc *NotificationUseCase) FindObligationsNeedingNotification(ctx context.Context, now time.Time) ([]*model.EligibleObligation, error) {
	due, err := uc.repo.Obligation().ListActiveDueBefore(ctx, now.Add(model.NotificationHorizon))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list obligations due for notification")
	}

	eligible := make([]*model.EligibleObligation, 0, len(due))
	for _, o := range due {
		days, threshold := model.ClassifyThreshold(now, o.DeadlineAt)
		if threshold == types.ThresholdNone {
			continue
		}

		attempted, err := uc.repo.Notification().Exists(ctx, o.ID, threshold)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to check notification history",
				goerr.V(ObligationIDKey, o.ID),
				goerr.V(ThresholdKey, threshold))
		}
		if attempted {
			continue
		}

		eligible = append(eligible, &model.EligibleObligation{
			DueObligation:         *o,
			DaysUntilDeadline:     days,
			NotificationThreshold: threshold,
		})
	}

	return eligible, nil
}

// ProcessNotifications runs one scan and delivers a reminder for every eligible
// obligation. Each obligation is handled independently: a failed delivery is recorded
// and counted, and the run continues. An error is returned only when the run as a whole
// could not proceed, together with a result whose Success is false.
func (uc *NotificationUseCase) ProcessNotifications(ctx context.Context) (*DispatchResult, error) {
	if uc.transport == nil {
		return &DispatchResult{}, goerr.Wrap(ErrNoTransport, "cannot process notifications")
	}

	logger := logging.From(ctx)

	if uc.runLock != nil {
		acquired, err := uc.runLock.TryLock(ctx)
		if err != nil {
			return &DispatchResult{}, goerr.Wrap(err, "failed to acquire notification run lock")
		}
		if !acquired {
			logger.Info("notification run skipped, another run holds the lock")
			return &DispatchResult{Success: true, Skipped: true}, nil
		}
		defer func() {
			if err := uc.runLock.Unlock(context.WithoutCancel(ctx)); err != nil {
				errutil.Handle(ctx, err, "failed to release notification run lock")
			}
		}()
	}

	now := uc.clock()
	eligible, err := uc.FindObligationsNeedingNotification(ctx, now)
	if err != nil {
		return &DispatchResult{}, err
	}

	if len(eligible) == 0 {
		logger.Info("no notifications needed at this time")
		return &DispatchResult{Success: true}, nil
	}
	logger.Info("found obligations needing notification", "count", len(eligible))

	var (
		mu       sync.Mutex
		result   = &DispatchResult{Success: true}
		archives async.Group
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.concurrency)
	for _, e := range eligible {
		eg.Go(func() error {
			sent := uc.notify(egCtx, e, now, &archives)

			mu.Lock()
			defer mu.Unlock()
			if sent {
				result.Sent++
			} else {
				result.Failed++
			}
			return nil
		})
	}
	_ = eg.Wait()
	archives.Wait()

	logger.Info("notification run finished", "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

// notify formats, delivers and records one reminder. It reports whether the reminder
// was delivered and its success record written.
func (uc *NotificationUseCase) notify(ctx context.Context, e *model.EligibleObligation, now time.Time, archives *async.Group) bool {
	logger := logging.From(ctx).With(
		ObligationIDKey, e.ID,
		ThresholdKey, int(e.NotificationThreshold),
	)

	record := &model.NotificationRecord{
		ObligationID:       e.ID,
		UserID:             e.OwnerID,
		Type:               uc.transport.Type(),
		DaysBeforeDeadline: e.NotificationThreshold,
		SentAt:             now,
	}

	msg, err := uc.deliver(ctx, e)

	// The attempt has happened; its record must land even if the run is cancelled now.
	writeCtx := context.WithoutCancel(ctx)

	if err != nil {
		logger.Warn("failed to send notification", "title", e.Title, "error", err)
		record.ErrorMessage = err.Error()
		if _, appendErr := uc.repo.Notification().Append(writeCtx, record); appendErr != nil {
			errutil.Handle(ctx, goerr.Wrap(appendErr, "failed to record failed notification",
				goerr.V(ObligationIDKey, e.ID)), "notification history write failed")
		}
		return false
	}

	record.Success = true
	saved, err := uc.repo.Notification().Append(writeCtx, record)
	if err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to record sent notification",
			goerr.V(ObligationIDKey, e.ID)), "notification history write failed")
		return false
	}

	if err := uc.repo.Obligation().TouchLastNotification(writeCtx, e.ID, now); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to touch last notification",
			goerr.V(ObligationIDKey, e.ID)), "obligation update failed")
	}

	if uc.archiver != nil {
		archives.Dispatch(ctx, func(ctx context.Context) error {
			return uc.archiver.Archive(ctx, saved, msg)
		})
	}

	logger.Info("notification sent", "title", e.Title)
	return true
}

func (uc *NotificationUseCase) deliver(ctx context.Context, e *model.EligibleObligation) (*model.Message, error) {
	payload, err := model.FormatPayload(e, uc.appURL)
	if err != nil {
		return nil, err
	}

	msg := payload.Message(e)
	if err := uc.transport.Deliver(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
