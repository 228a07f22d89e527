package usecase_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/repository/memory"
	"github.com/deadline-guardian/guardian/pkg/repository/rdb"
	"github.com/deadline-guardian/guardian/pkg/usecase"
)

const day = 24 * time.Hour

func TestFindObligationsNeedingNotification(t *testing.T) {
	t.Run("seven days out is eligible at the 7 day threshold", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		o := putObligation(repo, "u1", "VAT return", testNow.Add(7*day))

		uc := usecase.New(repo, usecase.WithClock(fixedClock))
		eligible, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.NoError(t, err).Required()
		gt.Array(t, eligible).Length(1).Required()

		gt.Value(t, eligible[0].ID).Equal(o.ID)
		gt.Value(t, eligible[0].DaysUntilDeadline).Equal(7)
		gt.Value(t, eligible[0].NotificationThreshold).Equal(types.ThresholdSevenDays)
		gt.Value(t, eligible[0].OwnerEmail).Equal("u1@example.com")
		gt.Value(t, eligible[0].OwnerName).Equal("Owner u1")
	})

	t.Run("partial day rounds up into the 30 day band", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		putObligation(repo, "u1", "Insurance", testNow.Add(29*day+time.Hour))

		uc := usecase.New(repo)
		eligible, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.NoError(t, err).Required()
		gt.Array(t, eligible).Length(1).Required()
		gt.Value(t, eligible[0].DaysUntilDeadline).Equal(30)
		gt.Value(t, eligible[0].NotificationThreshold).Equal(types.ThresholdThirtyDays)
	})

	t.Run("already attempted threshold is skipped even when it failed", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		o := putObligation(repo, "u1", "VAT return", testNow.Add(7*day))
		_, err := repo.Notification().Append(context.Background(), &model.NotificationRecord{
			ObligationID:       o.ID,
			UserID:             "u1",
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.ThresholdSevenDays,
			SentAt:             testNow.Add(-time.Hour),
			Success:            false,
			ErrorMessage:       "mailbox unavailable",
		})
		gt.NoError(t, err).Required()

		uc := usecase.New(repo)
		eligible, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.NoError(t, err).Required()
		gt.Array(t, eligible).Length(0)
	})

	t.Run("a record for another threshold does not block", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		o := putObligation(repo, "u1", "VAT return", testNow.Add(day))
		_, err := repo.Notification().Append(context.Background(), &model.NotificationRecord{
			ObligationID:       o.ID,
			UserID:             "u1",
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.ThresholdSevenDays,
			SentAt:             testNow.Add(-6 * day),
			Success:            true,
		})
		gt.NoError(t, err).Required()

		uc := usecase.New(repo)
		eligible, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.NoError(t, err).Required()
		gt.Array(t, eligible).Length(1).Required()
		gt.Value(t, eligible[0].NotificationThreshold).Equal(types.ThresholdOneDay)
	})

	t.Run("overdue, handled and out of band obligations are never eligible", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		putObligation(repo, "u1", "overdue", testNow.Add(-2*day))
		putObligation(repo, "u1", "between bands", testNow.Add(14*day))
		putObligation(repo, "u1", "beyond horizon", testNow.Add(45*day))
		handled := putObligation(repo, "u1", "handled", testNow.Add(7*day))
		handled.Status = types.ObligationStatusHandled
		_, err := repo.Obligation().Update(context.Background(), handled)
		gt.NoError(t, err).Required()

		uc := usecase.New(repo)
		eligible, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.NoError(t, err).Required()
		gt.Array(t, eligible).Length(0)
	})

	t.Run("scanning twice without dispatch yields the same set", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		putObligation(repo, "u1", "a", testNow.Add(day))
		putObligation(repo, "u1", "b", testNow.Add(30*day))

		uc := usecase.New(repo)
		first, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.NoError(t, err).Required()
		second, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.NoError(t, err).Required()

		gt.Array(t, first).Length(2).Required()
		gt.Array(t, second).Length(2).Required()
		gt.Value(t, first[0].ID).Equal(second[0].ID)
		gt.Value(t, first[1].ID).Equal(second[1].ID)
	})

	t.Run("storage failure aborts the scan", func(t *testing.T) {
		repo := &brokenRepository{Repository: memory.New()}
		uc := usecase.New(repo)

		eligible, err := uc.Notification.FindObligationsNeedingNotification(context.Background(), testNow)
		gt.Value(t, err).NotNil()
		gt.Value(t, eligible).Nil()
	})
}

func TestProcessNotifications(t *testing.T) {
	t.Run("one failure does not stop the others", func(t *testing.T) {
		repo := memory.New()
		var ids []model.ObligationID
		for _, owner := range []model.UserID{"a", "b", "c", "d", "e"} {
			putUser(repo, owner)
			ids = append(ids, putObligation(repo, owner, "task "+string(owner), testNow.Add(7*day)).ID)
		}
		transport := newRecordingTransport("c@example.com")

		uc := usecase.New(repo, usecase.WithTransport(transport), usecase.WithClock(fixedClock))
		result, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()

		gt.Bool(t, result.Success).True()
		gt.Value(t, result.Sent).Equal(4)
		gt.Value(t, result.Failed).Equal(1)
		gt.Bool(t, result.Skipped).False()
		gt.Value(t, transport.Attempts()).Equal(5)

		for i, id := range ids {
			history, err := repo.Notification().ListByObligation(context.Background(), id)
			gt.NoError(t, err).Required()
			gt.Array(t, history).Length(1).Required()
			gt.Value(t, history[0].DaysBeforeDeadline).Equal(types.ThresholdSevenDays)
			gt.Bool(t, history[0].SentAt.Equal(testNow)).True()

			o, err := repo.Obligation().Get(context.Background(), id)
			gt.NoError(t, err).Required()

			if i == 2 {
				gt.Bool(t, history[0].Success).False()
				gt.String(t, history[0].ErrorMessage).Contains("mailbox unavailable")
				gt.Value(t, o.LastNotificationAt).Nil()
			} else {
				gt.Bool(t, history[0].Success).True()
				gt.Value(t, history[0].ErrorMessage).Equal("")
				gt.Value(t, o.LastNotificationAt).NotNil()
				gt.Bool(t, o.LastNotificationAt.Equal(testNow)).True()
			}
		}
	})

	t.Run("second run sends nothing and failed attempts are not retried", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "ok")
		putUser(repo, "bad")
		putObligation(repo, "ok", "sent", testNow.Add(day))
		putObligation(repo, "bad", "failed", testNow.Add(day))
		transport := newRecordingTransport("bad@example.com")

		uc := usecase.New(repo, usecase.WithTransport(transport), usecase.WithClock(fixedClock))
		first, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, first.Sent).Equal(1)
		gt.Value(t, first.Failed).Equal(1)

		second, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()
		gt.Bool(t, second.Success).True()
		gt.Value(t, second.Sent).Equal(0)
		gt.Value(t, second.Failed).Equal(0)
		gt.Value(t, transport.Attempts()).Equal(2)
	})

	t.Run("delivered message carries the formatted reminder", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		putObligation(repo, "u1", "VAT return", testNow.Add(7*day))
		transport := newRecordingTransport()

		uc := usecase.New(repo,
			usecase.WithTransport(transport),
			usecase.WithClock(fixedClock),
			usecase.WithAppURL("https://guardian.example.com"),
		)
		_, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()

		gt.Array(t, transport.delivered).Length(1).Required()
		msg := transport.delivered[0]
		gt.Value(t, msg.To).Equal("u1@example.com")
		gt.Value(t, msg.ToName).Equal("Owner u1")
		gt.Value(t, msg.Subject).Equal("⚠️ URGENT: VAT return - 7 days remaining")
		gt.String(t, msg.HTML).Contains("https://guardian.example.com/obligations")
		gt.String(t, msg.Text).Contains("Late filing penalty")
	})

	t.Run("parallel delivery keeps per item accounting", func(t *testing.T) {
		repo := memory.New()
		for _, owner := range []model.UserID{"a", "b", "c", "d", "e", "f"} {
			putUser(repo, owner)
			putObligation(repo, owner, "task", testNow.Add(30*day))
		}
		transport := newRecordingTransport("b@example.com", "e@example.com")

		uc := usecase.New(repo,
			usecase.WithTransport(transport),
			usecase.WithClock(fixedClock),
			usecase.WithConcurrency(3),
		)
		result, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, result.Sent).Equal(4)
		gt.Value(t, result.Failed).Equal(2)
	})

	t.Run("successful deliveries are archived", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "a")
		putUser(repo, "b")
		putObligation(repo, "a", "archived", testNow.Add(day))
		putObligation(repo, "b", "not archived", testNow.Add(day))
		archiver := &recordingArchiver{}

		uc := usecase.New(repo,
			usecase.WithTransport(newRecordingTransport("b@example.com")),
			usecase.WithClock(fixedClock),
			usecase.WithArchiver(archiver),
		)
		_, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()

		gt.Array(t, archiver.records).Length(1).Required()
		gt.Bool(t, archiver.records[0].Success).True()
		gt.Value(t, archiver.records[0].ID).NotEqual(model.NotificationID(""))
	})

	t.Run("held run lock skips the run", func(t *testing.T) {
		repo := memory.New()
		putUser(repo, "u1")
		putObligation(repo, "u1", "locked", testNow.Add(day))
		transport := newRecordingTransport()
		lock := &heldLock{held: true}

		uc := usecase.New(repo, usecase.WithTransport(transport), usecase.WithRunLock(lock), usecase.WithClock(fixedClock))
		result, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Success).True()
		gt.Bool(t, result.Skipped).True()
		gt.Value(t, transport.Attempts()).Equal(0)
		gt.Value(t, lock.unlocked).Equal(0)
	})

	t.Run("free run lock is released after the run", func(t *testing.T) {
		repo := memory.New()
		lock := &heldLock{}

		uc := usecase.New(repo, usecase.WithTransport(newRecordingTransport()), usecase.WithRunLock(lock))
		result, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Skipped).False()
		gt.Value(t, lock.unlocked).Equal(1)
	})

	t.Run("scan failure reports an unsuccessful run and writes nothing", func(t *testing.T) {
		inner := memory.New()
		putUser(inner, "u1")
		o := putObligation(inner, "u1", "unreached", testNow.Add(day))
		transport := newRecordingTransport()

		uc := usecase.New(&brokenRepository{Repository: inner}, usecase.WithTransport(transport))
		result, err := uc.Notification.ProcessNotifications(context.Background())
		gt.Value(t, err).NotNil()
		gt.Bool(t, result.Success).False()
		gt.Value(t, transport.Attempts()).Equal(0)

		history, err := inner.Notification().ListByObligation(context.Background(), o.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(0)
	})

	t.Run("cancellation after delivery still records the attempt", func(t *testing.T) {
		repo, err := rdb.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "guardian.db"))
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = repo.Close() })

		putUser(repo, "u1")
		o := putObligation(repo, "u1", "VAT return", testNow.Add(7*day))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		transport := &cancelingTransport{recordingTransport: newRecordingTransport(), cancel: cancel}

		uc := usecase.New(repo, usecase.WithTransport(transport), usecase.WithClock(fixedClock))
		result, err := uc.Notification.ProcessNotifications(ctx)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Sent).Equal(1)
		gt.Value(t, result.Failed).Equal(0)

		history, err := repo.Notification().ListByObligation(context.Background(), o.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(1).Required()
		gt.Bool(t, history[0].Success).True()
		gt.Value(t, history[0].DaysBeforeDeadline).Equal(types.ThresholdSevenDays)

		stored, err := repo.Obligation().Get(context.Background(), o.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, stored.LastNotificationAt).NotNil()

		again, err := uc.Notification.ProcessNotifications(context.Background())
		gt.NoError(t, err).Required()
		gt.Value(t, again.Sent).Equal(0)
		gt.Value(t, transport.Attempts()).Equal(1)
	})

	t.Run("missing transport is an error", func(t *testing.T) {
		uc := usecase.New(memory.New())
		result, err := uc.Notification.ProcessNotifications(context.Background())
		gt.Error(t, err).Is(usecase.ErrNoTransport)
		gt.Bool(t, result.Success).False()
	})
}
