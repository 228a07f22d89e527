package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

func runNotificationRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Exists matches the exact threshold regardless of success", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		o, err := repo.Obligation().Create(ctx, newObligation("u1", "t", baseTime))
		gt.NoError(t, err).Required()

		exists, err := repo.Notification().Exists(ctx, o.ID, types.ThresholdSevenDays)
		gt.NoError(t, err).Required()
		gt.Bool(t, exists).False()

		_, err = repo.Notification().Append(ctx, &model.NotificationRecord{
			ObligationID:       o.ID,
			UserID:             "u1",
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.ThresholdSevenDays,
			SentAt:             baseTime,
			Success:            false,
			ErrorMessage:       "smtp: connection refused",
		})
		gt.NoError(t, err).Required()

		exists, err = repo.Notification().Exists(ctx, o.ID, types.ThresholdSevenDays)
		gt.NoError(t, err).Required()
		gt.Bool(t, exists).True()

		exists, err = repo.Notification().Exists(ctx, o.ID, types.ThresholdOneDay)
		gt.NoError(t, err).Required()
		gt.Bool(t, exists).False()
	})

	t.Run("Append rejects a threshold outside 30, 7 and 1", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		o, err := repo.Obligation().Create(ctx, newObligation("u1", "odd", baseTime))
		gt.NoError(t, err).Required()

		_, err = repo.Notification().Append(ctx, &model.NotificationRecord{
			ObligationID:       o.ID,
			UserID:             "u1",
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.Threshold(14),
			SentAt:             baseTime,
			Success:            true,
		})
		gt.Error(t, err).Is(model.ErrInvalidRecord)

		history, err := repo.Notification().ListByObligation(ctx, o.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(0)
	})

	t.Run("Append assigns an id and ListByObligation orders by SentAt", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		o, err := repo.Obligation().Create(ctx, newObligation("u1", "history", baseTime))
		gt.NoError(t, err).Required()

		later, err := repo.Notification().Append(ctx, &model.NotificationRecord{
			ObligationID:       o.ID,
			UserID:             "u1",
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.ThresholdSevenDays,
			SentAt:             baseTime.Add(23 * 24 * time.Hour),
			Success:            true,
		})
		gt.NoError(t, err).Required()
		gt.Value(t, later.ID).NotEqual(model.NotificationID(""))

		earlier, err := repo.Notification().Append(ctx, &model.NotificationRecord{
			ObligationID:       o.ID,
			UserID:             "u1",
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.ThresholdThirtyDays,
			SentAt:             baseTime,
			Success:            false,
			ErrorMessage:       "mailbox full",
		})
		gt.NoError(t, err).Required()

		history, err := repo.Notification().ListByObligation(ctx, o.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(2).Required()

		gt.Value(t, history[0].ID).Equal(earlier.ID)
		gt.Value(t, history[0].DaysBeforeDeadline).Equal(types.ThresholdThirtyDays)
		gt.Bool(t, history[0].Success).False()
		gt.Value(t, history[0].ErrorMessage).Equal("mailbox full")
		gt.Bool(t, history[0].SentAt.Equal(baseTime)).True()

		gt.Value(t, history[1].ID).Equal(later.ID)
		gt.Bool(t, history[1].Success).True()
		gt.Value(t, history[1].ErrorMessage).Equal("")
		gt.Value(t, history[1].Type).Equal(types.NotificationTypeEmail)
		gt.Value(t, history[1].UserID).Equal(model.UserID("u1"))
	})
}
