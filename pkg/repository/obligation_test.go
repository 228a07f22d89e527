package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// baseTime is millisecond aligned so every backend round-trips it exactly
var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newObligation(owner model.UserID, title string, deadline time.Time) *model.Obligation {
	return &model.Obligation{
		OwnerID:     owner,
		Title:       title,
		Category:    types.CategoryTax,
		DeadlineAt:  deadline,
		Consequence: "Penalty",
		Severity:    types.SeverityHigh,
		Status:      types.ObligationStatusActive,
	}
}

func runObligationRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create assigns id and timestamps", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first, err := repo.Obligation().Create(ctx, newObligation("u1", "VAT return", baseTime))
		gt.NoError(t, err).Required()
		second, err := repo.Obligation().Create(ctx, newObligation("u1", "Insurance", baseTime))
		gt.NoError(t, err).Required()

		gt.Value(t, first.ID).NotEqual(model.ObligationID(0))
		gt.Bool(t, second.ID > first.ID).True()
		gt.Bool(t, first.CreatedAt.IsZero()).False()

		got, err := repo.Obligation().Get(ctx, first.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("VAT return")
		gt.Value(t, got.OwnerID).Equal(model.UserID("u1"))
		gt.Value(t, got.Category).Equal(types.CategoryTax)
		gt.Value(t, got.Severity).Equal(types.SeverityHigh)
		gt.Value(t, got.Status).Equal(types.ObligationStatusActive)
		gt.Bool(t, got.DeadlineAt.Equal(baseTime)).True()
		gt.Value(t, got.LastNotificationAt).Nil()
	})

	t.Run("Get returns ErrNotFound for unknown id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Obligation().Get(context.Background(), 999999)
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("Update replaces fields and keeps CreatedAt", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Obligation().Create(ctx, newObligation("u1", "Draft", baseTime))
		gt.NoError(t, err).Required()
		before, err := repo.Obligation().Get(ctx, created.ID)
		gt.NoError(t, err).Required()

		created.Title = "Final"
		created.Status = types.ObligationStatusHandled
		_, err = repo.Obligation().Update(ctx, created)
		gt.NoError(t, err).Required()

		got, err := repo.Obligation().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Final")
		gt.Value(t, got.Status).Equal(types.ObligationStatusHandled)
		gt.Bool(t, got.CreatedAt.Equal(before.CreatedAt)).True()

		missing := newObligation("u1", "ghost", baseTime)
		missing.ID = 424242
		_, err = repo.Obligation().Update(ctx, missing)
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("Delete removes obligation and its history", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Obligation().Create(ctx, newObligation("u1", "Delete me", baseTime))
		gt.NoError(t, err).Required()
		_, err = repo.Notification().Append(ctx, &model.NotificationRecord{
			ObligationID:       created.ID,
			UserID:             "u1",
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.ThresholdSevenDays,
			SentAt:             baseTime,
			Success:            true,
		})
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.Obligation().Delete(ctx, created.ID)).Required()

		_, err = repo.Obligation().Get(ctx, created.ID)
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()

		history, err := repo.Notification().ListByObligation(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(0)

		err = repo.Obligation().Delete(ctx, created.ID)
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("ListByOwner and CountActiveByOwner are owner scoped", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, title := range []string{"a", "b", "c"} {
			_, err := repo.Obligation().Create(ctx, newObligation("owner", title, baseTime))
			gt.NoError(t, err).Required()
		}
		handled := newObligation("owner", "done", baseTime)
		handled.Status = types.ObligationStatusHandled
		_, err := repo.Obligation().Create(ctx, handled)
		gt.NoError(t, err).Required()
		_, err = repo.Obligation().Create(ctx, newObligation("other", "x", baseTime))
		gt.NoError(t, err).Required()

		list, err := repo.Obligation().ListByOwner(ctx, "owner")
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(4)
		gt.Value(t, list[0].Title).Equal("a")

		count, err := repo.Obligation().CountActiveByOwner(ctx, "owner")
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(3)

		count, err = repo.Obligation().CountActiveByOwner(ctx, "nobody")
		gt.NoError(t, err).Required()
		gt.Value(t, count).Equal(0)
	})

	t.Run("ListActiveDueBefore filters and joins owners", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.User().Put(ctx, &model.User{ID: "u1", Email: "u1@example.com", Name: "User One"})).Required()
		cutoff := baseTime.Add(31 * 24 * time.Hour)

		soon, err := repo.Obligation().Create(ctx, newObligation("u1", "soon", baseTime.Add(7*24*time.Hour)))
		gt.NoError(t, err).Required()
		overdue, err := repo.Obligation().Create(ctx, newObligation("u1", "overdue", baseTime.Add(-72*time.Hour)))
		gt.NoError(t, err).Required()
		_, err = repo.Obligation().Create(ctx, newObligation("u1", "at cutoff", cutoff))
		gt.NoError(t, err).Required()
		_, err = repo.Obligation().Create(ctx, newObligation("u1", "far", baseTime.Add(60*24*time.Hour)))
		gt.NoError(t, err).Required()
		handled := newObligation("u1", "handled", baseTime.Add(24*time.Hour))
		handled.Status = types.ObligationStatusHandled
		_, err = repo.Obligation().Create(ctx, handled)
		gt.NoError(t, err).Required()
		_, err = repo.Obligation().Create(ctx, newObligation("ghost", "no owner", baseTime.Add(24*time.Hour)))
		gt.NoError(t, err).Required()

		due, err := repo.Obligation().ListActiveDueBefore(ctx, cutoff)
		gt.NoError(t, err).Required()
		gt.Array(t, due).Length(2).Required()

		gt.Value(t, due[0].ID).Equal(soon.ID)
		gt.Value(t, due[0].OwnerEmail).Equal("u1@example.com")
		gt.Value(t, due[0].OwnerName).Equal("User One")
		gt.Value(t, due[1].ID).Equal(overdue.ID)
	})

	t.Run("TouchLastNotification stamps the obligation", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Obligation().Create(ctx, newObligation("u1", "touch", baseTime))
		gt.NoError(t, err).Required()

		at := baseTime.Add(time.Hour)
		gt.NoError(t, repo.Obligation().TouchLastNotification(ctx, created.ID, at)).Required()

		got, err := repo.Obligation().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.LastNotificationAt).NotNil()
		gt.Bool(t, got.LastNotificationAt.Equal(at)).True()

		err = repo.Obligation().TouchLastNotification(ctx, 777777, at)
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})
}
