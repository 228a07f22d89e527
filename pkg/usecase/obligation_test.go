package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/repository/memory"
	"github.com/deadline-guardian/guardian/pkg/usecase"
)

func TestObligationCreate(t *testing.T) {
	t.Run("free tier allows two active obligations", func(t *testing.T) {
		repo := memory.New()
		user := putUser(repo, "u1")
		uc := usecase.New(repo)
		ctx := context.Background()

		for range 2 {
			_, err := uc.Obligation.Create(ctx, user, validInput())
			gt.NoError(t, err).Required()
		}

		_, err := uc.Obligation.Create(ctx, user, validInput())
		gt.Error(t, err).Is(usecase.ErrLimitReached)
		gt.Value(t, goerr.Unwrap(err).Values()[usecase.LimitKey]).Equal(any(2))
	})

	t.Run("handled obligations free a slot", func(t *testing.T) {
		repo := memory.New()
		user := putUser(repo, "u1")
		uc := usecase.New(repo)
		ctx := context.Background()

		first, err := uc.Obligation.Create(ctx, user, validInput())
		gt.NoError(t, err).Required()
		_, err = uc.Obligation.Create(ctx, user, validInput())
		gt.NoError(t, err).Required()

		_, err = uc.Obligation.MarkHandled(ctx, user, first.ID)
		gt.NoError(t, err).Required()

		_, err = uc.Obligation.Create(ctx, user, validInput())
		gt.NoError(t, err)
	})

	t.Run("subscribed team is unlimited", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		gt.NoError(t, repo.User().PutTeam(ctx, &model.Team{
			ID:                 "acme",
			SubscriptionID:     "sub_1",
			SubscriptionStatus: types.SubscriptionStatusActive,
		})).Required()
		user := &model.User{ID: "u1", Email: "u1@example.com", TeamID: "acme"}
		gt.NoError(t, repo.User().Put(ctx, user)).Required()

		uc := usecase.New(repo)
		for range 5 {
			_, err := uc.Obligation.Create(ctx, user, validInput())
			gt.NoError(t, err).Required()
		}
	})

	t.Run("canceled subscription falls back to the free tier", func(t *testing.T) {
		repo := memory.New()
		ctx := context.Background()
		gt.NoError(t, repo.User().PutTeam(ctx, &model.Team{
			ID:                 "acme",
			SubscriptionID:     "sub_1",
			SubscriptionStatus: types.SubscriptionStatusCanceled,
		})).Required()
		user := &model.User{ID: "u1", Email: "u1@example.com", TeamID: "acme"}

		uc := usecase.New(repo, usecase.WithFreeTierLimit(1))
		_, err := uc.Obligation.Create(ctx, user, validInput())
		gt.NoError(t, err).Required()
		_, err = uc.Obligation.Create(ctx, user, validInput())
		gt.Error(t, err).Is(usecase.ErrLimitReached)
	})

	t.Run("created obligation is active and owned", func(t *testing.T) {
		repo := memory.New()
		user := putUser(repo, "u1")
		uc := usecase.New(repo)

		created, err := uc.Obligation.Create(context.Background(), user, validInput())
		gt.NoError(t, err).Required()
		gt.Value(t, created.OwnerID).Equal(model.UserID("u1"))
		gt.Value(t, created.Status).Equal(types.ObligationStatusActive)
		gt.Value(t, created.Title).Equal("Renew business license")
		gt.Value(t, created.Category).Equal(types.CategoryLegal)
	})

	t.Run("invalid input is rejected before the paywall", func(t *testing.T) {
		repo := memory.New()
		user := putUser(repo, "u1")
		uc := usecase.New(repo, usecase.WithFreeTierLimit(0))

		input := validInput()
		input.Title = ""
		_, err := uc.Obligation.Create(context.Background(), user, input)
		gt.Error(t, err).Is(model.ErrInvalidInput)
		gt.Value(t, goerr.Unwrap(err).Values()[model.MessageKey]).Equal(any("Title is required"))
	})
}

func TestObligationOwnerScoping(t *testing.T) {
	repo := memory.New()
	owner := putUser(repo, "owner")
	other := putUser(repo, "other")
	uc := usecase.New(repo)
	ctx := context.Background()

	created, err := uc.Obligation.Create(ctx, owner, validInput())
	gt.NoError(t, err).Required()

	t.Run("other owners see not found", func(t *testing.T) {
		_, err := uc.Obligation.Get(ctx, other, created.ID)
		gt.Error(t, err).Is(usecase.ErrObligationNotFound)

		_, err = uc.Obligation.Update(ctx, other, created.ID, validInput())
		gt.Error(t, err).Is(usecase.ErrObligationNotFound)

		_, err = uc.Obligation.MarkHandled(ctx, other, created.ID)
		gt.Error(t, err).Is(usecase.ErrObligationNotFound)

		err = uc.Obligation.Delete(ctx, other, created.ID)
		gt.Error(t, err).Is(usecase.ErrObligationNotFound)

		_, err = uc.Obligation.History(ctx, other, created.ID)
		gt.Error(t, err).Is(usecase.ErrObligationNotFound)

		list, err := uc.Obligation.List(ctx, other)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(0)
	})

	t.Run("owner can update and list", func(t *testing.T) {
		input := validInput()
		input.Title = "Renew trade license"
		updated, err := uc.Obligation.Update(ctx, owner, created.ID, input)
		gt.NoError(t, err).Required()
		gt.Value(t, updated.Title).Equal("Renew trade license")

		list, err := uc.Obligation.List(ctx, owner)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(1)
	})

	t.Run("mark handled is idempotent", func(t *testing.T) {
		first, err := uc.Obligation.MarkHandled(ctx, owner, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, first.Status).Equal(types.ObligationStatusHandled)

		second, err := uc.Obligation.MarkHandled(ctx, owner, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, second.Status).Equal(types.ObligationStatusHandled)
	})

	t.Run("history and delete", func(t *testing.T) {
		_, err := repo.Notification().Append(ctx, &model.NotificationRecord{
			ObligationID:       created.ID,
			UserID:             owner.ID,
			Type:               types.NotificationTypeEmail,
			DaysBeforeDeadline: types.ThresholdThirtyDays,
			SentAt:             testNow,
			Success:            true,
		})
		gt.NoError(t, err).Required()

		history, err := uc.Obligation.History(ctx, owner, created.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, history).Length(1)

		gt.NoError(t, uc.Obligation.Delete(ctx, owner, created.ID)).Required()

		_, err = uc.Obligation.Get(ctx, owner, created.ID)
		gt.Error(t, err).Is(usecase.ErrObligationNotFound)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := uc.Obligation.Get(ctx, owner, 9999)
		gt.Error(t, err).Is(usecase.ErrObligationNotFound)
	})
}
