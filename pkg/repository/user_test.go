package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

func runUserRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Put upserts users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.User().Put(ctx, &model.User{ID: "u1", Email: "old@example.com", Name: "Old"})).Required()
		gt.NoError(t, repo.User().Put(ctx, &model.User{ID: "u1", Email: "new@example.com", Name: "New", TeamID: "t1"})).Required()

		got, err := repo.User().Get(ctx, "u1")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Email).Equal("new@example.com")
		gt.Value(t, got.Name).Equal("New")
		gt.Value(t, got.TeamID).Equal(model.TeamID("t1"))

		_, err = repo.User().Get(ctx, "missing")
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})

	t.Run("PutTeam upserts subscription state", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		gt.NoError(t, repo.User().PutTeam(ctx, &model.Team{ID: "t1", Name: "Acme"})).Required()
		gt.NoError(t, repo.User().PutTeam(ctx, &model.Team{
			ID:                 "t1",
			Name:               "Acme",
			SubscriptionID:     "sub_123",
			SubscriptionStatus: types.SubscriptionStatusTrialing,
		})).Required()

		got, err := repo.User().GetTeam(ctx, "t1")
		gt.NoError(t, err).Required()
		gt.Value(t, got.SubscriptionID).Equal("sub_123")
		gt.Bool(t, got.HasSubscription()).True()

		_, err = repo.User().GetTeam(ctx, "missing")
		gt.Bool(t, errors.Is(err, interfaces.ErrNotFound)).True()
	})
}
