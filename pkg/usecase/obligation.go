package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type ObligationUseCase struct {
	repo          interfaces.Repository
	freeTierLimit int
	clock         func() time.Time
}

func NewObligationUseCase(repo interfaces.Repository, freeTierLimit int, clock func() time.Time) *ObligationUseCase {
	if clock == nil {
		clock = time.Now
	}
	return &ObligationUseCase{
		repo:          repo,
		freeTierLimit: freeTierLimit,
		clock:         clock,
	}
}

// Now returns the use case clock, used for display status
func (uc *ObligationUseCase) Now() time.Time {
	return uc.clock()
}

// FreeTierLimit returns the number of ACTIVE obligations allowed without a subscription
func (uc *ObligationUseCase) FreeTierLimit() int {
	return uc.freeTierLimit
}

func (uc *ObligationUseCase) hasSubscription(ctx context.Context, user *model.User) (bool, error) {
	if user.TeamID == "" {
		return false, nil
	}

	team, err := uc.repo.User().GetTeam(ctx, user.TeamID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get team", goerr.V("team_id", user.TeamID))
	}
	return team.HasSubscription(), nil
}

// Create validates input, enforces the free tier limit and stores a new ACTIVE obligation
func (uc *ObligationUseCase) Create(ctx context.Context, user *model.User, input *model.ObligationInput) (*model.Obligation, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	subscribed, err := uc.hasSubscription(ctx, user)
	if err != nil {
		return nil, err
	}
	if !subscribed {
		count, err := uc.repo.Obligation().CountActiveByOwner(ctx, user.ID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to count active obligations", goerr.V(UserIDKey, user.ID))
		}
		if count >= uc.freeTierLimit {
			return nil, goerr.Wrap(ErrLimitReached, "cannot create obligation",
				goerr.V(UserIDKey, user.ID),
				goerr.V(LimitKey, uc.freeTierLimit))
		}
	}

	obligation := &model.Obligation{
		OwnerID: user.ID,
		TeamID:  user.TeamID,
		Status:  types.ObligationStatusActive,
	}
	obligation.Apply(input)

	created, err := uc.repo.Obligation().Create(ctx, obligation)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create obligation", goerr.V(UserIDKey, user.ID))
	}
	return created, nil
}

// Get returns the obligation when it belongs to user. Obligations of other owners are
// reported as not found.
func (uc *ObligationUseCase) Get(ctx context.Context, user *model.User, id model.ObligationID) (*model.Obligation, error) {
	obligation, err := uc.repo.Obligation().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrObligationNotFound, "obligation not found", goerr.V(ObligationIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get obligation", goerr.V(ObligationIDKey, id))
	}

	if !obligation.IsOwnedBy(user.ID) {
		return nil, goerr.Wrap(ErrObligationNotFound, "obligation not found",
			goerr.V(ObligationIDKey, id),
			goerr.V(UserIDKey, user.ID))
	}
	return obligation, nil
}

func (uc *ObligationUseCase) List(ctx context.Context, user *model.User) ([]*model.Obligation, error) {
	obligations, err := uc.repo.Obligation().ListByOwner(ctx, user.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list obligations", goerr.V(UserIDKey, user.ID))
	}
	return obligations, nil
}

// Update replaces the editable fields of an owned obligation
func (uc *ObligationUseCase) Update(ctx context.Context, user *model.User, id model.ObligationID, input *model.ObligationInput) (*model.Obligation, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	obligation, err := uc.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	obligation.Apply(input)

	updated, err := uc.repo.Obligation().Update(ctx, obligation)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update obligation", goerr.V(ObligationIDKey, id))
	}
	return updated, nil
}

// MarkHandled moves an owned obligation to HANDLED, which ends its notifications.
// Marking an already handled obligation is a no-op.
func (uc *ObligationUseCase) MarkHandled(ctx context.Context, user *model.User, id model.ObligationID) (*model.Obligation, error) {
	obligation, err := uc.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if obligation.Status == types.ObligationStatusHandled {
		return obligation, nil
	}

	obligation.Status = types.ObligationStatusHandled
	updated, err := uc.repo.Obligation().Update(ctx, obligation)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to mark obligation handled", goerr.V(ObligationIDKey, id))
	}
	return updated, nil
}

// Delete removes an owned obligation together with its notification history
func (uc *ObligationUseCase) Delete(ctx context.Context, user *model.User, id model.ObligationID) error {
	if _, err := uc.Get(ctx, user, id); err != nil {
		return err
	}

	if err := uc.repo.Obligation().Delete(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return goerr.Wrap(ErrObligationNotFound, "obligation not found", goerr.V(ObligationIDKey, id))
		}
		return goerr.Wrap(err, "failed to delete obligation", goerr.V(ObligationIDKey, id))
	}
	return nil
}

// History returns the notification attempts of an owned obligation, oldest first
func (uc *ObligationUseCase) History(ctx context.Context, user *model.User, id model.ObligationID) ([]*model.NotificationRecord, error) {
	if _, err := uc.Get(ctx, user, id); err != nil {
		return nil, err
	}

	records, err := uc.repo.Notification().ListByObligation(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notification history", goerr.V(ObligationIDKey, id))
	}
	return records, nil
}
