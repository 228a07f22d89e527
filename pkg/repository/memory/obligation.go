package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type obligationRepository struct {
	mu          sync.RWMutex
	obligations map[model.ObligationID]*model.Obligation
	nextID      model.ObligationID

	users         *userRepository
	notifications *notificationRepository
}

func newObligationRepository(users *userRepository, notifications *notificationRepository) *obligationRepository {
	return &obligationRepository{
		obligations:   make(map[model.ObligationID]*model.Obligation),
		nextID:        1,
		users:         users,
		notifications: notifications,
	}
}

// copyObligation creates a deep copy of an obligation
func copyObligation(o *model.Obligation) *model.Obligation {
	c := *o
	if o.LastNotificationAt != nil {
		t := *o.LastNotificationAt
		c.LastNotificationAt = &t
	}
	return &c
}

func (r *obligationRepository) Create(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copyObligation(obligation)
	created.ID = r.nextID
	created.CreatedAt = now
	created.UpdatedAt = now
	r.nextID++

	r.obligations[created.ID] = created
	return copyObligation(created), nil
}

func (r *obligationRepository) Get(ctx context.Context, id model.ObligationID) (*model.Obligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, exists := r.obligations[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "obligation not found", goerr.V("id", id))
	}
	return copyObligation(o), nil
}

func (r *obligationRepository) Update(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.obligations[obligation.ID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "obligation not found", goerr.V("id", obligation.ID))
	}

	updated := copyObligation(obligation)
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	r.obligations[updated.ID] = updated
	return copyObligation(updated), nil
}

func (r *obligationRepository) Delete(ctx context.Context, id model.ObligationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.obligations[id]; !exists {
		return goerr.Wrap(ErrNotFound, "obligation not found", goerr.V("id", id))
	}

	delete(r.obligations, id)
	r.notifications.deleteByObligation(id)
	return nil
}

// sortedLocked returns obligations in ascending id order. Caller must hold r.mu.
func (r *obligationRepository) sortedLocked() []*model.Obligation {
	list := make([]*model.Obligation, 0, len(r.obligations))
	for _, o := range r.obligations {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *obligationRepository) ListByOwner(ctx context.Context, ownerID model.UserID) ([]*model.Obligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Obligation, 0)
	for _, o := range r.sortedLocked() {
		if o.OwnerID == ownerID {
			result = append(result, copyObligation(o))
		}
	}
	return result, nil
}

func (r *obligationRepository) CountActiveByOwner(ctx context.Context, ownerID model.UserID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, o := range r.obligations {
		if o.OwnerID == ownerID && o.Status == types.ObligationStatusActive {
			count++
		}
	}
	return count, nil
}

func (r *obligationRepository) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]*model.DueObligation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.DueObligation, 0)
	for _, o := range r.sortedLocked() {
		if o.Status != types.ObligationStatusActive || !o.DeadlineAt.Before(cutoff) {
			continue
		}

		owner, ok := r.users.lookup(o.OwnerID)
		if !ok {
			continue
		}

		result = append(result, &model.DueObligation{
			Obligation: *copyObligation(o),
			OwnerEmail: owner.Email,
			OwnerName:  owner.Name,
		})
	}
	return result, nil
}

func (r *obligationRepository) TouchLastNotification(ctx context.Context, id model.ObligationID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, exists := r.obligations[id]
	if !exists {
		return goerr.Wrap(ErrNotFound, "obligation not found", goerr.V("id", id))
	}

	t := at.UTC()
	o.LastNotificationAt = &t
	return nil
}
