package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type obligationRepository struct {
	client           *firestore.Client
	collectionPrefix string

	users         *userRepository
	notifications *notificationRepository
}

func newObligationRepository(client *firestore.Client, users *userRepository, notifications *notificationRepository) *obligationRepository {
	return &obligationRepository{
		client:        client,
		users:         users,
		notifications: notifications,
	}
}

func (r *obligationRepository) obligationsCollection() string {
	return prefixed(r.collectionPrefix, "obligations")
}

func (r *obligationRepository) counterCollection() string {
	return prefixed(r.collectionPrefix, "counters")
}

func (r *obligationRepository) doc(id model.ObligationID) *firestore.DocumentRef {
	return r.client.Collection(r.obligationsCollection()).Doc(fmt.Sprintf("%d", id))
}

func (r *obligationRepository) getNextID(ctx context.Context) (model.ObligationID, error) {
	counterRef := r.client.Collection(r.counterCollection()).Doc("obligation_counter")

	var nextID int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(counterRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				nextID = 1
				return tx.Set(counterRef, map[string]interface{}{
					"value": nextID,
				})
			}
			return goerr.Wrap(err, "failed to get counter")
		}

		currentValue, err := doc.DataAt("value")
		if err != nil {
			return goerr.Wrap(err, "failed to get counter value")
		}

		val, ok := currentValue.(int64)
		if !ok {
			return goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
		}
		nextID = val + 1
		return tx.Update(counterRef, []firestore.Update{
			{Path: "value", Value: nextID},
		})
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get next ID")
	}

	return model.ObligationID(nextID), nil
}

func (r *obligationRepository) Create(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error) {
	nextID, err := r.getNextID(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get next ID")
	}

	now := time.Now().UTC()
	created := *obligation
	created.ID = nextID
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.doc(created.ID).Set(ctx, &created); err != nil {
		return nil, goerr.Wrap(err, "failed to create obligation", goerr.V("id", created.ID))
	}

	return &created, nil
}

func (r *obligationRepository) Get(ctx context.Context, id model.ObligationID) (*model.Obligation, error) {
	docSnap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "obligation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get obligation", goerr.V("id", id))
	}

	var o model.Obligation
	if err := docSnap.DataTo(&o); err != nil {
		return nil, goerr.Wrap(err, "failed to decode obligation", goerr.V("id", id))
	}
	return &o, nil
}

func (r *obligationRepository) Update(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error) {
	existing, err := r.Get(ctx, obligation.ID)
	if err != nil {
		return nil, err
	}

	updated := *obligation
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if _, err := r.doc(updated.ID).Set(ctx, &updated); err != nil {
		return nil, goerr.Wrap(err, "failed to update obligation", goerr.V("id", obligation.ID))
	}
	return &updated, nil
}

func (r *obligationRepository) Delete(ctx context.Context, id model.ObligationID) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	if err := r.notifications.deleteByObligation(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete notification history", goerr.V("id", id))
	}

	if _, err := r.doc(id).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete obligation", goerr.V("id", id))
	}
	return nil
}

func (r *obligationRepository) collect(iter *firestore.DocumentIterator) ([]*model.Obligation, error) {
	defer iter.Stop()

	result := make([]*model.Obligation, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate obligations")
		}

		var o model.Obligation
		if err := docSnap.DataTo(&o); err != nil {
			return nil, goerr.Wrap(err, "failed to decode obligation", goerr.V("doc_id", docSnap.Ref.ID))
		}
		result = append(result, &o)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *obligationRepository) ListByOwner(ctx context.Context, ownerID model.UserID) ([]*model.Obligation, error) {
	iter := r.client.Collection(r.obligationsCollection()).
		Where("OwnerID", "==", string(ownerID)).
		Documents(ctx)

	result, err := r.collect(iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list obligations", goerr.V("owner_id", ownerID))
	}
	return result, nil
}

func (r *obligationRepository) CountActiveByOwner(ctx context.Context, ownerID model.UserID) (int, error) {
	query := r.client.Collection(r.obligationsCollection()).
		Where("OwnerID", "==", string(ownerID)).
		Where("Status", "==", string(types.ObligationStatusActive))
	aggr := query.NewAggregationQuery().
		WithCount("count")

	res, err := aggr.Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count active obligations", goerr.V("owner_id", ownerID))
	}

	v, ok := res["count"]
	if !ok {
		return 0, goerr.New("count missing from aggregation result", goerr.V("owner_id", ownerID))
	}
	count, ok := v.(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected aggregation value type", goerr.V("value", v))
	}
	return int(count.GetIntegerValue()), nil
}

func (r *obligationRepository) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]*model.DueObligation, error) {
	iter := r.client.Collection(r.obligationsCollection()).
		Where("Status", "==", string(types.ObligationStatusActive)).
		Where("DeadlineAt", "<", cutoff).
		Documents(ctx)

	obligations, err := r.collect(iter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list due obligations", goerr.V("cutoff", cutoff))
	}

	owners := make(map[model.UserID]*model.User)
	result := make([]*model.DueObligation, 0, len(obligations))
	for _, o := range obligations {
		owner, seen := owners[o.OwnerID]
		if !seen {
			owner, err = r.users.find(ctx, o.OwnerID)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to load obligation owner", goerr.V("owner_id", o.OwnerID))
			}
			owners[o.OwnerID] = owner
		}
		if owner == nil {
			continue
		}

		result = append(result, &model.DueObligation{
			Obligation: *o,
			OwnerEmail: owner.Email,
			OwnerName:  owner.Name,
		})
	}

	return result, nil
}

func (r *obligationRepository) TouchLastNotification(ctx context.Context, id model.ObligationID, at time.Time) error {
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: "LastNotificationAt", Value: at.UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "obligation not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to touch last notification", goerr.V("id", id))
	}
	return nil
}
