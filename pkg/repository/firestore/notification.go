package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// Records live in a subcollection of their obligation:
// {prefix_}obligations/{obligationID}/notifications/{recordID}
type notificationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newNotificationRepository(client *firestore.Client) *notificationRepository {
	return &notificationRepository{client: client}
}

func (r *notificationRepository) recordsCollection(obligationID model.ObligationID) *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "obligations")).
		Doc(fmt.Sprintf("%d", obligationID)).
		Collection("notifications")
}

func (r *notificationRepository) Exists(ctx context.Context, obligationID model.ObligationID, threshold types.Threshold) (bool, error) {
	iter := r.recordsCollection(obligationID).
		Where("DaysBeforeDeadline", "==", int(threshold)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to query notification history",
			goerr.V("obligation_id", obligationID),
			goerr.V("threshold", threshold))
	}
	return true, nil
}

func (r *notificationRepository) Append(ctx context.Context, record *model.NotificationRecord) (*model.NotificationRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	created := *record
	if created.ID == "" {
		created.ID = model.NewNotificationID()
	}
	if created.SentAt.IsZero() {
		created.SentAt = time.Now()
	}
	created.SentAt = created.SentAt.UTC()

	_, err := r.recordsCollection(created.ObligationID).Doc(created.ID.String()).Create(ctx, &created)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to append notification record",
			goerr.V("obligation_id", created.ObligationID),
			goerr.V("id", created.ID))
	}
	return &created, nil
}

func (r *notificationRepository) ListByObligation(ctx context.Context, obligationID model.ObligationID) ([]*model.NotificationRecord, error) {
	iter := r.recordsCollection(obligationID).
		OrderBy("SentAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	records := make([]*model.NotificationRecord, 0)
	for {
		docSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate notification records", goerr.V("obligation_id", obligationID))
		}

		var rec model.NotificationRecord
		if err := docSnap.DataTo(&rec); err != nil {
			return nil, goerr.Wrap(err, "failed to decode notification record", goerr.V("doc_id", docSnap.Ref.ID))
		}
		records = append(records, &rec)
	}

	return records, nil
}

func (r *notificationRepository) deleteByObligation(ctx context.Context, obligationID model.ObligationID) error {
	iter := r.recordsCollection(obligationID).Documents(ctx)
	defer iter.Stop()

	bulkWriter := r.client.BulkWriter(ctx)

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bulkWriter.End()
			return goerr.Wrap(err, "failed to iterate notification records for deletion", goerr.V("obligation_id", obligationID))
		}

		if _, err := bulkWriter.Delete(doc.Ref); err != nil {
			bulkWriter.End()
			return goerr.Wrap(err, "failed to delete notification record", goerr.V("obligation_id", obligationID))
		}
	}

	bulkWriter.End()
	return nil
}
