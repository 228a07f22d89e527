package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type notificationRepository struct {
	mu      sync.RWMutex
	records map[model.ObligationID][]*model.NotificationRecord
}

func newNotificationRepository() *notificationRepository {
	return &notificationRepository{
		records: make(map[model.ObligationID][]*model.NotificationRecord),
	}
}

func copyRecord(rec *model.NotificationRecord) *model.NotificationRecord {
	c := *rec
	return &c
}

func (r *notificationRepository) Exists(ctx context.Context, obligationID model.ObligationID, threshold types.Threshold) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records[obligationID] {
		if rec.DaysBeforeDeadline == threshold {
			return true, nil
		}
	}
	return false, nil
}

func (r *notificationRepository) Append(ctx context.Context, record *model.NotificationRecord) (*model.NotificationRecord, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyRecord(record)
	if created.ID == "" {
		created.ID = model.NewNotificationID()
	}
	if created.SentAt.IsZero() {
		created.SentAt = time.Now()
	}
	created.SentAt = created.SentAt.UTC()

	r.records[created.ObligationID] = append(r.records[created.ObligationID], created)
	return copyRecord(created), nil
}

func (r *notificationRepository) ListByObligation(ctx context.Context, obligationID model.ObligationID) ([]*model.NotificationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*model.NotificationRecord, 0, len(r.records[obligationID]))
	for _, rec := range r.records[obligationID] {
		list = append(list, copyRecord(rec))
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].SentAt.Before(list[j].SentAt) })
	return list, nil
}

func (r *notificationRepository) deleteByObligation(obligationID model.ObligationID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, obligationID)
}
