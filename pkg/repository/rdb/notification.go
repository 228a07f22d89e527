package rdb

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type notificationRepository struct {
	db *sqlx.DB
}

type notificationRow struct {
	ID                 string         `db:"id"`
	ObligationID       int64          `db:"obligation_id"`
	UserID             string         `db:"user_id"`
	Type               string         `db:"type"`
	DaysBeforeDeadline int            `db:"days_before_deadline"`
	SentAt             int64          `db:"sent_at"`
	Success            bool           `db:"success"`
	ErrorMessage       sql.NullString `db:"error_message"`
}

func (row *notificationRow) toModel() *model.NotificationRecord {
	return &model.NotificationRecord{
		ID:                 model.NotificationID(row.ID),
		ObligationID:       model.ObligationID(row.ObligationID),
		UserID:             model.UserID(row.UserID),
		Type:               types.NotificationType(row.Type),
		DaysBeforeDeadline: types.Threshold(row.DaysBeforeDeadline),
		SentAt:             fromMillis(row.SentAt),
		Success:            row.Success,
		ErrorMessage:       row.ErrorMessage.String,
	}
}

func (r *notificationRepository) Exists(ctx context.Context, obligationID model.ObligationID, threshold types.Threshold) (bool, error) {
	var count int
	q := r.db.Rebind(`SELECT COUNT(*) FROM obligation_notifications WHERE obligation_id = ? AND days_before_deadline = ?`)
	if err := r.db.GetContext(ctx, &count, q, int64(obligationID), int(threshold)); err != nil {
		return false, goerr.Wrap(err, "failed to query notification history",
			goerr.V("obligation_id", obligationID),
			goerr.V("threshold", threshold))
	}
	return count > 0, nil
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
	created.SentAt = fromMillis(toMillis(created.SentAt))

	errMsg := sql.NullString{String: created.ErrorMessage, Valid: created.ErrorMessage != ""}

	q := r.db.Rebind(`INSERT INTO obligation_notifications (
			id, obligation_id, user_id, type, days_before_deadline, sent_at, success, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		created.ID.String(), int64(created.ObligationID), created.UserID.String(), created.Type.String(),
		created.DaysBeforeDeadline.Days(), toMillis(created.SentAt), created.Success, errMsg,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to append notification record",
			goerr.V("obligation_id", created.ObligationID),
			goerr.V("threshold", created.DaysBeforeDeadline))
	}
	return &created, nil
}

func (r *notificationRepository) ListByObligation(ctx context.Context, obligationID model.ObligationID) ([]*model.NotificationRecord, error) {
	var rows []notificationRow
	q := r.db.Rebind(`SELECT id, obligation_id, user_id, type, days_before_deadline, sent_at, success, error_message
		FROM obligation_notifications WHERE obligation_id = ? ORDER BY sent_at, id`)
	if err := r.db.SelectContext(ctx, &rows, q, int64(obligationID)); err != nil {
		return nil, goerr.Wrap(err, "failed to list notification records", goerr.V("obligation_id", obligationID))
	}

	result := make([]*model.NotificationRecord, len(rows))
	for i := range rows {
		result[i] = rows[i].toModel()
	}
	return result, nil
}
