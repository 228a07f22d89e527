package rdb

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type obligationRepository struct {
	db *sqlx.DB
}

type obligationRow struct {
	ID                 int64         `db:"id"`
	OwnerID            string        `db:"owner_id"`
	TeamID             string        `db:"team_id"`
	Title              string        `db:"title"`
	Category           string        `db:"category"`
	DeadlineAt         int64         `db:"deadline_at"`
	Consequence        string        `db:"consequence"`
	Severity           string        `db:"severity"`
	Status             string        `db:"status"`
	LastNotificationAt sql.NullInt64 `db:"last_notification_at"`
	CreatedAt          int64         `db:"created_at"`
	UpdatedAt          int64         `db:"updated_at"`
}

type dueRow struct {
	obligationRow
	OwnerEmail string `db:"owner_email"`
	OwnerName  string `db:"owner_name"`
}

const obligationColumns = `o.id, o.owner_id, o.team_id, o.title, o.category, o.deadline_at,
	o.consequence, o.severity, o.status, o.last_notification_at, o.created_at, o.updated_at`

func (row *obligationRow) toModel() *model.Obligation {
	o := &model.Obligation{
		ID:          model.ObligationID(row.ID),
		OwnerID:     model.UserID(row.OwnerID),
		TeamID:      model.TeamID(row.TeamID),
		Title:       row.Title,
		Category:    types.Category(row.Category),
		DeadlineAt:  fromMillis(row.DeadlineAt),
		Consequence: row.Consequence,
		Severity:    types.Severity(row.Severity),
		Status:      types.ObligationStatus(row.Status),
		CreatedAt:   fromMillis(row.CreatedAt),
		UpdatedAt:   fromMillis(row.UpdatedAt),
	}
	if row.LastNotificationAt.Valid {
		t := fromMillis(row.LastNotificationAt.Int64)
		o.LastNotificationAt = &t
	}
	return o
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func (r *obligationRepository) Create(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	created := *obligation
	created.CreatedAt = now
	created.UpdatedAt = now

	q := r.db.Rebind(`INSERT INTO obligations (
			owner_id, team_id, title, category, deadline_at, consequence,
			severity, status, last_notification_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, q,
		string(created.OwnerID), string(created.TeamID), created.Title, string(created.Category),
		toMillis(created.DeadlineAt), created.Consequence, string(created.Severity), string(created.Status),
		nullMillis(created.LastNotificationAt), toMillis(now), toMillis(now),
	).Scan(&id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert obligation", goerr.V("owner_id", created.OwnerID))
	}

	created.ID = model.ObligationID(id)
	created.DeadlineAt = fromMillis(toMillis(created.DeadlineAt))
	return &created, nil
}

func (r *obligationRepository) Get(ctx context.Context, id model.ObligationID) (*model.Obligation, error) {
	var row obligationRow
	q := r.db.Rebind(`SELECT ` + obligationColumns + ` FROM obligations o WHERE o.id = ?`)
	if err := r.db.GetContext(ctx, &row, q, int64(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "obligation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get obligation", goerr.V("id", id))
	}
	return row.toModel(), nil
}

func (r *obligationRepository) Update(ctx context.Context, obligation *model.Obligation) (*model.Obligation, error) {
	existing, err := r.Get(ctx, obligation.ID)
	if err != nil {
		return nil, err
	}

	updated := *obligation
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	q := r.db.Rebind(`UPDATE obligations SET
			owner_id = ?, team_id = ?, title = ?, category = ?, deadline_at = ?, consequence = ?,
			severity = ?, status = ?, last_notification_at = ?, updated_at = ?
		WHERE id = ?`)
	_, err = r.db.ExecContext(ctx, q,
		string(updated.OwnerID), string(updated.TeamID), updated.Title, string(updated.Category),
		toMillis(updated.DeadlineAt), updated.Consequence, string(updated.Severity), string(updated.Status),
		nullMillis(updated.LastNotificationAt), toMillis(updated.UpdatedAt), int64(updated.ID),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update obligation", goerr.V("id", obligation.ID))
	}

	return &updated, nil
}

func (r *obligationRepository) Delete(ctx context.Context, id model.ObligationID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM obligations WHERE id = ?`), int64(id))
	if err != nil {
		return goerr.Wrap(err, "failed to delete obligation", goerr.V("id", id))
	}
	return requireAffected(res, "obligation not found", id)
}

func (r *obligationRepository) ListByOwner(ctx context.Context, ownerID model.UserID) ([]*model.Obligation, error) {
	var rows []obligationRow
	q := r.db.Rebind(`SELECT ` + obligationColumns + ` FROM obligations o WHERE o.owner_id = ? ORDER BY o.id`)
	if err := r.db.SelectContext(ctx, &rows, q, string(ownerID)); err != nil {
		return nil, goerr.Wrap(err, "failed to list obligations", goerr.V("owner_id", ownerID))
	}

	result := make([]*model.Obligation, len(rows))
	for i := range rows {
		result[i] = rows[i].toModel()
	}
	return result, nil
}

func (r *obligationRepository) CountActiveByOwner(ctx context.Context, ownerID model.UserID) (int, error) {
	var count int
	q := r.db.Rebind(`SELECT COUNT(*) FROM obligations WHERE owner_id = ? AND status = ?`)
	if err := r.db.GetContext(ctx, &count, q, string(ownerID), string(types.ObligationStatusActive)); err != nil {
		return 0, goerr.Wrap(err, "failed to count active obligations", goerr.V("owner_id", ownerID))
	}
	return count, nil
}

func (r *obligationRepository) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]*model.DueObligation, error) {
	var rows []dueRow
	q := r.db.Rebind(`SELECT ` + obligationColumns + `, u.email AS owner_email, u.name AS owner_name
		FROM obligations o
		INNER JOIN users u ON u.id = o.owner_id
		WHERE o.status = ? AND o.deadline_at < ?
		ORDER BY o.id`)
	if err := r.db.SelectContext(ctx, &rows, q, string(types.ObligationStatusActive), toMillis(cutoff)); err != nil {
		return nil, goerr.Wrap(err, "failed to list due obligations", goerr.V("cutoff", cutoff))
	}

	result := make([]*model.DueObligation, len(rows))
	for i := range rows {
		result[i] = &model.DueObligation{
			Obligation: *rows[i].toModel(),
			OwnerEmail: rows[i].OwnerEmail,
			OwnerName:  rows[i].OwnerName,
		}
	}
	return result, nil
}

func (r *obligationRepository) TouchLastNotification(ctx context.Context, id model.ObligationID, at time.Time) error {
	q := r.db.Rebind(`UPDATE obligations SET last_notification_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, toMillis(at), int64(id))
	if err != nil {
		return goerr.Wrap(err, "failed to touch last notification", goerr.V("id", id))
	}
	return requireAffected(res, "obligation not found", id)
}

func requireAffected(res sql.Result, msg string, id model.ObligationID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to read affected rows", goerr.V("id", id))
	}
	if n == 0 {
		return goerr.Wrap(ErrNotFound, msg, goerr.V("id", id))
	}
	return nil
}
