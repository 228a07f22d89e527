package rdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

type userRepository struct {
	db *sqlx.DB
}

type userRow struct {
	ID     string `db:"id"`
	Email  string `db:"email"`
	Name   string `db:"name"`
	TeamID string `db:"team_id"`
}

type teamRow struct {
	ID                 string `db:"id"`
	Name               string `db:"name"`
	SubscriptionID     string `db:"subscription_id"`
	SubscriptionStatus string `db:"subscription_status"`
}

func (r *userRepository) Put(ctx context.Context, user *model.User) error {
	q := r.db.Rebind(`INSERT INTO users (id, email, name, team_id) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, name = excluded.name, team_id = excluded.team_id`)
	if _, err := r.db.ExecContext(ctx, q, user.ID.String(), user.Email, user.Name, string(user.TeamID)); err != nil {
		return goerr.Wrap(err, "failed to put user", goerr.V("id", user.ID))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id model.UserID) (*model.User, error) {
	var row userRow
	q := r.db.Rebind(`SELECT id, email, name, team_id FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, q, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}

	return &model.User{
		ID:     model.UserID(row.ID),
		Email:  row.Email,
		Name:   row.Name,
		TeamID: model.TeamID(row.TeamID),
	}, nil
}

func (r *userRepository) PutTeam(ctx context.Context, team *model.Team) error {
	q := r.db.Rebind(`INSERT INTO teams (id, name, subscription_id, subscription_status) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, subscription_id = excluded.subscription_id,
			subscription_status = excluded.subscription_status`)
	_, err := r.db.ExecContext(ctx, q, string(team.ID), team.Name, team.SubscriptionID, string(team.SubscriptionStatus))
	if err != nil {
		return goerr.Wrap(err, "failed to put team", goerr.V("id", team.ID))
	}
	return nil
}

func (r *userRepository) GetTeam(ctx context.Context, id model.TeamID) (*model.Team, error) {
	var row teamRow
	q := r.db.Rebind(`SELECT id, name, subscription_id, subscription_status FROM teams WHERE id = ?`)
	if err := r.db.GetContext(ctx, &row, q, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(ErrNotFound, "team not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get team", goerr.V("id", id))
	}

	return &model.Team{
		ID:                 model.TeamID(row.ID),
		Name:               row.Name,
		SubscriptionID:     row.SubscriptionID,
		SubscriptionStatus: types.SubscriptionStatus(row.SubscriptionStatus),
	}, nil
}
