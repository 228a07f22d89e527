package rdb

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
)

type migration struct {
	version int
	sql     map[Dialect][]string
}

// Timestamps are stored as unix milliseconds in both dialects.
var migrations = []migration{
	{
		version: 1,
		sql: map[Dialect][]string{
			DialectSQLite: {
				`CREATE TABLE users (
					id      TEXT PRIMARY KEY,
					email   TEXT NOT NULL,
					name    TEXT NOT NULL DEFAULT '',
					team_id TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE teams (
					id                  TEXT PRIMARY KEY,
					name                TEXT NOT NULL DEFAULT '',
					subscription_id     TEXT NOT NULL DEFAULT '',
					subscription_status TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE obligations (
					id                   INTEGER PRIMARY KEY AUTOINCREMENT,
					owner_id             TEXT NOT NULL,
					team_id              TEXT NOT NULL DEFAULT '',
					title                TEXT NOT NULL,
					category             TEXT NOT NULL,
					deadline_at          INTEGER NOT NULL,
					consequence          TEXT NOT NULL,
					severity             TEXT NOT NULL,
					status               TEXT NOT NULL,
					last_notification_at INTEGER,
					created_at           INTEGER NOT NULL,
					updated_at           INTEGER NOT NULL
				)`,
				`CREATE INDEX idx_obligations_status_deadline ON obligations(status, deadline_at)`,
				`CREATE INDEX idx_obligations_owner ON obligations(owner_id, status)`,
				`CREATE TABLE obligation_notifications (
					id                   TEXT PRIMARY KEY,
					obligation_id        INTEGER NOT NULL REFERENCES obligations(id) ON DELETE CASCADE,
					user_id              TEXT NOT NULL,
					type                 TEXT NOT NULL,
					days_before_deadline INTEGER NOT NULL,
					sent_at              INTEGER NOT NULL,
					success              BOOLEAN NOT NULL,
					error_message        TEXT
				)`,
				`CREATE INDEX idx_notifications_obligation ON obligation_notifications(obligation_id, days_before_deadline)`,
			},
			DialectPostgres: {
				`CREATE TABLE users (
					id      TEXT PRIMARY KEY,
					email   TEXT NOT NULL,
					name    TEXT NOT NULL DEFAULT '',
					team_id TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE teams (
					id                  TEXT PRIMARY KEY,
					name                TEXT NOT NULL DEFAULT '',
					subscription_id     TEXT NOT NULL DEFAULT '',
					subscription_status TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE TABLE obligations (
					id                   BIGSERIAL PRIMARY KEY,
					owner_id             TEXT NOT NULL,
					team_id              TEXT NOT NULL DEFAULT '',
					title                VARCHAR(255) NOT NULL,
					category             TEXT NOT NULL,
					deadline_at          BIGINT NOT NULL,
					consequence          TEXT NOT NULL,
					severity             TEXT NOT NULL,
					status               TEXT NOT NULL,
					last_notification_at BIGINT,
					created_at           BIGINT NOT NULL,
					updated_at           BIGINT NOT NULL
				)`,
				`CREATE INDEX idx_obligations_status_deadline ON obligations(status, deadline_at)`,
				`CREATE INDEX idx_obligations_owner ON obligations(owner_id, status)`,
				`CREATE TABLE obligation_notifications (
					id                   TEXT PRIMARY KEY,
					obligation_id        BIGINT NOT NULL REFERENCES obligations(id) ON DELETE CASCADE,
					user_id              TEXT NOT NULL,
					type                 TEXT NOT NULL,
					days_before_deadline INTEGER NOT NULL,
					sent_at              BIGINT NOT NULL,
					success              BOOLEAN NOT NULL,
					error_message        TEXT
				)`,
				`CREATE INDEX idx_notifications_obligation ON obligation_notifications(obligation_id, days_before_deadline)`,
			},
		},
	},
}

// LatestVersion is the schema version after all migrations are applied
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

func currentVersion(ctx context.Context, db *sqlx.DB) (int, error) {
	var version int
	if err := db.GetContext(ctx, &version, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, goerr.Wrap(err, "failed to read schema version")
	}
	return version, nil
}

// migrate applies outstanding migrations in order, each in its own transaction
func migrate(ctx context.Context, db *sqlx.DB, dialect Dialect) error {
	const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_version (
		version    INTEGER PRIMARY KEY,
		applied_at BIGINT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return goerr.Wrap(err, "failed to create schema_version table")
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		stmts, ok := m.sql[dialect]
		if !ok {
			return goerr.New("migration has no statements for dialect",
				goerr.V("version", m.version),
				goerr.V("dialect", dialect))
		}

		if err := applyMigration(ctx, db, m.version, stmts); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sqlx.DB, version int, stmts []string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin migration", goerr.V("version", version))
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to apply migration", goerr.V("version", version))
		}
	}

	q := tx.Rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)")
	if _, err := tx.ExecContext(ctx, q, version, time.Now().UnixMilli()); err != nil {
		return goerr.Wrap(err, "failed to record schema version", goerr.V("version", version))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit migration", goerr.V("version", version))
	}
	return nil
}
