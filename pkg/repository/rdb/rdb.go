// Package rdb stores obligations and notification history in a relational database
// through sqlx. SQLite (modernc.org/sqlite, pure Go) and PostgreSQL (lib/pq) are
// supported; queries are written with '?' placeholders and rebound per driver.
package rdb

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
)

// ErrNotFound is returned (wrapped) when a row does not exist
var ErrNotFound = interfaces.ErrNotFound

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type DB struct {
	db           *sqlx.DB
	dialect      Dialect
	obligation   *obligationRepository
	notification *notificationRepository
	user         *userRepository
}

var _ interfaces.Repository = &DB{}

// NewSQLite opens (or creates) a SQLite database file, enables WAL mode and
// foreign keys, and applies pending migrations.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sqlx.Open(string(DialectSQLite), dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite database", goerr.V("path", path))
	}
	// A single connection serializes writers and keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to enable WAL mode", goerr.V("path", path))
	}

	return open(ctx, db, DialectSQLite)
}

// NewPostgres connects to PostgreSQL with a lib/pq DSN and applies pending migrations
func NewPostgres(ctx context.Context, dsn string) (*DB, error) {
	db, err := sqlx.Open(string(DialectPostgres), dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open postgres database")
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	return open(ctx, db, DialectPostgres)
}

func open(ctx context.Context, db *sqlx.DB, dialect Dialect) (*DB, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to ping database", goerr.V("dialect", dialect))
	}

	if err := migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to run migrations", goerr.V("dialect", dialect))
	}

	return &DB{
		db:           db,
		dialect:      dialect,
		obligation:   &obligationRepository{db: db},
		notification: &notificationRepository{db: db},
		user:         &userRepository{db: db},
	}, nil
}

func (d *DB) Obligation() interfaces.ObligationRepository {
	return d.obligation
}

func (d *DB) Notification() interfaces.NotificationRepository {
	return d.notification
}

func (d *DB) User() interfaces.UserRepository {
	return d.user
}

// SchemaVersion returns the highest applied migration version
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	return currentVersion(ctx, d.db)
}

func (d *DB) Close() error {
	return d.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
