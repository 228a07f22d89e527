package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/repository/firestore"
	"github.com/deadline-guardian/guardian/pkg/repository/memory"
	"github.com/deadline-guardian/guardian/pkg/repository/rdb"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
	BackendPostgres  = "postgres"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend     string
	projectID   string
	databaseID  string
	sqlitePath  string
	postgresDSN string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (memory, sqlite, postgres or firestore)",
			Category:    "Repository",
			Value:       BackendSQLite,
			Sources:     cli.EnvVars("GUARDIAN_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file (sqlite backend)",
			Category:    "Repository",
			Value:       "guardian.db",
			Sources:     cli.EnvVars("GUARDIAN_SQLITE_PATH"),
			Destination: &r.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string (postgres backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("GUARDIAN_POSTGRES_DSN", "DATABASE_URL"),
			Destination: &r.postgresDSN,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("GUARDIAN_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Value:       "(default)",
			Sources:     cli.EnvVars("GUARDIAN_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("sqlite_path", r.sqlitePath),
		slog.Int("postgres_dsn.len", len(r.postgresDSN)),
		slog.String("firestore_project_id", r.projectID),
		slog.String("firestore_database_id", r.databaseID),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// Configure initializes and returns a repository based on the configured backend.
// SQL backends are migrated to the latest schema while opening.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	logger := logging.Default()

	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingOption, "firestore-project-id is required when using firestore backend",
				goerr.V(OptionKey, "firestore-project-id"))
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logger.Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendSQLite:
		if r.sqlitePath == "" {
			return nil, goerr.Wrap(ErrMissingOption, "sqlite-path is required when using sqlite backend",
				goerr.V(OptionKey, "sqlite-path"))
		}
		repo, err := rdb.NewSQLite(ctx, r.sqlitePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize sqlite repository")
		}
		logger.Info("Using SQLite repository", "path", r.sqlitePath)
		return repo, nil

	case BackendPostgres:
		if r.postgresDSN == "" {
			return nil, goerr.Wrap(ErrMissingOption, "postgres-dsn is required when using postgres backend",
				goerr.V(OptionKey, "postgres-dsn"))
		}
		repo, err := rdb.NewPostgres(ctx, r.postgresDSN)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize postgres repository")
		}
		logger.Info("Using PostgreSQL repository")
		return repo, nil

	case BackendMemory:
		logger.Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid repository backend", goerr.V(BackendKey, r.backend))
	}
}
