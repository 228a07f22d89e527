package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	"github.com/deadline-guardian/guardian/pkg/repository/rdb"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

type schemaVersioner interface {
	SchemaVersion(ctx context.Context) (int, error)
}

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview Firestore index changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Apply SQL schema migrations or Firestore indexes",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			if repoCfg.Backend() == config.BackendFirestore {
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), dryRun)
			}

			// SQL backends migrate while opening
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to migrate repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			if v, ok := repo.(schemaVersioner); ok {
				version, err := v.SchemaVersion(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to read schema version")
				}
				if latest := rdb.LatestVersion(); version != latest {
					return goerr.New("schema version does not match this build",
						goerr.V("version", version), goerr.V("latest", latest))
				}
				logger.Info("Schema is up to date", "version", version)
				return nil
			}

			logger.Info("Backend has no schema to migrate", "backend", repoCfg.Backend())
			return nil
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()

	if projectID == "" {
		return goerr.Wrap(config.ErrMissingOption, "firestore-project-id is required",
			goerr.V(config.OptionKey, "firestore-project-id"))
	}

	indexConfig := getIndexConfig()

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

// getIndexConfig returns the composite indexes the Firestore queries depend on
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "obligations",
				Indexes: []fireconf.Index{
					// ListActiveDueBefore: Status ==, DeadlineAt <
					{
						Fields: []fireconf.IndexField{
							{Path: "Status", Order: fireconf.OrderAscending},
							{Path: "DeadlineAt", Order: fireconf.OrderAscending},
						},
					},
					// CountActiveByOwner
					{
						Fields: []fireconf.IndexField{
							{Path: "OwnerID", Order: fireconf.OrderAscending},
							{Path: "Status", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
