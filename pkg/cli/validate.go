package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

func cmdValidate() *cli.Command {
	var appCfg config.App
	var repoCfg config.Repository
	var checkDB bool

	var flags []cli.Flag
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, &cli.BoolFlag{
		Name:        "check-db",
		Usage:       "Also open the repository and run a notification scan against it",
		Destination: &checkDB,
	})

	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the configuration and optionally the repository",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			settings, err := appCfg.Configure(c)
			if err != nil {
				return goerr.Wrap(err, "configuration validation failed")
			}

			logger.Info("Configuration validation passed",
				"app_url", settings.AppURL,
				"free_tier_limit", settings.FreeTierLimit,
				"mail_from", settings.Sender.From,
			)

			if !checkDB {
				return nil
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logger.Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, usecase.WithAppURL(settings.AppURL))
			eligible, err := uc.Notification.FindObligationsNeedingNotification(ctx, uc.Obligation.Now())
			if err != nil {
				return goerr.Wrap(err, "repository check failed")
			}

			logger.Info("Repository check passed", "pending_reminders", len(eligible))
			return nil
		},
	}
}
