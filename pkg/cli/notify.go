package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

func cmdNotify() *cli.Command {
	var dryRun bool
	var appCfg config.App
	var repoCfg config.Repository
	var dispatchCfg dispatchConfig

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "List the reminders that would be sent without sending or recording them",
			Destination: &dryRun,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, dispatchCfg.Flags()...)

	return &cli.Command{
		Name:    "notify",
		Aliases: []string{"n"},
		Usage:   "Run one notification check and exit",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			settings, err := appCfg.Configure(c)
			if err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
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

			if dryRun {
				uc := usecase.New(repo, usecase.WithAppURL(settings.AppURL))
				eligible, err := uc.Notification.FindObligationsNeedingNotification(ctx, uc.Obligation.Now())
				if err != nil {
					return err
				}
				return printEligible(outputOf(c), eligible)
			}

			ucOpts, closer, err := dispatchCfg.Configure(ctx, settings)
			if err != nil {
				return err
			}
			defer closer()

			uc := usecase.New(repo, ucOpts...)
			result, err := uc.Notification.ProcessNotifications(ctx)
			if err != nil {
				return goerr.Wrap(err, "notification run failed")
			}

			logger.Info("Notification run completed",
				"sent", result.Sent,
				"failed", result.Failed,
				"skipped", result.Skipped,
			)
			return nil
		},
	}
}

func outputOf(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

var severityColors = map[types.Severity]*color.Color{
	types.SeverityCritical: color.New(color.FgRed, color.Bold),
	types.SeverityHigh:     color.New(color.FgRed),
	types.SeverityMedium:   color.New(color.FgYellow),
	types.SeverityLow:      color.New(color.FgGreen),
}

func printEligible(w io.Writer, eligible []*model.EligibleObligation) error {
	header := color.New(color.Bold)

	if len(eligible) == 0 {
		if _, err := header.Fprintln(w, "No reminders are due."); err != nil {
			return goerr.Wrap(err, "failed to write dry-run output")
		}
		return nil
	}

	if _, err := header.Fprintf(w, "%d reminder(s) would be sent:\n", len(eligible)); err != nil {
		return goerr.Wrap(err, "failed to write dry-run output")
	}

	for _, e := range eligible {
		sev, ok := severityColors[e.Severity]
		if !ok {
			sev = color.New(color.Reset)
		}
		subject := model.ReminderSubject(e.Title, e.DaysUntilDeadline)
		_, err := fmt.Fprintf(w, "  #%d %s %s to %s (%s, %d-day reminder)\n",
			e.ID,
			sev.Sprintf("[%s]", e.Severity),
			subject,
			e.OwnerEmail,
			e.DeadlineAt.UTC().Format("2006-01-02 15:04 MST"),
			e.NotificationThreshold,
		)
		if err != nil {
			return goerr.Wrap(err, "failed to write dry-run output")
		}
	}
	return nil
}
