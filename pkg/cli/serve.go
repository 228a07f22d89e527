package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	httpctrl "github.com/deadline-guardian/guardian/pkg/controller/http"
	"github.com/deadline-guardian/guardian/pkg/service/worker"
	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var cronSecret string
	var scheduler bool
	var interval time.Duration
	var appCfg config.App
	var repoCfg config.Repository
	var authCfg config.Auth
	var dispatchCfg dispatchConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("GUARDIAN_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "cron-secret",
			Usage:       "Bearer secret required by the notification trigger endpoint (open when empty)",
			Category:    "Scheduler",
			Sources:     cli.EnvVars("GUARDIAN_CRON_SECRET", "CRON_SECRET"),
			Destination: &cronSecret,
		},
		&cli.BoolFlag{
			Name:        "scheduler",
			Usage:       "Run notification checks in-process on a fixed interval",
			Category:    "Scheduler",
			Value:       true,
			Sources:     cli.EnvVars("GUARDIAN_SCHEDULER"),
			Destination: &scheduler,
		},
		&cli.DurationFlag{
			Name:        "notify-interval",
			Usage:       "Interval between in-process notification checks",
			Category:    "Scheduler",
			Value:       worker.DefaultNotificationInterval,
			Sources:     cli.EnvVars("GUARDIAN_NOTIFY_INTERVAL"),
			Destination: &interval,
		},
	}

	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, dispatchCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the HTTP API and the notification scheduler",
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

			authUC, err := authCfg.Configure(ctx, repo)
			if err != nil {
				return goerr.Wrap(err, "failed to configure authentication")
			}

			ucOpts, closer, err := dispatchCfg.Configure(ctx, settings)
			if err != nil {
				return err
			}
			defer closer()
			ucOpts = append(ucOpts, usecase.WithAuth(authUC))

			uc := usecase.New(repo, ucOpts...)

			var notificationWorker *worker.NotificationWorker
			if scheduler {
				notificationWorker = worker.NewNotificationWorker(uc.Notification, interval)
				if err := notificationWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start notification worker")
				}
			}

			if cronSecret == "" {
				logger.Warn("cron-secret is not set, the notification trigger endpoint is open")
			}

			httpHandler, err := httpctrl.New(
				httpctrl.WithAuth(authUC),
				httpctrl.WithObligations(uc.Obligation),
				httpctrl.WithNotifier(uc.Notification),
				httpctrl.WithCronSecret(cronSecret),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server",
					"addr", addr,
					"scheduler", scheduler,
					"interval", interval,
					"repository", repoCfg,
					"dispatch", dispatchCfg,
				)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if notificationWorker != nil {
					notificationWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				if notificationWorker != nil {
					notificationWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
