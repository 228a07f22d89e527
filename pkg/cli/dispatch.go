package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	"github.com/deadline-guardian/guardian/pkg/usecase"
)

// dispatchConfig gathers what a notification run needs besides storage
type dispatchConfig struct {
	transport   config.Transport
	lock        config.Lock
	archive     config.Archive
	concurrency int
}

func (x *dispatchConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "notify-concurrency",
			Usage:       "Number of reminders delivered in parallel",
			Category:    "Scheduler",
			Value:       4,
			Sources:     cli.EnvVars("GUARDIAN_NOTIFY_CONCURRENCY"),
			Destination: &x.concurrency,
		},
	}
	flags = append(flags, x.transport.Flags()...)
	flags = append(flags, x.lock.Flags()...)
	flags = append(flags, x.archive.Flags()...)
	return flags
}

func (x dispatchConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("concurrency", x.concurrency),
		slog.Any("transport", x.transport),
		slog.Any("lock", x.lock),
		slog.Any("archive", x.archive),
	)
}

// Configure builds the usecase options for transport, lock and archive. The returned
// function releases their resources.
func (x *dispatchConfig) Configure(ctx context.Context, settings *config.Settings) ([]usecase.Option, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []usecase.Option{
		usecase.WithAppURL(settings.AppURL),
		usecase.WithFreeTierLimit(settings.FreeTierLimit),
		usecase.WithConcurrency(x.concurrency),
	}

	transport, err := x.transport.Configure(settings.Sender)
	if err != nil {
		return nil, closeAll, goerr.Wrap(err, "failed to configure transport")
	}
	opts = append(opts, usecase.WithTransport(transport))

	runLock, closer, err := x.lock.Configure(ctx)
	if err != nil {
		return nil, closeAll, goerr.Wrap(err, "failed to configure run lock")
	}
	closers = append(closers, closer)
	if runLock != nil {
		opts = append(opts, usecase.WithRunLock(runLock))
	}

	archiver, closer, err := x.archive.Configure(ctx)
	if err != nil {
		closeAll()
		return nil, func() {}, goerr.Wrap(err, "failed to configure archive")
	}
	closers = append(closers, closer)
	if archiver != nil {
		opts = append(opts, usecase.WithArchiver(archiver))
	}

	return opts, closeAll, nil
}
