package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/service/archive"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
	"github.com/deadline-guardian/guardian/pkg/utils/safe"
)

// Archive configures the Cloud Storage copy of delivered reminders
type Archive struct {
	bucket string
	prefix string
}

func (x *Archive) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket for delivered reminders (disabled when empty)",
			Category:    "Archive",
			Sources:     cli.EnvVars("GUARDIAN_ARCHIVE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "archive-prefix",
			Usage:       "Object name prefix in the archive bucket",
			Category:    "Archive",
			Value:       "reminders",
			Sources:     cli.EnvVars("GUARDIAN_ARCHIVE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

func (x Archive) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// Configure returns nil when no bucket is set
func (x *Archive) Configure(ctx context.Context) (interfaces.Archiver, func(), error) {
	if x.bucket == "" {
		return nil, func() {}, nil
	}

	a, err := archive.NewGCS(ctx, x.bucket, x.prefix)
	if err != nil {
		return nil, func() {}, goerr.Wrap(err, "failed to configure archive", goerr.V("bucket", x.bucket))
	}
	logging.Default().Info("Archiving delivered reminders", "bucket", x.bucket, "prefix", x.prefix)
	return a, safe.Closer(a), nil
}
