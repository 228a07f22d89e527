package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/service/lock"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
	"github.com/deadline-guardian/guardian/pkg/utils/safe"
)

const (
	LockNone  = "none"
	LockFile  = "file"
	LockRedis = "redis"
)

// Lock configures the lock that keeps notification runs from overlapping
type Lock struct {
	kind          string
	filePath      string
	redisAddr     string
	redisPassword string
	redisDB       int
	redisKey      string
	ttl           time.Duration
}

func (x *Lock) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "lock",
			Usage:       "Notification run lock (none, file, redis)",
			Category:    "Lock",
			Value:       LockNone,
			Sources:     cli.EnvVars("GUARDIAN_LOCK"),
			Destination: &x.kind,
		},
		&cli.StringFlag{
			Name:        "lock-file",
			Usage:       "Lock file path (file lock)",
			Category:    "Lock",
			Value:       "guardian-notify.lock",
			Sources:     cli.EnvVars("GUARDIAN_LOCK_FILE"),
			Destination: &x.filePath,
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (redis lock)",
			Category:    "Lock",
			Sources:     cli.EnvVars("GUARDIAN_REDIS_ADDR"),
			Destination: &x.redisAddr,
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Category:    "Lock",
			Sources:     cli.EnvVars("GUARDIAN_REDIS_PASSWORD"),
			Destination: &x.redisPassword,
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Category:    "Lock",
			Sources:     cli.EnvVars("GUARDIAN_REDIS_DB"),
			Destination: &x.redisDB,
		},
		&cli.StringFlag{
			Name:        "redis-lock-key",
			Usage:       "Redis key of the run lock",
			Category:    "Lock",
			Value:       lock.DefaultRedisKey,
			Sources:     cli.EnvVars("GUARDIAN_REDIS_LOCK_KEY"),
			Destination: &x.redisKey,
		},
		&cli.DurationFlag{
			Name:        "lock-ttl",
			Usage:       "Expiry of the redis lock, longer than the slowest run",
			Category:    "Lock",
			Value:       30 * time.Minute,
			Sources:     cli.EnvVars("GUARDIAN_LOCK_TTL"),
			Destination: &x.ttl,
		},
	}
}

func (x Lock) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", x.kind),
		slog.String("file", x.filePath),
		slog.String("redis_addr", x.redisAddr),
		slog.Duration("ttl", x.ttl),
	)
}

// Configure returns the run lock, or nil when locking is disabled, with a function
// releasing its resources.
func (x *Lock) Configure(ctx context.Context) (interfaces.RunLock, func(), error) {
	logger := logging.Default()
	noop := func() {}

	switch x.kind {
	case LockNone, "":
		return nil, noop, nil

	case LockFile:
		l, err := lock.NewFile(x.filePath)
		if err != nil {
			return nil, noop, goerr.Wrap(err, "failed to configure file lock", goerr.V(OptionKey, "lock-file"))
		}
		logger.Info("Using file run lock", "path", x.filePath)
		return l, noop, nil

	case LockRedis:
		if x.redisAddr == "" {
			return nil, noop, goerr.Wrap(ErrMissingOption, "redis-addr is required when using redis lock",
				goerr.V(OptionKey, "redis-addr"))
		}
		client := redis.NewClient(&redis.Options{
			Addr:     x.redisAddr,
			Password: x.redisPassword,
			DB:       x.redisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			safe.Close(ctx, client)
			return nil, noop, goerr.Wrap(err, "failed to connect to redis", goerr.V("addr", x.redisAddr))
		}
		logger.Info("Using redis run lock", "addr", x.redisAddr, "key", x.redisKey)
		return lock.NewRedis(client, x.redisKey, x.ttl), safe.Closer(client), nil

	default:
		return nil, noop, goerr.Wrap(ErrUnknownBackend, "invalid lock", goerr.V(BackendKey, x.kind))
	}
}
