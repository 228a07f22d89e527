package cli

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

const defaultEnvFile = ".env"

func Run(ctx context.Context, args []string, version string) error {
	var loggerCfg config.Logger
	var sentryCfg config.Sentry
	var envFile string
	var closers []func()

	// Flag sources read the environment while parsing, so .env has to be loaded first.
	if err := loadEnvFile(envFileFromArgs(args)); err != nil {
		return err
	}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "env-file",
			Usage:       "Environment file loaded before flags are evaluated (ignored when missing)",
			Value:       defaultEnvFile,
			Destination: &envFile,
		},
	}
	flags = append(flags, loggerCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	app := &cli.Command{
		Name:    "guardian",
		Usage:   "Deadline Guardian reminds owners before their obligations fall due",
		Version: version,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			f, err := loggerCfg.Configure()
			if err != nil {
				return ctx, err
			}
			closers = append(closers, f)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return ctx, err
			}
			closers = append(closers, flush)

			logging.Default().Info("Starting guardian",
				"version", version,
				"logger", loggerCfg,
				"sentry", sentryCfg,
				"env_file", envFile,
			)
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(),
			cmdNotify(),
			cmdMigrate(),
			cmdValidate(),
			cmdUser(),
			cmdTeam(),
			cmdToken(),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run app", "error", err)
		return err
	}

	return nil
}

// envFileFromArgs finds --env-file among the global options, before the subcommand
func envFileFromArgs(args []string) string {
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if value, ok := strings.CutPrefix(name, "env-file="); ok {
			return value
		}
		if name == "env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultEnvFile
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return goerr.Wrap(err, "failed to load env file", goerr.V("path", path))
	}
	return nil
}
