package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/utils/logging"
	"github.com/deadline-guardian/guardian/pkg/utils/safe"
)

type Logger struct {
	level  string
	format string
	output string
}

func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("GUARDIAN_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Category:    "Logging",
			Value:       "console",
			Sources:     cli.EnvVars("GUARDIAN_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output (stdout, stderr, or a file path)",
			Category:    "Logging",
			Value:       "stdout",
			Sources:     cli.EnvVars("GUARDIAN_LOG_OUTPUT"),
			Destination: &x.output,
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Configure installs the default logger and returns a function that releases the
// log output.
func (x *Logger) Configure() (func(), error) {
	closer := func() {}

	level, ok := logLevels[strings.ToLower(x.level)]
	if !ok {
		return closer, goerr.Wrap(ErrInvalidConfig, "invalid log level", goerr.V(OptionKey, "log-level"), goerr.V("value", x.level))
	}

	var format logging.Format
	switch x.format {
	case "console", "":
		format = logging.FormatText
	case "json":
		format = logging.FormatJSON
	default:
		return closer, goerr.Wrap(ErrInvalidConfig, "invalid log format", goerr.V(OptionKey, "log-format"), goerr.V("value", x.format))
	}

	var w io.Writer
	color := false
	switch x.output {
	case "stdout", "-", "":
		w = os.Stdout
		color = isTerminal(os.Stdout)
	case "stderr":
		w = os.Stderr
		color = isTerminal(os.Stderr)
	default:
		// #nosec G304 - path is provided by the operator
		f, err := os.OpenFile(x.output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return closer, goerr.Wrap(err, "failed to open log file", goerr.V("path", x.output))
		}
		w = f
		closer = safe.Closer(f)
	}

	logging.SetDefault(logging.New(w, level, format, color))
	return closer, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
