package config

import (
	"io"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/service/mail"
	"github.com/deadline-guardian/guardian/pkg/service/slack"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

const (
	TransportConsole  = "console"
	TransportSMTP     = "smtp"
	TransportSendGrid = "sendgrid"
	TransportSlack    = "slack"
)

// Transport selects and configures the channel reminders are delivered through
type Transport struct {
	kind           string
	smtp           mail.SMTPConfig
	sendGridAPIKey string
	slackBotToken  string
	consoleOut     io.Writer
}

func (x *Transport) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "transport",
			Usage:       "Reminder transport (console, smtp, sendgrid, slack)",
			Category:    "Transport",
			Value:       TransportConsole,
			Sources:     cli.EnvVars("GUARDIAN_TRANSPORT"),
			Destination: &x.kind,
		},
		&cli.StringFlag{
			Name:        "smtp-host",
			Usage:       "SMTP server host",
			Category:    "Transport",
			Sources:     cli.EnvVars("GUARDIAN_SMTP_HOST"),
			Destination: &x.smtp.Host,
		},
		&cli.IntFlag{
			Name:        "smtp-port",
			Usage:       "SMTP submission port",
			Category:    "Transport",
			Value:       587,
			Sources:     cli.EnvVars("GUARDIAN_SMTP_PORT"),
			Destination: &x.smtp.Port,
		},
		&cli.StringFlag{
			Name:        "smtp-username",
			Usage:       "SMTP username (PLAIN auth is skipped when empty)",
			Category:    "Transport",
			Sources:     cli.EnvVars("GUARDIAN_SMTP_USERNAME"),
			Destination: &x.smtp.Username,
		},
		&cli.StringFlag{
			Name:        "smtp-password",
			Usage:       "SMTP password",
			Category:    "Transport",
			Sources:     cli.EnvVars("GUARDIAN_SMTP_PASSWORD"),
			Destination: &x.smtp.Password,
		},
		&cli.StringFlag{
			Name:        "sendgrid-api-key",
			Usage:       "SendGrid API key",
			Category:    "Transport",
			Sources:     cli.EnvVars("GUARDIAN_SENDGRID_API_KEY", "SENDGRID_API_KEY"),
			Destination: &x.sendGridAPIKey,
		},
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token for direct message reminders",
			Category:    "Transport",
			Sources:     cli.EnvVars("GUARDIAN_SLACK_BOT_TOKEN"),
			Destination: &x.slackBotToken,
		},
	}
}

func (x Transport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", x.kind),
		slog.String("smtp_host", x.smtp.Host),
		slog.Int("smtp_port", x.smtp.Port),
		slog.Int("sendgrid_api_key.len", len(x.sendGridAPIKey)),
		slog.Int("slack_bot_token.len", len(x.slackBotToken)),
	)
}

// Kind returns the selected transport name
func (x *Transport) Kind() string {
	return x.kind
}

// Configure builds the selected transport. sender is used by the email transports.
func (x *Transport) Configure(sender mail.Sender) (interfaces.Transport, error) {
	logger := logging.Default()

	switch x.kind {
	case TransportConsole, "":
		logger.Warn("Using console transport, reminders are printed instead of sent")
		return mail.NewConsole(x.consoleOut, sender), nil

	case TransportSMTP:
		t, err := mail.NewSMTP(x.smtp, sender)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure SMTP transport", goerr.V(OptionKey, "smtp-host"))
		}
		logger.Info("Using SMTP transport", "host", x.smtp.Host, "port", x.smtp.Port)
		return t, nil

	case TransportSendGrid:
		t, err := mail.NewSendGrid(x.sendGridAPIKey, sender)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to configure SendGrid transport", goerr.V(OptionKey, "sendgrid-api-key"))
		}
		logger.Info("Using SendGrid transport")
		return t, nil

	case TransportSlack:
		if x.slackBotToken == "" {
			return nil, goerr.Wrap(ErrMissingOption, "slack-bot-token is required when using slack transport",
				goerr.V(OptionKey, "slack-bot-token"))
		}
		svc, err := slack.New(x.slackBotToken)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize slack service")
		}
		logger.Info("Using Slack transport")
		return slack.NewTransport(svc), nil

	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid transport", goerr.V(BackendKey, x.kind))
	}
}
