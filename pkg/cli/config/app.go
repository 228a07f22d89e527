package config

import (
	"errors"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/service/mail"
	"github.com/deadline-guardian/guardian/pkg/usecase"
)

// DefaultMailFrom is the sender address used when none is configured
const DefaultMailFrom = "notifications@deadline-guardian.local"

// AppFile is the optional TOML application file
type AppFile struct {
	AppURL        string   `toml:"app_url" validate:"omitempty,http_url"`
	FreeTierLimit *int     `toml:"free_tier_limit" validate:"omitempty,min=0"`
	Mail          MailFile `toml:"mail"`
}

// MailFile is the [mail] table of the application file
type MailFile struct {
	From          string `toml:"from" validate:"omitempty,email"`
	FromName      string `toml:"from_name" validate:"max=100"`
	SubjectPrefix string `toml:"subject_prefix" validate:"max=50"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the file and reports the first invalid field
func (f *AppFile) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return goerr.Wrap(ErrInvalidConfig, "invalid application setting",
			goerr.V(FieldKey, verrs[0].Namespace()),
			goerr.V("rule", verrs[0].Tag()),
		)
	}
	return goerr.Wrap(err, "failed to validate application file")
}

// LoadAppFile reads and validates the TOML application file at path
func LoadAppFile(path string) (*AppFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var file AppFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}

	if err := file.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// App holds application wide settings. Flags override values from the TOML file.
type App struct {
	configPath    string
	appURL        string
	freeTierLimit int
	mailFrom      string
	mailFromName  string
	subjectPrefix string
}

// Settings is the resolved application configuration
type Settings struct {
	AppURL        string
	FreeTierLimit int
	Sender        mail.Sender
}

func (x *App) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML application file",
			Category:    "Application",
			Sources:     cli.EnvVars("GUARDIAN_CONFIG"),
			Destination: &x.configPath,
		},
		&cli.StringFlag{
			Name:        "app-url",
			Usage:       "Public URL of the application, used for links in reminders",
			Category:    "Application",
			Sources:     cli.EnvVars("GUARDIAN_APP_URL", "APP_URL"),
			Destination: &x.appURL,
		},
		&cli.IntFlag{
			Name:        "free-tier-limit",
			Usage:       "Number of ACTIVE obligations allowed without a subscription",
			Category:    "Application",
			Value:       usecase.DefaultFreeTierLimit,
			Sources:     cli.EnvVars("GUARDIAN_FREE_TIER_LIMIT"),
			Destination: &x.freeTierLimit,
		},
		&cli.StringFlag{
			Name:        "mail-from",
			Usage:       "Sender address of reminder emails",
			Category:    "Application",
			Sources:     cli.EnvVars("GUARDIAN_MAIL_FROM"),
			Destination: &x.mailFrom,
		},
		&cli.StringFlag{
			Name:        "mail-from-name",
			Usage:       "Sender display name of reminder emails",
			Category:    "Application",
			Sources:     cli.EnvVars("GUARDIAN_MAIL_FROM_NAME"),
			Destination: &x.mailFromName,
		},
		&cli.StringFlag{
			Name:        "mail-subject-prefix",
			Usage:       "Prefix added to every reminder subject",
			Category:    "Application",
			Sources:     cli.EnvVars("GUARDIAN_MAIL_SUBJECT_PREFIX"),
			Destination: &x.subjectPrefix,
		},
	}
}

// Configure merges the application file with the flags. c reports which flags were
// set explicitly; a nil c treats every non-zero flag value as set.
func (x *App) Configure(c *cli.Command) (*Settings, error) {
	settings := &Settings{
		AppURL:        model.DefaultAppURL,
		FreeTierLimit: usecase.DefaultFreeTierLimit,
		Sender: mail.Sender{
			From:     DefaultMailFrom,
			FromName: "Deadline Guardian",
		},
	}

	if x.configPath != "" {
		file, err := LoadAppFile(x.configPath)
		if err != nil {
			return nil, err
		}
		if file.AppURL != "" {
			settings.AppURL = file.AppURL
		}
		if file.FreeTierLimit != nil {
			settings.FreeTierLimit = *file.FreeTierLimit
		}
		if file.Mail.From != "" {
			settings.Sender.From = file.Mail.From
		}
		if file.Mail.FromName != "" {
			settings.Sender.FromName = file.Mail.FromName
		}
		settings.Sender.SubjectPrefix = file.Mail.SubjectPrefix
	}

	isSet := func(name string, nonZero bool) bool {
		if c == nil {
			return nonZero
		}
		return c.IsSet(name)
	}

	if isSet("app-url", x.appURL != "") {
		settings.AppURL = x.appURL
	}
	if isSet("free-tier-limit", x.freeTierLimit != usecase.DefaultFreeTierLimit) {
		settings.FreeTierLimit = x.freeTierLimit
	}
	if isSet("mail-from", x.mailFrom != "") {
		settings.Sender.From = x.mailFrom
	}
	if isSet("mail-from-name", x.mailFromName != "") {
		settings.Sender.FromName = x.mailFromName
	}
	if isSet("mail-subject-prefix", x.subjectPrefix != "") {
		settings.Sender.SubjectPrefix = x.subjectPrefix
	}

	if settings.FreeTierLimit < 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "free tier limit must not be negative", goerr.V(OptionKey, "free-tier-limit"))
	}

	return settings, nil
}
