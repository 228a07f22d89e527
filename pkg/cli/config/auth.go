package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// minSecretLength is the HS256 key size in bytes
const minSecretLength = 32

type Auth struct {
	jwtSecret string
	noAuthUID string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HMAC secret for API session tokens (at least 32 bytes)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("GUARDIAN_JWT_SECRET"),
			Destination: &x.jwtSecret,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and act as the given user ID (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("GUARDIAN_NO_AUTH"),
			Destination: &x.noAuthUID,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("jwt-secret.len", len(x.jwtSecret)),
		slog.String("no-auth", x.noAuthUID),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUID != ""
}

// Configure returns the authenticator for the REST API
func (x *Auth) Configure(ctx context.Context, repo interfaces.Repository) (usecase.AuthUseCaseInterface, error) {
	if x.noAuthUID != "" {
		if x.jwtSecret != "" {
			logging.Default().Warn("--no-auth is set, ignoring --jwt-secret")
		}
		logging.Default().Warn("Running in no-auth mode (development only)", "user_id", x.noAuthUID)
		return usecase.NewNoAuthnUseCase(repo, model.UserID(x.noAuthUID)), nil
	}

	return x.TokenIssuer(repo)
}

// TokenIssuer returns the JWT based authenticator, which can also issue tokens
func (x *Auth) TokenIssuer(repo interfaces.Repository) (*usecase.AuthUseCase, error) {
	if x.jwtSecret == "" {
		return nil, goerr.Wrap(ErrMissingOption, "jwt-secret is required unless --no-auth is set",
			goerr.V(OptionKey, "jwt-secret"))
	}
	if len(x.jwtSecret) < minSecretLength {
		return nil, goerr.Wrap(ErrInvalidConfig, "jwt-secret is too short",
			goerr.V(OptionKey, "jwt-secret"), goerr.V("min_length", minSecretLength))
	}
	return usecase.NewAuthUseCase(repo, []byte(x.jwtSecret)), nil
}
