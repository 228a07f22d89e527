package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/deadline-guardian/guardian/pkg/cli/config"
	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

func withRepository(ctx context.Context, repoCfg *config.Repository, fn func(repo interfaces.Repository) error) error {
	repo, err := repoCfg.Configure(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to initialize repository")
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}()
	return fn(repo)
}

func cmdUser() *cli.Command {
	var repoCfg config.Repository
	var user model.User
	var id, teamID string

	flags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "User ID", Required: true, Destination: &id},
		&cli.StringFlag{Name: "email", Usage: "Email address reminders are sent to", Required: true, Destination: &user.Email},
		&cli.StringFlag{Name: "name", Usage: "Display name", Destination: &user.Name},
		&cli.StringFlag{Name: "team", Usage: "Team ID used for the subscription check", Destination: &teamID},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "user",
		Usage: "Manage obligation owners",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create or replace a user",
				Flags: flags,
				Action: func(ctx context.Context, c *cli.Command) error {
					user.ID = model.UserID(id)
					user.TeamID = model.TeamID(teamID)

					return withRepository(ctx, &repoCfg, func(repo interfaces.Repository) error {
						if err := repo.User().Put(ctx, &user); err != nil {
							return goerr.Wrap(err, "failed to save user", goerr.V("user_id", id))
						}
						logging.Default().Info("User saved", "id", user.ID, "email", user.Email, "team", user.TeamID)
						return nil
					})
				},
			},
		},
	}
}

func cmdTeam() *cli.Command {
	var repoCfg config.Repository
	var team model.Team
	var id, status string

	flags := []cli.Flag{
		&cli.StringFlag{Name: "id", Usage: "Team ID", Required: true, Destination: &id},
		&cli.StringFlag{Name: "name", Usage: "Team name", Destination: &team.Name},
		&cli.StringFlag{Name: "subscription-id", Usage: "Billing subscription ID", Destination: &team.SubscriptionID},
		&cli.StringFlag{
			Name:        "subscription-status",
			Usage:       "Subscription status (active, trialing, past_due, canceled, unpaid)",
			Destination: &status,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "team",
		Usage: "Manage teams and their subscription state",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Create or replace a team",
				Flags: flags,
				Action: func(ctx context.Context, c *cli.Command) error {
					team.ID = model.TeamID(id)
					team.SubscriptionStatus = types.SubscriptionStatus(status)

					return withRepository(ctx, &repoCfg, func(repo interfaces.Repository) error {
						if err := repo.User().PutTeam(ctx, &team); err != nil {
							return goerr.Wrap(err, "failed to save team", goerr.V("team_id", id))
						}
						logging.Default().Info("Team saved",
							"id", team.ID,
							"subscribed", team.HasSubscription(),
						)
						return nil
					})
				},
			},
		},
	}
}

func cmdToken() *cli.Command {
	var repoCfg config.Repository
	var authCfg config.Auth
	var userID string
	var ttl time.Duration

	flags := []cli.Flag{
		&cli.StringFlag{Name: "user", Usage: "User ID the token is issued for", Required: true, Destination: &userID},
		&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 30 * 24 * time.Hour, Destination: &ttl},
	}
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:  "token",
		Usage: "Issue an API session token for a user",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return withRepository(ctx, &repoCfg, func(repo interfaces.Repository) error {
				if _, err := repo.User().Get(ctx, model.UserID(userID)); err != nil {
					return goerr.Wrap(err, "unknown user", goerr.V("user_id", userID))
				}

				issuer, err := authCfg.TokenIssuer(repo)
				if err != nil {
					return err
				}
				token, err := issuer.IssueToken(model.UserID(userID), ttl)
				if err != nil {
					return err
				}

				if _, err := fmt.Fprintln(outputOf(c), token); err != nil {
					return goerr.Wrap(err, "failed to write token")
				}
				return nil
			})
		},
	}
}
