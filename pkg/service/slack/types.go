package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service is the part of the Slack Web API used to deliver reminders
type Service interface {
	// LookupUserByEmail resolves a workspace member from their email address
	LookupUserByEmail(ctx context.Context, email string) (*User, error)

	// PostMessage posts a Block Kit message to a channel (a user id opens a DM) and
	// returns the message timestamp. text is the notification fallback.
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error)
}

// User represents a Slack user
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}
