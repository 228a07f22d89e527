package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// Slack caps section text at 3000 characters
const maxSectionText = 3000

// Transport delivers reminders as direct messages to the Slack member whose email
// matches the recipient address.
type Transport struct {
	svc Service
}

var _ interfaces.Transport = &Transport{}

func NewTransport(svc Service) *Transport {
	return &Transport{svc: svc}
}

func (t *Transport) Type() types.NotificationType {
	return types.NotificationTypeSlack
}

func (t *Transport) Deliver(ctx context.Context, msg *model.Message) error {
	user, err := t.svc.LookupUserByEmail(ctx, msg.To)
	if err != nil {
		return goerr.Wrap(err, "recipient is not reachable on Slack", goerr.V("to", msg.To))
	}

	if _, err := t.svc.PostMessage(ctx, user.ID, buildBlocks(msg), msg.Subject); err != nil {
		return goerr.Wrap(err, "failed to send Slack reminder", goerr.V("to", msg.To), goerr.V("slack_user", user.ID))
	}
	return nil
}

func buildBlocks(msg *model.Message) []slack.Block {
	body := msg.Text
	if runes := []rune(body); len(runes) > maxSectionText {
		body = string(runes[:maxSectionText])
	}

	return []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, msg.Subject, true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.PlainTextType, body, false, false), nil, nil),
	}
}
