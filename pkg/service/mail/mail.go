// Package mail delivers reminders by email. Every transport reports the EMAIL
// notification type.
package mail

import (
	"github.com/deadline-guardian/guardian/pkg/domain/model"
	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// Sender is the envelope and subject configuration shared by the mail transports
type Sender struct {
	From          string
	FromName      string
	SubjectPrefix string
}

func (s Sender) subject(msg *model.Message) string {
	if s.SubjectPrefix == "" {
		return msg.Subject
	}
	return s.SubjectPrefix + " " + msg.Subject
}

type emailType struct{}

func (emailType) Type() types.NotificationType {
	return types.NotificationTypeEmail
}
