package mail

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

const (
	DefaultSendGridHost = "https://api.sendgrid.com"
	sendGridEndpoint    = "/v3/mail/send"
)

// SendGrid delivers reminders through the SendGrid v3 mail send API
type SendGrid struct {
	emailType
	key    string
	host   string
	sender Sender
}

var _ interfaces.Transport = &SendGrid{}

type SendGridOption func(*SendGrid)

// WithSendGridHost overrides the API host, e.g. for a test server
func WithSendGridHost(host string) SendGridOption {
	return func(s *SendGrid) {
		s.host = host
	}
}

func NewSendGrid(key string, sender Sender, opts ...SendGridOption) (*SendGrid, error) {
	if key == "" {
		return nil, goerr.New("SendGrid API key is required")
	}
	if sender.From == "" {
		return nil, goerr.New("sender address is required")
	}

	s := &SendGrid{key: key, host: DefaultSendGridHost, sender: sender}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SendGrid) prepare(msg *model.Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.sender.subject(msg)
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(s.sender.FromName, s.sender.From))
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.Text),
		sgmail.NewContent("text/html", msg.HTML),
	)
	return m
}

func (s *SendGrid) Deliver(ctx context.Context, msg *model.Message) error {
	req := sendgrid.GetRequest(s.key, sendGridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call SendGrid", goerr.V("to", msg.To))
	}
	if res.StatusCode >= http.StatusBadRequest {
		return goerr.New("SendGrid rejected the message",
			goerr.V("to", msg.To),
			goerr.V("status", res.StatusCode),
			goerr.V("body", res.Body))
	}
	return nil
}
