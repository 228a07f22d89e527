package mail

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/interfaces"
	"github.com/deadline-guardian/guardian/pkg/domain/model"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string `masq:"secret"`
}

func (c SMTPConfig) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// SMTP submits reminders as multipart/alternative messages. STARTTLS is used when
// the server offers it; PLAIN auth is used when a username is set.
type SMTP struct {
	emailType
	cfg    SMTPConfig
	sender Sender
	clock  func() time.Time
}

var _ interfaces.Transport = &SMTP{}

func NewSMTP(cfg SMTPConfig, sender Sender) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, goerr.New("SMTP host is required")
	}
	if sender.From == "" {
		return nil, goerr.New("sender address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	return &SMTP{cfg: cfg, sender: sender, clock: time.Now}, nil
}

func (s *SMTP) Deliver(ctx context.Context, msg *model.Message) error {
	body, err := buildMIME(s.sender, msg, s.clock())
	if err != nil {
		return err
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	if err := smtp.SendMail(s.cfg.addr(), auth, s.sender.From, []string{msg.To}, bytes.NewReader(body)); err != nil {
		return goerr.Wrap(err, "failed to send mail via SMTP",
			goerr.V("server", s.cfg.addr()),
			goerr.V("to", msg.To))
	}
	return nil
}

// buildMIME renders msg as an RFC 5322 message with text and HTML alternatives
func buildMIME(sender Sender, msg *model.Message, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Name: sender.FromName, Address: sender.From}})
	h.SetAddressList("To", []*mail.Address{{Name: msg.ToName, Address: msg.To}})
	h.SetSubject(sender.subject(msg))
	if err := h.GenerateMessageID(); err != nil {
		return nil, goerr.Wrap(err, "failed to generate message id")
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create mail writer")
	}

	alt, err := mw.CreateInline()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create alternative part")
	}
	if err := writePart(alt, "text/plain", msg.Text); err != nil {
		return nil, err
	}
	if err := writePart(alt, "text/html", msg.HTML); err != nil {
		return nil, err
	}
	if err := alt.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close alternative part")
	}
	if err := mw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close mail writer")
	}

	return buf.Bytes(), nil
}

func writePart(alt *mail.InlineWriter, contentType, content string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	w, err := alt.CreatePart(ph)
	if err != nil {
		return goerr.Wrap(err, "failed to create mail part", goerr.V("content_type", contentType))
	}
	if _, err := io.WriteString(w, content); err != nil {
		return goerr.Wrap(err, "failed to write mail part", goerr.V("content_type", contentType))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close mail part", goerr.V("content_type", contentType))
	}
	return nil
}
