package model

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/domain/types"
)

// DefaultAppURL is used for links when no application URL is configured
const DefaultAppURL = "http://localhost:3000"

const deadlineLayout = "Monday, January 2, 2006"

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/reminder.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/reminder.txt.tmpl"))
)

// Payload is the rendered content of a reminder
type Payload struct {
	Subject string
	HTML    string
	Text    string
}

type payloadView struct {
	Subject            string
	Urgency            types.Urgency
	UrgencyColor       htmltemplate.CSS
	Remaining          string
	Title              string
	Consequence        string
	Deadline           string
	Category           string
	Severity           types.Severity
	SeverityBackground htmltemplate.CSS
	SeverityForeground htmltemplate.CSS
	ObligationsURL     string
}

var severityColors = map[types.Severity][2]string{
	types.SeverityCritical: {"#FEE2E2", "#991B1B"},
	types.SeverityHigh:     {"#FED7AA", "#9A3412"},
	types.SeverityMedium:   {"#FEF3C7", "#92400E"},
	types.SeverityLow:      {"#DBEAFE", "#1E3A8A"},
}

func remainingText(days int) string {
	if days == 1 {
		return "1 day remaining"
	}
	return fmt.Sprintf("%d days remaining", days)
}

// ReminderSubject builds the subject line, e.g. "⚠️ URGENT: File VAT - 7 days remaining"
func ReminderSubject(title string, daysUntil int) string {
	return fmt.Sprintf("⚠️ %s: %s - %s", types.UrgencyFor(daysUntil), title, remainingText(daysUntil))
}

// FormatPayload renders the subject, HTML and text bodies for an eligible obligation.
// Urgency is derived from DaysUntilDeadline for display only.
func FormatPayload(e *EligibleObligation, appURL string) (*Payload, error) {
	if appURL == "" {
		appURL = DefaultAppURL
	}

	urgency := types.UrgencyFor(e.DaysUntilDeadline)
	badge, ok := severityColors[e.Severity]
	if !ok {
		badge = severityColors[types.SeverityLow]
	}

	view := payloadView{
		Subject:            ReminderSubject(e.Title, e.DaysUntilDeadline),
		Urgency:            urgency,
		UrgencyColor:       htmltemplate.CSS(urgency.Color()),
		Remaining:          remainingText(e.DaysUntilDeadline),
		Title:              e.Title,
		Consequence:        e.Consequence,
		Deadline:           e.DeadlineAt.Format(deadlineLayout),
		Category:           e.Category.String(),
		Severity:           e.Severity,
		SeverityBackground: htmltemplate.CSS(badge[0]),
		SeverityForeground: htmltemplate.CSS(badge[1]),
		ObligationsURL:     strings.TrimRight(appURL, "/") + "/obligations",
	}

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, view); err != nil {
		return nil, goerr.Wrap(err, "failed to render html reminder", goerr.V("obligation_id", e.ID))
	}
	if err := textTemplate.Execute(&text, view); err != nil {
		return nil, goerr.Wrap(err, "failed to render text reminder", goerr.V("obligation_id", e.ID))
	}

	return &Payload{
		Subject: view.Subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// Message addresses the payload to the obligation's owner
func (p *Payload) Message(e *EligibleObligation) *Message {
	return &Message{
		To:      e.OwnerEmail,
		ToName:  e.OwnerName,
		Subject: p.Subject,
		HTML:    p.HTML,
		Text:    p.Text,
	}
}
