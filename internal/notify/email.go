package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/trailguard/trailguard/internal/alert"
	"github.com/trailguard/trailguard/internal/config"
)

// sendMailFunc matches smtp.SendMail; injectable for tests.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email delivers one plaintext message per alert to all admin recipients
// over SMTP. Missing configuration is a deliberate no-op, not an error.
// The underlying transport is blocking, so Send must only run on dispatch
// workers, never on the ingestion path.
type Email struct {
	host       string
	port       int
	from       string
	user       string
	password   string
	recipients []string

	send sendMailFunc
}

// NewEmail creates an Email channel from cfg, resolving credentials from the
// environment, addressed to recipients.
func NewEmail(cfg config.EmailConfig, recipients []string) *Email {
	return &Email{
		host:       cfg.Host,
		port:       cfg.Port,
		from:       cfg.From,
		user:       cfg.User(),
		password:   cfg.Password(),
		recipients: recipients,
		send:       smtp.SendMail,
	}
}

// Send composes and sends the alert message. Transport failures are logged
// and reported in the Outcome only.
func (e *Email) Send(ctx context.Context, a alert.Alert) Outcome {
	_ = ctx // net/smtp offers no context support; the worker owns the call

	if e.user == "" || e.password == "" || e.from == "" || e.host == "" {
		slog.Warn("email not configured; skipping email dispatch", "alert_id", a.AlertID)
		return Outcome{Channel: ChannelEmail}
	}
	if len(e.recipients) == 0 {
		slog.Warn("no admin email recipients configured; skipping email dispatch", "alert_id", a.AlertID)
		return Outcome{Channel: ChannelEmail}
	}

	addr := fmt.Sprintf("%s:%d", e.host, e.port)
	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	msg := e.compose(a)

	if err := e.send(addr, auth, e.from, e.recipients, msg); err != nil {
		slog.Error("failed to send email", "alert_id", a.AlertID, "err", err)
		return Outcome{Channel: ChannelEmail, Attempted: true, LastError: err}
	}

	slog.Info("email sent", "alert_id", a.AlertID, "recipients", len(e.recipients))
	return Outcome{Channel: ChannelEmail, Attempted: true, Succeeded: true}
}

// compose renders the message with headers and a plaintext body enumerating
// the alert's fields.
func (e *Email) compose(a alert.Alert) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.recipients, ", "))
	fmt.Fprintf(&b, "Subject: ALERT %s: %s\r\n", a.Level, a.AnomalyType)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "Alert Level: %s\r\n", a.Level)
	fmt.Fprintf(&b, "Type: %s\r\n", a.AnomalyType)
	fmt.Fprintf(&b, "Tourist: %s\r\n", a.TouristID)
	fmt.Fprintf(&b, "Location: (%g, %g)\r\n", a.Location.Lat, a.Location.Lng)
	fmt.Fprintf(&b, "Time: %s\r\n", a.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Confidence: %g\r\n", a.ConfidenceScore)
	return []byte(b.String())
}
