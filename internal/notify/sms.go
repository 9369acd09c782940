package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trailguard/trailguard/internal/alert"
	"github.com/trailguard/trailguard/internal/config"
)

const (
	twilioAPIBase = "https://api.twilio.com"
	smsTimeout    = 10 * time.Second
)

// SMS delivers a short message per alert to each admin phone number through
// the Twilio REST API. Recipients are attempted independently: one number's
// failure never prevents attempts to the rest. Missing credentials are a
// deliberate no-op, not an error.
type SMS struct {
	accountSID string
	authToken  string
	from       string
	recipients []string

	client  *http.Client
	apiBase string // overridable in tests
}

// NewSMS creates an SMS channel from cfg, resolving credentials from the
// environment, addressed to recipients.
func NewSMS(cfg config.SMSConfig, recipients []string) *SMS {
	base := cfg.APIBase
	if base == "" {
		base = twilioAPIBase
	}
	return &SMS{
		accountSID: cfg.AccountSID(),
		authToken:  cfg.AuthToken(),
		from:       cfg.From,
		recipients: recipients,
		client:     &http.Client{Timeout: smsTimeout},
		apiBase:    base,
	}
}

// Send attempts delivery to every configured recipient. The Outcome succeeds
// when at least one recipient accepted the message; LastError carries the
// most recent per-recipient failure.
func (s *SMS) Send(ctx context.Context, a alert.Alert) Outcome {
	if s.accountSID == "" || s.authToken == "" || s.from == "" {
		slog.Warn("sms provider not configured; skipping sms dispatch", "alert_id", a.AlertID)
		return Outcome{Channel: ChannelSMS}
	}
	if len(s.recipients) == 0 {
		slog.Warn("no admin phone numbers configured; skipping sms dispatch", "alert_id", a.AlertID)
		return Outcome{Channel: ChannelSMS}
	}

	body := fmt.Sprintf("ALERT %s: %s at (%g, %g)",
		a.Level, a.AnomalyType, a.Location.Lat, a.Location.Lng)

	var (
		delivered int
		lastErr   error
	)
	for _, to := range s.recipients {
		if err := s.postMessage(ctx, to, body); err != nil {
			lastErr = err
			slog.Error("sms send failed", "alert_id", a.AlertID, "to", to, "err", err)
			continue
		}
		delivered++
	}

	slog.Info("sms attempts complete",
		"alert_id", a.AlertID,
		"delivered", delivered,
		"recipients", len(s.recipients),
	)
	return Outcome{
		Channel:   ChannelSMS,
		Attempted: true,
		Succeeded: delivered > 0,
		LastError: lastErr,
	}
}

// postMessage sends one message through the provider's Messages endpoint.
func (s *SMS) postMessage(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.apiBase, s.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms provider returned HTTP %d", resp.StatusCode)
	}
	return nil
}
