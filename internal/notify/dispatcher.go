package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/trailguard/trailguard/internal/alert"
	"github.com/trailguard/trailguard/internal/metrics"
	"github.com/trailguard/trailguard/internal/policy"
)

// DashboardFeed receives alerts whose severity policy includes the dashboard
// action. Implemented by the WebSocket hub; Publish must not block.
type DashboardFeed interface {
	Publish(a alert.Alert)
}

// Dispatcher is the coordinator: it looks up the actions for an alert's
// severity and fans out to the matching channels. Channels run concurrently
// and in isolation: one channel's failure, retry exhaustion, or missing
// configuration never blocks or fails the others, and Dispatch itself never
// raises to its caller.
type Dispatcher struct {
	policy    *policy.Policy
	webhook   *Webhook
	email     *Email
	sms       *SMS
	dashboard DashboardFeed
}

// NewDispatcher wires a Dispatcher. dashboard may be nil, in which case the
// dashboard action is a no-op.
func NewDispatcher(p *policy.Policy, webhook *Webhook, email *Email, sms *SMS, dashboard DashboardFeed) *Dispatcher {
	return &Dispatcher{
		policy:    p,
		webhook:   webhook,
		email:     email,
		sms:       sms,
		dashboard: dashboard,
	}
}

// Dispatch handles one alert: log and dashboard actions run inline (both are
// non-blocking), delivery channels run concurrently. The returned record is
// ephemeral, used only for logging and metrics.
func (d *Dispatcher) Dispatch(ctx context.Context, a alert.Alert) DispatchRecord {
	actions := d.policy.ActionsFor(a.Level)
	rec := DispatchRecord{AlertID: a.AlertID, Actions: actions}

	var wg sync.WaitGroup
	// One slot per delivery channel; each goroutine writes only its own,
	// so no mutable state is shared across channels.
	var slots [3]*Outcome

	for _, action := range actions {
		switch action {
		case policy.ActionLog:
			slog.Info("alert",
				"alert_id", a.AlertID,
				"level", a.Level,
				"type", a.AnomalyType,
				"tourist_id", a.TouristID,
				"confidence", a.ConfidenceScore,
			)

		case policy.ActionDashboard:
			if d.dashboard != nil {
				d.dashboard.Publish(a)
			}

		case policy.ActionWebhook:
			wg.Add(1)
			go func() {
				defer wg.Done()
				o := d.webhook.Send(ctx, []alert.Alert{a})
				slots[0] = &o
			}()

		case policy.ActionEmail:
			wg.Add(1)
			go func() {
				defer wg.Done()
				o := d.email.Send(ctx, a)
				slots[1] = &o
			}()

		case policy.ActionSMS:
			wg.Add(1)
			go func() {
				defer wg.Done()
				o := d.sms.Send(ctx, a)
				slots[2] = &o
			}()

		default:
			// Unknown action kinds are a forward-compatible no-op.
			slog.Warn("dispatch: unknown action, skipping", "action", action, "alert_id", a.AlertID)
		}
	}
	wg.Wait()

	for _, o := range slots {
		if o == nil {
			continue
		}
		rec.Outcomes = append(rec.Outcomes, *o)
		metrics.DispatchTotal.WithLabelValues(string(o.Channel), o.result()).Inc()
	}

	slog.Info("dispatch finished",
		"alert_id", a.AlertID,
		"level", a.Level,
		"actions", len(actions),
		"channels", len(rec.Outcomes),
	)
	return rec
}
