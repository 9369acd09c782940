package notify

import "github.com/trailguard/trailguard/internal/policy"

// Channel identifies one delivery channel.
type Channel string

const (
	ChannelWebhook Channel = "webhook"
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
)

// Outcome is the explicit result of one channel invocation. Channel failures
// are carried as values rather than raised, so the coordinator's aggregation
// is a pure fold over outcomes.
type Outcome struct {
	Channel   Channel
	Attempted bool  // false when the channel was skipped (not configured)
	Succeeded bool
	LastError error // terminal error after retries, nil on success or skip
}

// result returns the metrics label for o.
func (o Outcome) result() string {
	switch {
	case !o.Attempted:
		return "skipped"
	case o.Succeeded:
		return "delivered"
	default:
		return "failed"
	}
}

// DispatchRecord is the ephemeral outcome of one coordinator invocation,
// used only for logging and metrics.
type DispatchRecord struct {
	AlertID  string
	Actions  []policy.Action
	Outcomes []Outcome
}
