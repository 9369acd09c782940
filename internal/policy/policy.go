package policy

import (
	"github.com/trailguard/trailguard/internal/alert"
)

// Action is one notification or observability effect triggered by severity.
type Action string

const (
	ActionLog       Action = "log"
	ActionDashboard Action = "dashboard"
	ActionEmail     Action = "email"
	ActionSMS       Action = "sms"
	ActionWebhook   Action = "webhook"
)

// Table maps a severity level to its ordered action set.
type Table map[alert.Level][]Action

// Default returns the built-in severity table.
func Default() Table {
	return Table{
		alert.LevelInfo:     {ActionLog},
		alert.LevelWarning:  {ActionLog, ActionDashboard},
		alert.LevelCritical: {ActionLog, ActionDashboard, ActionEmail, ActionSMS, ActionWebhook},
	}
}

// FromStrings builds a Table from the string-keyed form used in config files.
// Level keys are normalized to uppercase; action names are kept verbatim so
// unknown kinds pass through (they are no-ops at dispatch time).
func FromStrings(m map[string][]string) Table {
	if len(m) == 0 {
		return nil
	}
	t := make(Table, len(m))
	for level, actions := range m {
		as := make([]Action, 0, len(actions))
		for _, a := range actions {
			as = append(as, Action(a))
		}
		t[alert.NormalizeLevel(level)] = as
	}
	return t
}

// Policy is a pure severity-to-actions lookup. Safe for concurrent use; the
// underlying table is never mutated after New.
type Policy struct {
	table Table
}

// New creates a Policy from table, falling back to Default for a nil or
// empty table.
func New(table Table) *Policy {
	if len(table) == 0 {
		table = Default()
	}
	return &Policy{table: table}
}

// ActionsFor returns the ordered action set for level. Unknown or unmapped
// levels fall back to {log}. The returned slice is a copy; callers may not
// affect the table through it.
func (p *Policy) ActionsFor(level alert.Level) []Action {
	actions, ok := p.table[level]
	if !ok {
		return []Action{ActionLog}
	}
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}
