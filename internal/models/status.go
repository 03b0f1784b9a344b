// internal/models/status.go
package models

// Account is a destination account on the messaging platform.
type Account struct {
	ID    string
	Email string
}

// Status is an account's current custom status as read from the platform.
type Status struct {
	Text  string
	Emoji string
}

// IsEmpty reports whether neither text nor emoji is set.
func (s Status) IsEmpty() bool {
	return s.Text == "" && s.Emoji == ""
}

// Presentation is what a leave record looks like as a status.
type Presentation struct {
	Emoji      string
	Text       string
	Expiration int64 // unix seconds
}

type Action string

const (
	ActionSet   Action = "SET"
	ActionClear Action = "CLEAR"
	ActionNone  Action = "NONE"
)

// StatusDecision is the per-account unit of work a reconciliation pass emits.
type StatusDecision struct {
	AccountID    string
	Action       Action
	Presentation Presentation // only meaningful for ActionSet
}

// PassResult aggregates the outcome of one reconciliation pass.
type PassResult struct {
	Updated int `json:"updated"`
	Cleared int `json:"cleared"`
	Errors  int `json:"errors"`
}
