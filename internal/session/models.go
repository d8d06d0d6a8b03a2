// Package session implements the polling/session engine: it tracks one
// in-flight wait per provisioned identity, polls the upstream provider on a
// fixed cadence, and records the outcome in a shared in-memory store.
// Sessions are memory-resident and do not survive a restart.
package session

import (
	"time"

	"tempgen/internal/provider"
)

// Kind identifies the flavor of identity a session is polling for.
type Kind string

const (
	KindEmail Kind = "email"
	KindSMS   Kind = "sms"
)

// Status represents the lifecycle state of a session.
// pending -> waiting -> exactly one of the terminal states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusWaiting   Status = "waiting"
	StatusReceived  Status = "received"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions may occur.
func (s Status) Terminal() bool {
	switch s {
	case StatusReceived, StatusTimeout, StatusError, StatusCancelled:
		return true
	}
	return false
}

// EmailResult holds the first message received by a temporary mailbox.
type EmailResult struct {
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Session is the unit of tracked work: one polling operation for one identity.
// All fields are written by the session's own background task, except the
// single external write performed by Cancel.
type Session struct {
	ID        string
	Kind      Kind
	Status    Status
	Note      string // human-readable detail for non-received states
	Email     *EmailResult
	SMS       []provider.SMSMessage
	Address   string // email sessions
	CountryID string // sms sessions
	Number    string // sms sessions
	CreatedAt time.Time
	Deadline  time.Time
}

// View is the JSON envelope returned to status queries.
type View struct {
	Status   Status                `json:"status"`
	From     string                `json:"from,omitempty"`
	Subject  string                `json:"subject,omitempty"`
	Body     string                `json:"body,omitempty"`
	Messages []provider.SMSMessage `json:"messages,omitempty"`
	Message  string                `json:"message,omitempty"`
}

// View renders the externally observable state of the session.
func (s *Session) View() View {
	v := View{
		Status:  s.Status,
		Message: s.Note,
	}
	if s.Email != nil {
		v.From = s.Email.From
		v.Subject = s.Email.Subject
		v.Body = s.Email.Body
	}
	if len(s.SMS) > 0 {
		v.Messages = s.SMS
	}
	return v
}
