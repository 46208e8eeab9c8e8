// Package tours holds the property tour status policy. One action table per role
// drives both the actions a client is offered and the transitions the server
// accepts.
package tours

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusRequested   Status = "requested"
	StatusConfirmed   Status = "confirmed"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// FinalStatuses is the terminal set. Nothing may change a tour once it is in one
// of these.
var FinalStatuses = []Status{StatusCompleted, StatusCancelled}

// IsFinal reports whether s is completed or cancelled.
func IsFinal(s Status) bool {
	for _, f := range FinalStatuses {
		if f == s {
			return true
		}
	}
	return false
}

// Normalize maps inbound text to a status; false for anything unknown.
func Normalize(value string) (Status, bool) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusRequested, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRescheduled:
		return s, true
	}
	return "", false
}

type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
)

type Tone string

const (
	TonePrimary Tone = "primary"
	ToneDanger  Tone = "danger"
)

// Action is a status change offered to a role.
type Action struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Tone   Tone   `json:"tone"`
}

var (
	confirmAction  = Action{Status: StatusConfirmed, Label: "Confirm", Tone: TonePrimary}
	completeAction = Action{Status: StatusCompleted, Label: "Mark completed", Tone: TonePrimary}
	cancelAction   = Action{Status: StatusCancelled, Label: "Cancel", Tone: ToneDanger}
)

// LandlordActionsFor lists what the property owner may do to a tour in s.
func LandlordActionsFor(s Status) []Action {
	switch s {
	case StatusRequested:
		return []Action{confirmAction, cancelAction}
	case StatusConfirmed, StatusRescheduled:
		return []Action{completeAction, cancelAction}
	case StatusCompleted, StatusCancelled:
		return []Action{}
	}
	return []Action{}
}

// TenantActionsFor lists what the visitor may do: cancel, until the tour is final.
func TenantActionsFor(s Status) []Action {
	if IsFinal(s) {
		return []Action{}
	}
	return []Action{cancelAction}
}

// ActionsFor dispatches on role. Unknown roles get nothing.
func ActionsFor(r Role, s Status) []Action {
	switch r {
	case RoleLandlord:
		return LandlordActionsFor(s)
	case RoleTenant:
		return TenantActionsFor(s)
	}
	return []Action{}
}

// AllowedTransitions returns the target statuses r may move a tour to from s.
func AllowedTransitions(r Role, s Status) []Status {
	actions := ActionsFor(r, s)
	out := make([]Status, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Status)
	}
	return out
}

// IsValidTransition reports whether r may move a tour from current to next.
// It is exactly the set of offered actions, so a client calling something it
// was never offered is rejected.
func IsValidTransition(r Role, current, next Status) bool {
	if current == next {
		return false
	}
	for _, s := range AllowedTransitions(r, current) {
		if s == next {
			return true
		}
	}
	return false
}

type TransitionError struct {
	Role Role
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot change a %s tour to %s", e.From, e.To)
}
