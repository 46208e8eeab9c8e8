// Package applications implements the rental application status workflow:
// normalization of stored status text, transition validation, timestamp
// classification and the append-only timeline.
//
// Everything here is pure. Failures are reported through return values and the
// caller decides how to present them (HTTP status, job error, CLI output).
package applications

import (
	"fmt"
	"strings"
)

// Status is a canonical application status.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusReviewing Status = "reviewing"
	StatusInterview Status = "interview"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// AllStatuses returns the canonical statuses in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusSubmitted,
		StatusReviewing,
		StatusInterview,
		StatusAccepted,
		StatusRejected,
	}
}

// Parse maps raw text to a canonical status. The second result is false when the
// text is not a known status or alias.
func Parse(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "draft":
		return StatusDraft, true
	case "submitted":
		return StatusSubmitted, true
	case "reviewing":
		return StatusReviewing, true
	case "interview":
		return StatusInterview, true
	case "accepted", "approved":
		return StatusAccepted, true
	case "rejected":
		return StatusRejected, true
	}
	return StatusSubmitted, false
}

// Normalize is Parse without the recognition flag: unknown or empty values are
// treated as still pending review.
func Normalize(value string) Status {
	s, _ := Parse(value)
	return s
}

// ToStorage returns the value written to the store for s.
func ToStorage(s Status) string {
	return string(s)
}

// AllowedTransitions lists the statuses reachable from s in one step.
func AllowedTransitions(s Status) []Status {
	switch s {
	case StatusDraft:
		return []Status{StatusSubmitted}
	case StatusSubmitted:
		return []Status{StatusReviewing}
	case StatusReviewing:
		return []Status{StatusInterview, StatusAccepted, StatusRejected}
	case StatusInterview:
		return []Status{StatusAccepted, StatusRejected}
	case StatusAccepted, StatusRejected:
		return nil
	}
	return nil
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	return s == StatusAccepted || s == StatusRejected
}

// IsValidTransition normalizes both values and reports whether next is
// reachable from current. A transition to the same status is never valid, so
// every accepted write is a real state change.
func IsValidTransition(current, next string) bool {
	from, to := Normalize(current), Normalize(next)
	if from == to {
		return false
	}
	for _, s := range AllowedTransitions(from) {
		if s == to {
			return true
		}
	}
	return false
}

// Timestamps tells the caller which lifecycle timestamps a status change sets.
type Timestamps struct {
	// Reviewed: set reviewed_at, backfill submitted_at when missing.
	Reviewed bool
	// Decision: set decision_at.
	Decision bool
}

// NextStatusTimestamps says which timestamps moving into status must set.
func NextStatusTimestamps(status string) Timestamps {
	s := Normalize(status)
	return Timestamps{
		Reviewed: s == StatusReviewing,
		Decision: s == StatusAccepted || s == StatusRejected,
	}
}

// TransitionError is the user-facing form of a rejected transition.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot change a %s application to %s", e.From, e.To)
}
