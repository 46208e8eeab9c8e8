package applications

import "time"

// Change is a validated status change ready to be persisted.
type Change struct {
	From       Status
	To         Status
	Timestamps Timestamps
	Entry      TimelineEntry
}

// PlanTransition validates current -> next and, when allowed, describes what the
// caller must write. On rejection it returns a *TransitionError and no entry is
// produced.
func PlanTransition(current, next string, at time.Time, note string) (Change, error) {
	from, to := Normalize(current), Normalize(next)
	if !IsValidTransition(current, next) {
		return Change{}, &TransitionError{From: from, To: to}
	}
	return Change{
		From:       from,
		To:         to,
		Timestamps: NextStatusTimestamps(string(to)),
		Entry:      NewTimelineEntry(to, at, note),
	}, nil
}
