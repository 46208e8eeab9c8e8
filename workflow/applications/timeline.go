package applications

import "time"

// TimelineEntry is one status change in an application's audit trail.
type TimelineEntry struct {
	Status    Status `json:"status"`
	Timestamp string `json:"timestamp"`
	Note      string `json:"note,omitempty"`
}

// NewTimelineEntry stamps s at the given instant in RFC 3339 UTC.
func NewTimelineEntry(s Status, at time.Time, note string) TimelineEntry {
	return TimelineEntry{
		Status:    s,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Note:      note,
	}
}

// AppendTimelineEntry returns a new timeline with entry at the end. The input
// is never modified and the result never shares its backing array.
func AppendTimelineEntry(timeline []TimelineEntry, entry TimelineEntry) []TimelineEntry {
	out := make([]TimelineEntry, len(timeline), len(timeline)+1)
	copy(out, timeline)
	return append(out, entry)
}
