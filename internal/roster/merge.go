package roster

import (
	"strings"
	"time"
)

// DefaultTimeLayout matches the clock format used across the dashboard.
const DefaultTimeLayout = "03:04 PM"

type mergeOptions struct {
	layout string
	loc    *time.Location
}

// MergeOption customizes how event times are rendered.
type MergeOption func(*mergeOptions)

// WithTimeLayout sets the layout used for event timestamps.
func WithTimeLayout(layout string) MergeOption {
	return func(o *mergeOptions) {
		if layout != "" {
			o.layout = layout
		}
	}
}

// WithLocation renders event timestamps in loc.
func WithLocation(loc *time.Location) MergeOption {
	return func(o *mergeOptions) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// Merge left-joins today's events onto the roster. Every student yields
// exactly one record, in roster order. Events for students that are not on
// the roster are ignored; when a student has several events the first wins.
func Merge(students []Student, events []Event, opts ...MergeOption) []DisplayRecord {
	o := mergeOptions{layout: DefaultTimeLayout, loc: time.Local}
	for _, opt := range opts {
		opt(&o)
	}

	byStudent := make(map[string]Event, len(events))
	for _, evt := range events {
		if _, seen := byStudent[evt.StudentID]; !seen {
			byStudent[evt.StudentID] = evt
		}
	}

	out := make([]DisplayRecord, 0, len(students))
	for _, st := range students {
		rec := DisplayRecord{
			ID:        st.ID,
			Name:      st.Name,
			Secondary: st.Secondary(),
			Class:     classLabel(st),
			UID:       st.UID,
			Status:    StatusAbsent,
			Time:      NoTime,
		}
		if evt, ok := byStudent[st.ID]; ok {
			rec.Status = ParseStatus(evt.Status)
			rec.Time = displayTime(evt, o)
		}
		out = append(out, rec)
	}
	return out
}

func displayTime(evt Event, o mergeOptions) string {
	if evt.Timestamp != nil && !evt.Timestamp.IsZero() {
		return evt.Timestamp.In(o.loc).Format(o.layout)
	}
	if t := strings.TrimSpace(evt.Time); t != "" {
		return t
	}
	return NoTime
}

func classLabel(st Student) string {
	switch {
	case st.Class != "" && st.Section != "":
		return st.Class + "-" + st.Section
	default:
		return st.Class
	}
}
