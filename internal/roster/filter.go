package roster

import "strings"

// Filter returns the records matching both the search term and the status
// filter, in input order. The term is matched case-insensitively against the
// name or the secondary identifier; an empty term matches everything.
func Filter(records []DisplayRecord, term string, status StatusFilter) []DisplayRecord {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]DisplayRecord, 0, len(records))
	for _, rec := range records {
		if matchesTerm(rec, needle) && matchesStatus(rec, status) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesTerm(rec DisplayRecord, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(rec.Name), needle) ||
		strings.Contains(strings.ToLower(rec.Secondary), needle)
}

func matchesStatus(rec DisplayRecord, status StatusFilter) bool {
	if status == "" || status == FilterAll {
		return true
	}
	return string(rec.Status) == string(status)
}

// Summary aggregates a set of records for the attendance cards.
type Summary struct {
	Total   int `json:"totalStudents"`
	Present int `json:"presentCount"`
	Absent  int `json:"absentCount"`
	Rate    int `json:"attendanceRate"`
}

// Summarize counts present and absent records. Rate is a rounded percentage
// and zero for an empty roster.
func Summarize(records []DisplayRecord) Summary {
	present := 0
	for _, rec := range records {
		if rec.Status == StatusPresent {
			present++
		}
	}
	return NewSummary(len(records), present, len(records)-present)
}

// NewSummary builds a summary from counts.
func NewSummary(total, present, absent int) Summary {
	s := Summary{Total: total, Present: present, Absent: absent}
	if total > 0 {
		s.Rate = (present*100 + total/2) / total
	}
	return s
}

// SearchStudents matches the term against name, username or roll number,
// case-insensitively, keeping roster order.
func SearchStudents(students []Student, term string) []Student {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]Student, 0, len(students))
	for _, st := range students {
		if needle == "" ||
			strings.Contains(strings.ToLower(st.Name), needle) ||
			strings.Contains(strings.ToLower(st.Username), needle) ||
			strings.Contains(strings.ToLower(st.RollNumber), needle) {
			out = append(out, st)
		}
	}
	return out
}
