package roster

import (
	"fmt"
	"strings"
	"time"
)

// Status is the resolved attendance status of a student for the day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// NoTime is shown for students without a recorded check-in.
const NoTime = "-"

// ParseStatus normalizes a backend status value. Anything other than
// "present" (any casing) is absent.
func ParseStatus(s string) Status {
	if strings.EqualFold(strings.TrimSpace(s), string(StatusPresent)) {
		return StatusPresent
	}
	return StatusAbsent
}

// StatusFilter selects records by resolved status.
type StatusFilter string

const (
	FilterAll     StatusFilter = "all"
	FilterPresent StatusFilter = "present"
	FilterAbsent  StatusFilter = "absent"
)

// ParseStatusFilter accepts all, present or absent. Empty means all.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPresent:
		return FilterPresent, nil
	case FilterAbsent:
		return FilterAbsent, nil
	}
	return "", fmt.Errorf("invalid status filter %q", s)
}

// Student is a roster entry as returned by the backend.
type Student struct {
	ID              string `json:"_id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	RollNumber      string `json:"rollNumber,omitempty"`
	Class           string `json:"class,omitempty"`
	Section         string `json:"section,omitempty"`
	UID             string `json:"uid,omitempty"`
	Role            string `json:"role,omitempty"`
	SchoolID        string `json:"schoolId,omitempty"`
	TeacherSchoolID string `json:"teacherSchoolId,omitempty"`
}

// Secondary returns the identifier shown next to the name.
func (s Student) Secondary() string {
	if s.RollNumber != "" {
		return s.RollNumber
	}
	return s.Username
}

// Event is one attendance record for today.
type Event struct {
	StudentID string     `json:"studentId"`
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Time      string     `json:"time,omitempty"`
}

// DisplayRecord is the merged per-student view model.
type DisplayRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Secondary string `json:"rollNumber"`
	Class     string `json:"class,omitempty"`
	UID       string `json:"uid,omitempty"`
	Status    Status `json:"status"`
	Time      string `json:"time"`
}
