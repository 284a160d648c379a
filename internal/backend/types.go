package backend

import (
	"time"

	"dashboard/internal/roster"
)

// Profile is the authenticated teacher as returned by /api/auth/me.
type Profile struct {
	ID              string `json:"_id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	Role            string `json:"role"`
	SchoolID        string `json:"schoolId,omitempty"`
	TeacherSchoolID string `json:"teacherSchoolId,omitempty"`
}

// ScopeID returns the identifier used to scope attendance queries.
func (p Profile) ScopeID() string {
	if p.TeacherSchoolID != "" {
		return p.TeacherSchoolID
	}
	return p.SchoolID
}

// StudentInput is the body of register and update calls.
type StudentInput struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Password        string `json:"password,omitempty"`
	Role            string `json:"role"`
	RollNumber      string `json:"rollNumber,omitempty"`
	Class           string `json:"class,omitempty"`
	Section         string `json:"section,omitempty"`
	SchoolID        string `json:"schoolId,omitempty"`
	TeacherSchoolID string `json:"teacherSchoolId,omitempty"`
	UID             string `json:"uid,omitempty"`
}

// Summary holds aggregate counts for today.
type Summary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// ManualUpdate is the body of an override request.
type ManualUpdate struct {
	UID    string `json:"uid"`
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// Ack is the backend's answer to a manual update.
type Ack struct {
	Message string `json:"message"`
	// Status is the value the backend stored, empty when not echoed.
	Status string `json:"-"`
}

// AuditEntry is one item of the recent overrides feed.
type AuditEntry struct {
	ID             string    `json:"_id"`
	StudentName    string    `json:"studentName"`
	RollNumber     string    `json:"rollNumber,omitempty"`
	UID            string    `json:"uid,omitempty"`
	OriginalStatus string    `json:"originalStatus"`
	NewStatus      string    `json:"newStatus"`
	Note           string    `json:"note,omitempty"`
	TeacherName    string    `json:"teacherName,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Assignment is posted from the notifications page.
type Assignment struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Subject       string   `json:"subject"`
	Priority      string   `json:"priority"`
	DueDate       string   `json:"dueDate"`
	EstimatedTime string   `json:"estimatedTime,omitempty"`
	AssignedBy    string   `json:"assignedBy,omitempty"`
	ClassID       string   `json:"classId"`
	StudentIDs    []string `json:"studentIds"`
}

type wireEvent struct {
	StudentID string     `json:"studentId"`
	Student   string     `json:"student"`
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp"`
	Time      string     `json:"time"`
}

func (w wireEvent) event() roster.Event {
	id := w.StudentID
	if id == "" {
		id = w.Student
	}
	return roster.Event{StudentID: id, Status: w.Status, Timestamp: w.Timestamp, Time: w.Time}
}
