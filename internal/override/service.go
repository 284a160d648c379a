package override

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dashboard/internal/backend"
	"dashboard/internal/metrics"
	"dashboard/internal/roster"
)

var (
	// ErrInFlight means an override for the same student has not resolved yet.
	ErrInFlight = errors.New("override already in progress for this student")
	// ErrInvalidStatus means the requested status is neither present nor absent.
	ErrInvalidStatus = errors.New("status must be present or absent")
	// ErrUnknownStudent means the student is not on the loaded roster.
	ErrUnknownStudent = errors.New("student not found on today's roster")
)

// Backend is the part of the backend client overrides need.
type Backend interface {
	ManualUpdate(ctx context.Context, token string, req backend.ManualUpdate) (backend.Ack, error)
	ManualOverrides(ctx context.Context, token string) ([]backend.AuditEntry, error)
}

// Request is a teacher-issued correction.
type Request struct {
	StudentID string
	Status    string
	Note      string
}

// Result describes an accepted override.
type Result struct {
	StudentID string        `json:"studentId"`
	Name      string        `json:"name"`
	Previous  roster.Status `json:"originalStatus"`
	Status    roster.Status `json:"newStatus"`
	Time      string        `json:"time"`
	Message   string        `json:"message,omitempty"`
}

// Service submits overrides and keeps boards in step with the backend.
type Service struct {
	backend Backend
	clock   func() string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets how the check-in time of a student marked present is
// rendered. The default uses roster.DefaultTimeLayout in local time.
func WithClock(clock func() string) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService creates an override service.
func NewService(b Backend, opts ...Option) *Service {
	s := &Service{
		backend:  b,
		clock:    func() string { return time.Now().Format(roster.DefaultTimeLayout) },
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends the override and, once the backend accepts it, writes the
// acknowledged status into board. A failed request leaves board unchanged.
func (s *Service) Submit(ctx context.Context, token string, board *roster.Board, req Request) (Result, error) {
	want := strings.ToLower(strings.TrimSpace(req.Status))
	if want != string(roster.StatusPresent) && want != string(roster.StatusAbsent) {
		metrics.Overrides.WithLabelValues("invalid").Inc()
		return Result{}, ErrInvalidStatus
	}
	rec, ok := board.Find(req.StudentID)
	if !ok {
		metrics.Overrides.WithLabelValues("invalid").Inc()
		return Result{}, ErrUnknownStudent
	}

	if !s.acquire(req.StudentID) {
		metrics.Overrides.WithLabelValues("in_flight").Inc()
		return Result{}, ErrInFlight
	}
	defer s.release(req.StudentID)

	uid := rec.UID
	if uid == "" {
		uid = rec.ID
	}
	ack, err := s.backend.ManualUpdate(ctx, token, backend.ManualUpdate{
		UID:    uid,
		Status: want,
		Note:   strings.TrimSpace(req.Note),
	})
	if err != nil {
		metrics.Overrides.WithLabelValues("failed").Inc()
		return Result{}, fmt.Errorf("manual update for %s: %w", req.StudentID, err)
	}

	stored := roster.Status(want)
	if ack.Status != "" {
		stored = roster.ParseStatus(ack.Status)
	}
	at := s.displayTime(rec, stored)
	board.Apply(req.StudentID, stored, at)
	if at == "" {
		at = rec.Time
	}
	metrics.Overrides.WithLabelValues("ok").Inc()

	return Result{
		StudentID: rec.ID,
		Name:      rec.Name,
		Previous:  rec.Status,
		Status:    stored,
		Time:      at,
		Message:   ack.Message,
	}, nil
}

// Recent returns the backend's audit feed of overrides.
func (s *Service) Recent(ctx context.Context, token string) ([]backend.AuditEntry, error) {
	return s.backend.ManualOverrides(ctx, token)
}

// displayTime keeps a recorded check-in, stamps one for a student newly
// marked present and clears it for an absent one.
func (s *Service) displayTime(rec roster.DisplayRecord, stored roster.Status) string {
	switch {
	case stored == roster.StatusAbsent:
		return roster.NoTime
	case rec.Time == "" || rec.Time == roster.NoTime:
		return s.clock()
	}
	return ""
}

func (s *Service) acquire(studentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[studentID]; busy {
		return false
	}
	s.inFlight[studentID] = struct{}{}
	return true
}

func (s *Service) release(studentID string) {
	s.mu.Lock()
	delete(s.inFlight, studentID)
	s.mu.Unlock()
}
