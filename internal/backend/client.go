package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dashboard/internal/metrics"
	"dashboard/internal/roster"
)

// Client calls the attendance REST backend. The bearer token is passed per
// call; the client itself holds no session state.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	now     func() time.Time
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Login exchanges credentials for a backend token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", "", false, body, &out); err != nil {
		var be *Error
		if errors.As(err, &be) && be.Kind != KindTransport && be.Message == "" {
			be.Message = "Invalid credentials"
		}
		return "", err
	}
	if out.Token == "" {
		return "", &Error{Kind: KindStatus, Status: http.StatusOK, Message: "login response carried no token"}
	}
	return out.Token, nil
}

// Me returns the authenticated teacher.
func (c *Client) Me(ctx context.Context, token string) (Profile, error) {
	var p Profile
	err := c.do(ctx, "me", http.MethodGet, "/api/auth/me", token, true, nil, &p)
	return p, err
}

// Students returns the teacher's roster in backend order.
func (c *Client) Students(ctx context.Context, token string) ([]roster.Student, error) {
	var out []roster.Student
	if err := c.do(ctx, "students", http.MethodGet, "/api/auth/students", token, true, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []roster.Student{}
	}
	return out, nil
}

// RegisterStudent creates a student account.
func (c *Client) RegisterStudent(ctx context.Context, token string, in StudentInput) (roster.Student, error) {
	var st roster.Student
	err := c.do(ctx, "register", http.MethodPost, "/api/auth/register", token, true, in, &st)
	return st, err
}

// UpdateStudent replaces a student's details.
func (c *Client) UpdateStudent(ctx context.Context, token, id string, in StudentInput) (roster.Student, error) {
	var st roster.Student
	err := c.do(ctx, "update_student", http.MethodPut, "/api/auth/students/"+url.PathEscape(id), token, true, in, &st)
	return st, err
}

// DeleteStudent removes a student.
func (c *Client) DeleteStudent(ctx context.Context, token, id string) error {
	return c.do(ctx, "delete_student", http.MethodDelete, "/api/auth/students/"+url.PathEscape(id), token, true, nil, nil)
}

// TodayAttendance returns today's events for a school.
func (c *Client) TodayAttendance(ctx context.Context, token, schoolID string) ([]roster.Event, error) {
	var wire []wireEvent
	if err := c.do(ctx, "attendance_today", http.MethodGet, "/api/attendance/today/"+url.PathEscape(schoolID), token, true, nil, &wire); err != nil {
		return nil, err
	}
	events := make([]roster.Event, 0, len(wire))
	for _, w := range wire {
		events = append(events, w.event())
	}
	return events, nil
}

// Summary returns aggregate counts for a school.
func (c *Client) Summary(ctx context.Context, token, schoolID string) (Summary, error) {
	var s Summary
	err := c.do(ctx, "attendance_summary", http.MethodGet, "/api/attendance/summary/"+url.PathEscape(schoolID), token, true, nil, &s)
	return s, err
}

// ManualUpdate submits an override. The returned Ack carries the status the
// backend stored when it echoes one.
func (c *Client) ManualUpdate(ctx context.Context, token string, req ManualUpdate) (Ack, error) {
	var out struct {
		Message    string `json:"message"`
		Status     string `json:"status"`
		Attendance *struct {
			Status string `json:"status"`
		} `json:"attendance"`
	}
	if err := c.do(ctx, "manual_update", http.MethodPost, "/api/attendance/manual-update", token, true, req, &out); err != nil {
		return Ack{}, err
	}
	ack := Ack{Message: out.Message}
	switch {
	case out.Attendance != nil && isStatus(out.Attendance.Status):
		ack.Status = out.Attendance.Status
	case isStatus(out.Status):
		ack.Status = out.Status
	}
	return ack, nil
}

// ManualOverrides returns the recent overrides feed.
func (c *Client) ManualOverrides(ctx context.Context, token string) ([]AuditEntry, error) {
	var out []AuditEntry
	if err := c.do(ctx, "manual_overrides", http.MethodGet, "/api/attendance/manual-overrides", token, true, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []AuditEntry{}
	}
	return out, nil
}

// PostAssignment creates an assignment.
func (c *Client) PostAssignment(ctx context.Context, token string, a Assignment) error {
	return c.do(ctx, "assignments", http.MethodPost, "/api/assignments", token, true, a, nil)
}

func isStatus(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == string(roster.StatusPresent) || s == string(roster.StatusAbsent)
}

func (c *Client) do(ctx context.Context, endpoint, method, path, token string, authed bool, in, out any) error {
	if authed {
		if err := c.checkToken(token); err != nil {
			metrics.BackendRequests.WithLabelValues(endpoint, KindAuth.String()).Inc()
			return err
		}
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindTransport, Message: "encode request failed", Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "create request failed", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	metrics.BackendLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, KindTransport.String()).Inc()
		return &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		e := statusError(resp)
		metrics.BackendRequests.WithLabelValues(endpoint, e.Kind.String()).Inc()
		return e
	}
	metrics.BackendRequests.WithLabelValues(endpoint, "ok").Inc()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Kind: KindTransport, Message: "decode response failed", Err: err}
	}
	return nil
}

// checkToken rejects missing tokens and JWTs whose exp has passed. Opaque
// tokens are left for the backend to judge.
func (c *Client) checkToken(token string) error {
	if token == "" {
		return &Error{Kind: KindAuth, Message: "no auth token"}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}
	if claims.ExpiresAt != nil && !c.now().Before(claims.ExpiresAt.Time) {
		return &Error{Kind: KindAuth, Message: "auth token expired"}
	}
	return nil
}

func statusError(resp *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	var msg string
	if json.Unmarshal(raw, &payload) == nil {
		msg = payload.Message
		if msg == "" {
			msg = payload.Error
		}
	} else {
		msg = strings.TrimSpace(string(raw))
	}

	kind := KindStatus
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		kind = KindAuth
	}
	return &Error{Kind: kind, Status: resp.StatusCode, Message: msg}
}
