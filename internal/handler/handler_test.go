package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard/internal/backend"
	"dashboard/internal/i18n"
	"dashboard/internal/session"
)

// fakeSchool is a stand-in attendance backend.
type fakeSchool struct {
	mu        sync.Mutex
	status    map[string]string
	feed      []backend.AuditEntry
	rejectAll bool
	failWrite bool
	meFails   int
	noScope   bool
	meCalls   int
	paths     []string
}

func newFakeSchool() *fakeSchool {
	return &fakeSchool{status: map[string]string{"1": "Present"}}
}

func (f *fakeSchool) set(fn func(f *fakeSchool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeSchool) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.URL.Path)

	if r.URL.Path != "/api/auth/login" && (f.rejectAll || r.Header.Get("Authorization") != "Bearer backend-token") {
		writeJSON(w, http.StatusUnauthorized, gin.H{"message": "Token is not valid"})
		return
	}

	switch {
	case r.URL.Path == "/api/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "teacher" || body["password"] != "secret" {
			writeJSON(w, http.StatusBadRequest, gin.H{})
			return
		}
		writeJSON(w, http.StatusOK, gin.H{"token": "backend-token"})
	case r.URL.Path == "/api/auth/me":
		f.meCalls++
		switch {
		case f.meFails > 0:
			f.meFails--
			writeJSON(w, http.StatusInternalServerError, gin.H{"message": "profile service down"})
		case f.noScope:
			writeJSON(w, http.StatusOK, gin.H{"_id": "t1", "name": "Mrs. Kaur", "role": "teacher"})
		default:
			writeJSON(w, http.StatusOK, gin.H{"_id": "t1", "name": "Mrs. Kaur", "role": "teacher", "teacherSchoolId": "T-1"})
		}
	case r.URL.Path == "/api/auth/students" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, []gin.H{
			{"_id": "1", "name": "Aarav Sharma", "rollNumber": "001", "uid": "RFID-1"},
			{"_id": "2", "name": "Rahul Kumar", "rollNumber": "003", "uid": "RFID-2"},
		})
	case r.URL.Path == "/api/auth/register":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, gin.H{"_id": "3", "name": body["name"], "username": body["username"], "teacherSchoolId": body["teacherSchoolId"]})
	case r.URL.Path == "/api/attendance/today/T-1":
		var out []gin.H
		for _, id := range []string{"1", "2"} {
			if st, ok := f.status[id]; ok {
				out = append(out, gin.H{"studentId": id, "status": st, "time": "08:15"})
			}
		}
		writeJSON(w, http.StatusOK, out)
	case r.URL.Path == "/api/attendance/summary/T-1":
		writeJSON(w, http.StatusOK, gin.H{"total": 3, "present": 2, "absent": 1})
	case r.URL.Path == "/api/attendance/manual-update":
		if f.failWrite {
			writeJSON(w, http.StatusInternalServerError, gin.H{"message": "database unavailable"})
			return
		}
		var req backend.ManualUpdate
		_ = json.NewDecoder(r.Body).Decode(&req)
		id := strings.TrimPrefix(req.UID, "RFID-")
		orig := "absent"
		if strings.EqualFold(f.status[id], "present") {
			orig = "present"
		}
		f.status[id] = req.Status
		f.feed = append([]backend.AuditEntry{{ID: "a1", UID: req.UID, OriginalStatus: orig, NewStatus: req.Status, Note: req.Note}}, f.feed...)
		writeJSON(w, http.StatusOK, gin.H{"message": "Attendance updated", "attendance": gin.H{"status": req.Status}})
	case r.URL.Path == "/api/attendance/manual-overrides":
		writeJSON(w, http.StatusOK, f.feed)
	case r.URL.Path == "/api/assignments":
		writeJSON(w, http.StatusCreated, gin.H{"message": "ok"})
	default:
		writeJSON(w, http.StatusNotFound, gin.H{"message": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	school  *fakeSchool
	router  *gin.Engine
	store   *session.Memory
	handler *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvTTL(t, time.Hour)
}

func newTestEnvTTL(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	school := newFakeSchool()
	srv := httptest.NewServer(school)
	t.Cleanup(srv.Close)

	store := session.NewMemory(ttl)
	h := New(backend.New(srv.URL, time.Second), store, i18n.Default(), Options{
		SigningKey: "test-key",
		Issuer:     "test",
		SessionTTL: time.Hour,
		TimeLayout: "15:04",
		Location:   time.UTC,
	})
	r := gin.New()
	h.Register(r, func(c *gin.Context) { c.Next() })
	return &testEnv{school: school, router: r, store: store, handler: h}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(raw))
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (e *testEnv) login(t *testing.T, lang string) string {
	t.Helper()
	w, out := e.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "teacher", "password": "secret", "language": lang})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tok, _ := out["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func records(t *testing.T, out map[string]any) []map[string]any {
	t.Helper()
	raw, ok := out["records"].([]any)
	require.True(t, ok, "records missing: %v", out)
	recs := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		recs = append(recs, r.(map[string]any))
	}
	return recs
}

func TestLoginAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, out := env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	recs := records(t, out)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0]["id"])
	assert.Equal(t, "present", recs[0]["status"])
	assert.Equal(t, "08:15", recs[0]["time"])
	assert.Equal(t, "2", recs[1]["id"])
	assert.Equal(t, "absent", recs[1]["status"])
	assert.Equal(t, "-", recs[1]["time"])

	summary := out["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["totalStudents"])
	assert.EqualValues(t, 1, summary["presentCount"])
	assert.EqualValues(t, 50, summary["attendanceRate"])
	assert.Equal(t, "Mrs. Kaur", out["teacher"])
}

func TestLoginRejected(t *testing.T) {
	env := newTestEnv(t)

	w, out := env.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "teacher", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", out["error"])

	w, _ = env.do(t, http.MethodPost, "/api/login", "", gin.H{"username": "teacher"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordsFilter(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, out := env.do(t, http.MethodGet, "/api/dashboard/records?q=rahul", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	recs := records(t, out)
	require.Len(t, recs, 1)
	assert.Equal(t, "2", recs[0]["id"])

	_, out = env.do(t, http.MethodGet, "/api/dashboard/records?status=present", tok, nil)
	recs = records(t, out)
	require.Len(t, recs, 1)
	assert.Equal(t, "1", recs[0]["id"])

	w, _ = env.do(t, http.MethodGet, "/api/dashboard/records?status=late", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverrideFlow(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, _ := env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, out := env.do(t, http.MethodPost, "/api/overrides", tok, gin.H{"studentId": "2", "status": "present", "note": "late bus"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Attendance updated", out["message"])
	ov := out["override"].(map[string]any)
	assert.Equal(t, "absent", ov["originalStatus"])
	assert.Equal(t, "present", ov["newStatus"])
	assert.NotEqual(t, "-", ov["time"])

	_, out = env.do(t, http.MethodGet, "/api/dashboard/records?status=present", tok, nil)
	assert.Len(t, records(t, out), 2)

	w, out = env.do(t, http.MethodGet, "/api/overrides", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := out["overrides"].([]any)
	require.Len(t, feed, 1)
	entry := feed[0].(map[string]any)
	assert.Equal(t, "RFID-2", entry["uid"])
	assert.Equal(t, "absent", entry["originalStatus"])
	assert.Equal(t, "present", entry["newStatus"])
}

func TestOverrideFailureKeepsBoard(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")
	env.school.set(func(f *fakeSchool) { f.failWrite = true })

	w, out := env.do(t, http.MethodPost, "/api/overrides", tok, gin.H{"studentId": "2", "status": "present"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "database unavailable", out["error"])

	_, out = env.do(t, http.MethodGet, "/api/dashboard/records", tok, nil)
	recs := records(t, out)
	assert.Equal(t, "absent", recs[1]["status"])
}

func TestOverrideValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, _ := env.do(t, http.MethodPost, "/api/overrides", tok, gin.H{"studentId": "2", "status": "late"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPost, "/api/overrides", tok, gin.H{"studentId": "42", "status": "present"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackendAuthFailureEndsSession(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "pa")
	env.school.set(func(f *fakeSchool) { f.rejectAll = true })

	w, out := env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, i18n.Default().T(i18n.Punjabi, "session_expired"), out["error"])

	env.school.set(func(f *fakeSchool) { f.rejectAll = false })
	w, out = env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "session expired", out["error"])
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, _ := env.do(t, http.MethodPost, "/api/logout", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/profile", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLanguageSwitch(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, out := env.do(t, http.MethodPut, "/api/language", tok, gin.H{"language": "pa"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pa", out["language"])
	tr := out["translations"].(map[string]any)
	assert.Equal(t, i18n.Default().T(i18n.Punjabi, "present"), tr["present"])

	_, out = env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
	assert.Equal(t, "pa", out["language"])

	w, _ = env.do(t, http.MethodPut, "/api/language", tok, gin.H{"language": "fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslationsPublic(t *testing.T) {
	env := newTestEnv(t)

	w, out := env.do(t, http.MethodGet, "/api/i18n/en", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Present", out["translations"].(map[string]any)["present"])

	w, _ = env.do(t, http.MethodGet, "/api/i18n/xx", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentsAndSummary(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, out := env.do(t, http.MethodGet, "/api/students?q=003", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, out["total"])
	assert.Len(t, out["students"], 1)

	w, out = env.do(t, http.MethodPost, "/api/students", tok, gin.H{"name": "Priya Patel", "username": "priya", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	st := out["student"].(map[string]any)
	assert.Equal(t, "T-1", st["teacherSchoolId"])

	w, _ = env.do(t, http.MethodPost, "/api/students", tok, gin.H{"name": "No Password", "username": "np"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out = env.do(t, http.MethodGet, "/api/summary", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 67, out["attendanceRate"])
}

func TestPostAssignment(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")

	w, out := env.do(t, http.MethodPost, "/api/assignments", tok, gin.H{
		"title": "Fractions", "description": "Worksheet 4", "subject": "Math",
		"dueDate": "2026-10-20", "class": "5", "section": "A", "studentIds": "1, 2,,",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	a := out["assignment"].(map[string]any)
	assert.Equal(t, "5-A", a["classId"])
	assert.Equal(t, "medium", a["priority"])
	assert.Equal(t, "Mrs. Kaur", a["assignedBy"])
	assert.Equal(t, []any{"1", "2"}, a["studentIds"])

	w, _ = env.do(t, http.MethodPost, "/api/assignments", tok, gin.H{"title": "x", "priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSplitIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitIDs("a, b,,c"))
	assert.Equal(t, []string{}, splitIDs(""))
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w, out := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestExpiredSessionDropsBoard(t *testing.T) {
	env := newTestEnvTTL(t, 200*time.Millisecond)

	var tokens []string
	for i := 0; i < 3; i++ {
		tok := env.login(t, "en")
		w, _ := env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		tokens = append(tokens, tok)
	}
	require.Equal(t, 3, env.handler.boards.Len())

	time.Sleep(300 * time.Millisecond)
	for _, tok := range tokens {
		w, out := env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "session expired", out["error"])
	}
	assert.Zero(t, env.handler.boards.Len())
}

func TestLogoutReleasesBoardOnce(t *testing.T) {
	env := newTestEnv(t)
	tok := env.login(t, "en")
	assert.Equal(t, 1, env.handler.boards.Len())

	w, _ := env.do(t, http.MethodPost, "/api/logout", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, env.handler.boards.Len())

	w, _ = env.do(t, http.MethodPost, "/api/logout", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, env.handler.boards.Len())
}

func TestSchoolScopeResolvedOnce(t *testing.T) {
	env := newTestEnv(t)
	env.school.set(func(f *fakeSchool) { f.meFails = 1 })
	tok := env.login(t, "en")

	for i := 0; i < 3; i++ {
		w, out := env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, records(t, out), 2)
		assert.Equal(t, "Mrs. Kaur", out["teacher"])
	}
	env.school.set(func(f *fakeSchool) {
		assert.Equal(t, 2, f.meCalls, "one failed call at login, one on the first refresh")
	})
}

func TestMissingSchoolScope(t *testing.T) {
	env := newTestEnv(t)
	env.school.set(func(f *fakeSchool) { f.noScope = true })
	tok := env.login(t, "en")

	w, out := env.do(t, http.MethodGet, "/api/dashboard", tok, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "teacher profile has no school", out["error"])

	w, _ = env.do(t, http.MethodGet, "/api/summary", tok, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	env.school.set(func(f *fakeSchool) {
		for _, p := range f.paths {
			assert.False(t, strings.HasPrefix(p, "/api/attendance/"), "unexpected request to %s", p)
		}
	})
}
