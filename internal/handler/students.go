package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dashboard/internal/backend"
	"dashboard/internal/roster"
)

// ---------- Student Management ----------

type studentRequest struct {
	Name       string `json:"name"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	RollNumber string `json:"rollNumber"`
	Class      string `json:"class"`
	Section    string `json:"section"`
	SchoolID   string `json:"schoolId"`
	UID        string `json:"uid"`
}

func (r studentRequest) input(teacherSchoolID string) backend.StudentInput {
	role := strings.TrimSpace(r.Role)
	if role == "" {
		role = "student"
	}
	return backend.StudentInput{
		Name:            strings.TrimSpace(r.Name),
		Username:        strings.TrimSpace(r.Username),
		Password:        r.Password,
		Role:            role,
		RollNumber:      strings.TrimSpace(r.RollNumber),
		Class:           strings.TrimSpace(r.Class),
		Section:         strings.TrimSpace(r.Section),
		SchoolID:        strings.TrimSpace(r.SchoolID),
		TeacherSchoolID: teacherSchoolID,
		UID:             strings.TrimSpace(r.UID),
	}
}

// ListStudents returns the roster, optionally narrowed by ?q=.
func (h *Handler) ListStudents(c *gin.Context) {
	sess := h.currentSession(c)
	students, err := h.backend.Students(c.Request.Context(), sess.Token)
	if err != nil {
		h.fail(c, sess, "list students", err)
		return
	}
	matched := roster.SearchStudents(students, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"students": matched, "total": len(students)})
}

// CreateStudent registers a student under the teacher's school.
func (h *Handler) CreateStudent(c *gin.Context) {
	sess := h.currentSession(c)
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := req.input(sess.TeacherSchoolID)
	if in.Name == "" || in.Username == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": h.catalog.T(sess.Language, "required_fields")})
		return
	}
	st, err := h.backend.RegisterStudent(c.Request.Context(), sess.Token, in)
	if err != nil {
		h.fail(c, sess, "register student", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": st, "message": h.catalog.T(sess.Language, "student_added")})
}

// UpdateStudent edits a student. The password is only sent when given.
func (h *Handler) UpdateStudent(c *gin.Context) {
	sess := h.currentSession(c)
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := req.input(sess.TeacherSchoolID)
	if in.Name == "" || in.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": h.catalog.T(sess.Language, "required_fields")})
		return
	}
	st, err := h.backend.UpdateStudent(c.Request.Context(), sess.Token, c.Param("id"), in)
	if err != nil {
		h.fail(c, sess, "update student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": st, "message": h.catalog.T(sess.Language, "student_updated")})
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	sess := h.currentSession(c)
	if err := h.backend.DeleteStudent(c.Request.Context(), sess.Token, c.Param("id")); err != nil {
		h.fail(c, sess, "delete student", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "message": h.catalog.T(sess.Language, "student_deleted")})
}
