package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dashboard/internal/backend"
)

type assignmentRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description" binding:"required"`
	Subject       string `json:"subject" binding:"required"`
	Priority      string `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate       string `json:"dueDate" binding:"required"`
	EstimatedTime string `json:"estimatedTime"`
	AssignedBy    string `json:"assignedBy"`
	Class         string `json:"class" binding:"required"`
	Section       string `json:"section" binding:"required"`
	StudentIDs    string `json:"studentIds"`
}

// PostAssignment forwards an assignment from the notifications page.
func (h *Handler) PostAssignment(c *gin.Context) {
	sess := h.currentSession(c)
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": h.catalog.T(sess.Language, "required_fields")})
		return
	}

	a := backend.Assignment{
		Title:         req.Title,
		Description:   req.Description,
		Subject:       req.Subject,
		Priority:      req.Priority,
		DueDate:       req.DueDate,
		EstimatedTime: req.EstimatedTime,
		AssignedBy:    req.AssignedBy,
		ClassID:       req.Class + "-" + req.Section,
		StudentIDs:    splitIDs(req.StudentIDs),
	}
	if a.Priority == "" {
		a.Priority = "medium"
	}
	if a.AssignedBy == "" {
		a.AssignedBy = sess.TeacherName
	}

	if err := h.backend.PostAssignment(c.Request.Context(), sess.Token, a); err != nil {
		h.fail(c, sess, "post assignment", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignment": a, "message": h.catalog.T(sess.Language, "assignment_posted")})
}

// splitIDs turns "a, b,,c" into [a b c].
func splitIDs(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}
