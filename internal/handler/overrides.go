package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/internal/override"
)

// ---------- Manual Override ----------

type overrideRequest struct {
	StudentID string `json:"studentId" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Note      string `json:"note"`
}

// SubmitOverride corrects one student's status for today. The session's
// board reflects the change only after the backend accepts it.
func (h *Handler) SubmitOverride(c *gin.Context) {
	sess := h.currentSession(c)
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	board := h.boards.Get(sess.ID)
	if !board.Loaded() {
		if err := board.Refresh(c.Request.Context(), h.loader(&sess)); err != nil {
			h.fail(c, sess, "dashboard refresh", err)
			return
		}
	}

	res, err := h.overrides.Submit(c.Request.Context(), sess.Token, board, override.Request{
		StudentID: req.StudentID,
		Status:    req.Status,
		Note:      req.Note,
	})
	if err != nil {
		h.fail(c, sess, "manual override", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"override": res,
		"message":  h.catalog.T(sess.Language, "attendance_updated"),
	})
}

// RecentOverrides returns the backend's audit feed.
func (h *Handler) RecentOverrides(c *gin.Context) {
	sess := h.currentSession(c)
	entries, err := h.overrides.Recent(c.Request.Context(), sess.Token)
	if err != nil {
		h.fail(c, sess, "recent overrides", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"overrides": entries})
}
