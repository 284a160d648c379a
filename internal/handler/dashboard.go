package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard/internal/backend"
	"dashboard/internal/roster"
	"dashboard/internal/session"
)

// Dashboard mounts the attendance view: profile, roster and today's events
// are fetched in turn, merged onto the session's board and filtered.
func (h *Handler) Dashboard(c *gin.Context) {
	sess := h.currentSession(c)
	status, err := roster.ParseStatusFilter(c.Query("status"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	board := h.boards.Get(sess.ID)
	if err := board.Refresh(c.Request.Context(), h.loader(&sess)); err != nil {
		h.fail(c, sess, "dashboard refresh", err)
		return
	}
	h.renderBoard(c, sess, board, c.Query("q"), status)
}

// Records filters the already loaded board without refetching. It loads the
// board first if nothing has been committed yet.
func (h *Handler) Records(c *gin.Context) {
	sess := h.currentSession(c)
	status, err := roster.ParseStatusFilter(c.Query("status"))
	if err != nil {
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
	h.renderBoard(c, sess, board, c.Query("q"), status)
}

func (h *Handler) renderBoard(c *gin.Context, sess session.Session, board *roster.Board, term string, status roster.StatusFilter) {
	all := board.Snapshot()
	visible := roster.Filter(all, term, status)
	c.JSON(http.StatusOK, gin.H{
		"language": sess.Language,
		"summary":  roster.Summarize(all),
		"records":  visible,
		"filter":   gin.H{"q": term, "status": status},
		"teacher":  sess.TeacherName,
		"loadedAt": time.Now().In(h.opts.Location).Format(h.opts.TimeLayout),
	})
}

func (h *Handler) loader(sess *session.Session) roster.LoadFunc {
	return func(ctx context.Context) ([]roster.DisplayRecord, error) {
		schoolID, err := h.schoolID(ctx, sess)
		if err != nil {
			return nil, err
		}
		students, err := h.backend.Students(ctx, sess.Token)
		if err != nil {
			return nil, err
		}
		events, err := h.backend.TodayAttendance(ctx, sess.Token, schoolID)
		if err != nil {
			return nil, err
		}
		return roster.Merge(students, events,
			roster.WithTimeLayout(h.opts.TimeLayout),
			roster.WithLocation(h.opts.Location),
		), nil
	}
}

// schoolID returns the scope cached on the session or asks the backend and
// stores the answer on sess and in the session store.
func (h *Handler) schoolID(ctx context.Context, sess *session.Session) (string, error) {
	if sess.TeacherSchoolID != "" {
		return sess.TeacherSchoolID, nil
	}
	profile, err := h.backend.Me(ctx, sess.Token)
	if err != nil {
		return "", err
	}
	scope := profile.ScopeID()
	if scope == "" {
		return "", &backend.Error{Kind: backend.KindStatus, Message: "teacher profile has no school"}
	}
	sess.TeacherSchoolID = scope
	if sess.TeacherName == "" {
		sess.TeacherName = profile.Name
	}
	if err := h.sessions.Save(ctx, *sess); err != nil {
		log.Printf("session save failed: %v", err)
	}
	return scope, nil
}

// Summary proxies the backend's aggregate counts.
func (h *Handler) Summary(c *gin.Context) {
	sess := h.currentSession(c)
	schoolID, err := h.schoolID(c.Request.Context(), &sess)
	if err != nil {
		h.fail(c, sess, "summary", err)
		return
	}
	sum, err := h.backend.Summary(c.Request.Context(), sess.Token, schoolID)
	if err != nil {
		h.fail(c, sess, "summary", err)
		return
	}
	c.JSON(http.StatusOK, roster.NewSummary(sum.Total, sum.Present, sum.Absent))
}
