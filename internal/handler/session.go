package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"dashboard/internal/auth"
	"dashboard/internal/backend"
	"dashboard/internal/i18n"
	"dashboard/internal/session"
)

// ---------- Login / Logout ----------

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Language string `json:"language"`
}

// Login authenticates against the backend and opens a dashboard session.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	lang, err := i18n.ParseLanguage(req.Language)
	if err != nil {
		lang = i18n.English
	}

	token, err := h.backend.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("login failed for %q: %v", req.Username, err)
		var be *backend.Error
		switch {
		case errors.As(err, &be) && be.Kind == backend.KindTransport:
			c.JSON(http.StatusBadGateway, gin.H{"error": h.catalog.T(lang, "server_error")})
		case errors.As(err, &be) && be.Status >= 500:
			c.JSON(http.StatusBadGateway, gin.H{"error": backend.UserMessage(err)})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": backend.UserMessage(err)})
		}
		return
	}

	sess := session.New(token, lang)
	profile, err := h.backend.Me(c.Request.Context(), token)
	if err != nil {
		// the dashboard fetches the profile again on mount
		log.Printf("profile fetch after login failed: %v", err)
	} else {
		sess.TeacherSchoolID = profile.ScopeID()
		sess.TeacherName = profile.Name
	}

	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		log.Printf("session save failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": h.catalog.T(lang, "server_error")})
		return
	}
	tok, err := auth.Issue(sess.ID, string(sess.Language), h.opts.Issuer, h.opts.SigningKey, h.opts.SessionTTL)
	if err != nil {
		log.Printf("session token issue failed: %v", err)
		_ = h.sessions.Delete(c.Request.Context(), sess.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	h.boards.Get(sess.ID)

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, tok.Value, int(h.opts.SessionTTL.Seconds()), "/", "", h.opts.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"token":      tok.Value,
		"expires_at": tok.ExpiresAt.Unix(),
		"teacher":    sess.TeacherName,
		"language":   sess.Language,
	})
}

// Logout ends the session and discards its view state.
func (h *Handler) Logout(c *gin.Context) {
	h.teardown(c, h.currentSession(c))
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// ---------- Profile / Language ----------

func (h *Handler) Profile(c *gin.Context) {
	sess := h.currentSession(c)
	profile, err := h.backend.Me(c.Request.Context(), sess.Token)
	if err != nil {
		h.fail(c, sess, "profile", err)
		return
	}
	if scope := profile.ScopeID(); scope != sess.TeacherSchoolID || profile.Name != sess.TeacherName {
		sess.TeacherSchoolID = scope
		sess.TeacherName = profile.Name
		if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
			log.Printf("session save failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile, "language": sess.Language})
}

type languageRequest struct {
	Language string `json:"language" binding:"required"`
}

func (h *Handler) SetLanguage(c *gin.Context) {
	sess := h.currentSession(c)
	var req languageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lang, err := i18n.ParseLanguage(req.Language)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess.Language = lang
	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.fail(c, sess, "language save", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": lang, "translations": h.catalog.Table(lang)})
}

// Translations serves a whole table; it needs no session.
func (h *Handler) Translations(c *gin.Context) {
	lang, err := i18n.ParseLanguage(c.Param("lang"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"language": lang, "translations": h.catalog.Table(lang)})
}
