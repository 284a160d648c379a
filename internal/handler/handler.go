package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard/internal/auth"
	"dashboard/internal/backend"
	"dashboard/internal/i18n"
	"dashboard/internal/override"
	"dashboard/internal/roster"
	"dashboard/internal/session"
)

// Options configures session tokens and time rendering.
type Options struct {
	SigningKey   string
	Issuer       string
	SessionTTL   time.Duration
	TimeLayout   string
	Location     *time.Location
	SecureCookie bool
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

type Handler struct {
	backend   *backend.Client
	sessions  session.Store
	boards    *roster.Boards
	overrides *override.Service
	catalog   *i18n.Catalog
	opts      Options
	health    map[string]HealthCheck
}

func New(b *backend.Client, sessions session.Store, catalog *i18n.Catalog, opts Options) *Handler {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TimeLayout == "" {
		opts.TimeLayout = roster.DefaultTimeLayout
	}
	clock := func() string {
		return time.Now().In(opts.Location).Format(opts.TimeLayout)
	}
	return &Handler{
		backend:   b,
		sessions:  sessions,
		boards:    roster.NewBoards(),
		overrides: override.NewService(b, override.WithClock(clock)),
		catalog:   catalog,
		opts:      opts,
		health:    make(map[string]HealthCheck),
	}
}

// AddHealthCheck includes a dependency in /healthz.
func (h *Handler) AddHealthCheck(name string, check HealthCheck) {
	h.health[name] = check
}

// Register mounts the dashboard routes. loginGuard runs in front of login.
func (h *Handler) Register(r *gin.Engine, loginGuard gin.HandlerFunc) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/i18n/:lang", h.Translations)
	api.POST("/login", loginGuard, h.Login)

	authed := api.Group("", auth.SessionAuth(h.opts.SigningKey, h.opts.Issuer, h.sessions, h.forget))
	{
		authed.POST("/logout", h.Logout)
		authed.PUT("/language", h.SetLanguage)
		authed.GET("/profile", h.Profile)

		authed.GET("/dashboard", h.Dashboard)
		authed.GET("/dashboard/records", h.Records)
		authed.GET("/summary", h.Summary)

		authed.GET("/students", h.ListStudents)
		authed.POST("/students", h.CreateStudent)
		authed.PUT("/students/:id", h.UpdateStudent)
		authed.DELETE("/students/:id", h.DeleteStudent)

		authed.POST("/overrides", h.SubmitOverride)
		authed.GET("/overrides", h.RecentOverrides)

		authed.POST("/assignments", h.PostAssignment)
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Errors ----------

// fail logs err and answers with a message the page can show as a toast.
// Nothing here is fatal; the teacher can retry the action.
func (h *Handler) fail(c *gin.Context, sess session.Session, action string, err error) {
	log.Printf("%s failed: %v", action, err)
	lang := sess.Language

	var be *backend.Error
	switch {
	case errors.Is(err, override.ErrInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": h.catalog.T(lang, "override_in_progress")})
	case errors.Is(err, override.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, override.ErrUnknownStudent):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, roster.ErrStale), errors.Is(err, roster.ErrClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &be) && be.Kind == backend.KindAuth:
		h.teardown(c, sess)
		c.JSON(http.StatusUnauthorized, gin.H{"error": h.catalog.T(lang, "session_expired")})
	case errors.As(err, &be) && be.Kind == backend.KindTransport:
		c.JSON(http.StatusBadGateway, gin.H{"error": h.catalog.T(lang, "server_error")})
	case errors.As(err, &be) && be.Status >= 400 && be.Status < 500:
		c.JSON(be.Status, gin.H{"error": backend.UserMessage(err)})
	case errors.As(err, &be):
		c.JSON(http.StatusBadGateway, gin.H{"error": backend.UserMessage(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": h.catalog.T(lang, "server_error")})
	}
}

// teardown ends a session: the stored record and its board are dropped.
func (h *Handler) teardown(c *gin.Context, sess session.Session) {
	if sess.ID == "" {
		return
	}
	if err := h.sessions.Delete(c.Request.Context(), sess.ID); err != nil {
		log.Printf("session delete failed: %v", err)
	}
	h.boards.Drop(sess.ID)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.opts.SecureCookie, true)
}

// forget drops the view state of a session that has expired from the store.
func (h *Handler) forget(sessionID string) {
	if h.boards.Drop(sessionID) {
		log.Printf("dropped board of expired session %s", sessionID)
	}
}

// SweepBoards drops boards left idle for longer than the session TTL, which
// covers sessions that expire without another request. It blocks until ctx
// is done.
func (h *Handler) SweepBoards(ctx context.Context, every time.Duration) {
	h.boards.Run(ctx, every, h.opts.SessionTTL)
}

func (h *Handler) currentSession(c *gin.Context) session.Session {
	sess, _ := auth.Current(c)
	return sess
}
