package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dashboard/internal/backend"
	"dashboard/internal/config"
	"dashboard/internal/handler"
	"dashboard/internal/httpmiddleware"
	"dashboard/internal/i18n"
	"dashboard/internal/session"
	"dashboard/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if isProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func isProduction(cfg config.App) bool {
	return cfg.Env == "production" || cfg.Env == "prod"
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions, closer, checks, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	log.Printf("attendance backend: %s", cfg.BackendURL)

	h := handler.New(client, sessions, i18n.Default(), handler.Options{
		SigningKey:   cfg.JWTSigningKey,
		Issuer:       cfg.JWTIssuer,
		SessionTTL:   cfg.SessionTTL,
		TimeLayout:   cfg.TimeLayout,
		Location:     cfg.Location(),
		SecureCookie: isProduction(cfg),
	})
	for name, check := range checks {
		h.AddHealthCheck(name, check)
	}
	go h.SweepBoards(ctx, cfg.SessionPurgeEvery)

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     splitOrigins(cfg.AllowedOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	// Security headers
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	loginLimiter := httpmiddleware.NewLimiter(cfg.LoginRatePerMin/2, cfg.LoginRatePerMin)
	h.Register(r, loginLimiter.Middleware(httpmiddleware.ClientIP))

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSessionStore picks the session backend named by SESSION_BACKEND.
func openSessionStore(ctx context.Context, cfg config.App) (session.Store, io.Closer, map[string]handler.HealthCheck, error) {
	switch cfg.SessionBackend {
	case "memory":
		log.Println("sessions kept in memory; they do not survive a restart")
		return session.NewMemory(cfg.SessionTTL), nopCloser{}, nil, nil
	case "redis":
		rdb := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if !rdb.Healthy(ctx) {
			log.Printf("warning: redis not reachable at %s", cfg.RedisAddr)
		}
		checks := map[string]handler.HealthCheck{"redis": rdb.Healthy}
		return session.NewRedis(rdb.Client, "dashboard:session:", cfg.SessionTTL), rdb, checks, nil
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("session db: %w", err)
		}
		checks := map[string]handler.HealthCheck{"db": db.Healthy}
		return session.NewPostgres(db.Client, cfg.SessionTTL), db, checks, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown SESSION_BACKEND %q (want memory, redis or postgres)", cfg.SessionBackend)
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = []string{"http://localhost:3000"}
	}
	return out
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
