package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard/internal/config"
	"dashboard/internal/session"
	"dashboard/internal/store"
)

// Worker removes expired sessions from Postgres. Redis and memory stores
// expire entries on their own.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.SessionBackend != "postgres" {
		log.Printf("session backend %q needs no purging, exiting", cfg.SessionBackend)
		return
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	sessions := session.NewPostgres(db.Client, cfg.SessionTTL)

	ticker := time.NewTicker(cfg.SessionPurgeEvery)
	defer ticker.Stop()

	log.Printf("worker started, purging expired sessions every %s", cfg.SessionPurgeEvery)
	for {
		n, err := sessions.Purge(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Printf("session purge failed: %v", err)
		case n > 0:
			log.Printf("purged %d expired sessions", n)
		}

		select {
		case <-ctx.Done():
			log.Println("worker stopped")
			return
		case <-ticker.C:
		}
	}
}
