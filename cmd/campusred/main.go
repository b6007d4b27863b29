package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tmardones/campusred/internal/catalog"
	"github.com/tmardones/campusred/internal/database"
	"github.com/tmardones/campusred/internal/logging"
	"github.com/tmardones/campusred/internal/server"
)

func main() {
	// Missing .env is fine; the environment may be set by the supervisor.
	_ = godotenv.Load()

	port := os.Getenv("CAMPUSRED_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CAMPUSRED_DB_PATH")
	if dbPath == "" {
		dbPath = "campusred.db"
	}

	logger := logging.Setup(os.Getenv("CAMPUSRED_LOG_LEVEL"), os.Getenv("CAMPUSRED_LOG_FORMAT"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	cat, err := loadCatalog(os.Getenv("CAMPUSRED_CATALOG"))
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	srv := server.New(db, cat, logger)

	// Expired sessions pile up otherwise.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("delete expired sessions", "error", err)
			}
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("CampusRed running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// loadCatalog reads the campus catalog from path, or the embedded seed when
// no path is configured.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}
