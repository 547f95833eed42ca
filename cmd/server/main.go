/*
main.go - Application entry point

PURPOSE:
  Starts the coursework API: tasks, late penalty schedules and submission
  assessment, plus the built front-end.

STARTUP SEQUENCE:
  1. Load configuration (environment, then flags)
  2. Initialize SQLite store
  3. Create API handler and router
  4. Start server with graceful shutdown

CONFIGURATION:
  COURSEWORK_PORT              -port              HTTP port (default 8080)
  COURSEWORK_DB                -db                SQLite path (default coursework.db)
  COURSEWORK_STATIC_DIR        -static            Front-end build dir (default ./web/dist)
  COURSEWORK_CORS_ORIGINS                         Comma-separated allowed origins
  COURSEWORK_SHUTDOWN_TIMEOUT  -shutdown-timeout  Graceful shutdown timeout (default 30s)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete
  3. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/coursework/api"
	"github.com/warp/coursework/store/sqlite"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	router := api.NewRouter(api.NewHandler(store), api.Options{
		AllowedOrigins: cfg.CORSOrigins,
		StaticDir:      cfg.StaticDir,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost:%d (db=%s)", cfg.Port, cfg.DBPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
