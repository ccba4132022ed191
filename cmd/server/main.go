/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the society dues engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and optional config file
  2. Initialize store (SQLite or in-memory)
  3. Create API handler with dependencies
  4. Start the auto-backup scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database
  -config  Path to a YAML config file (optional)

CONFIGURATION:
  Defaults < config file < DUES_* environment variables < flags.
  See config/config.go for the full set of keys.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the backup scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/dues.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/digitalsociety/dues-engine/api"
	"github.com/digitalsociety/dues-engine/backup"
	"github.com/digitalsociety/dues-engine/config"
	"github.com/digitalsociety/dues-engine/ledger"
	memstore "github.com/digitalsociety/dues-engine/ledger/store"
	"github.com/digitalsociety/dues-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Driver = "sqlite"
		cfg.Store.Path = *dbPath
	}

	// Initialize store
	var (
		repos   ledger.Repos
		history backup.HistoryStore
		setting backup.SettingsStore
	)
	switch cfg.Store.Driver {
	case "memory":
		mem := memstore.NewMemory()
		repos = mem.Repos()
		history = backup.NewMemoryHistory()
		setting = backup.NewMemorySettings()
	default:
		store, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer store.Close()
		repos = store.Repos()
		history = store.BackupHistory()
		setting = store.BackupSettings()
	}

	// Initialize handler and scheduler
	backups := backup.NewManager(repos, history, setting)
	handler := api.NewHandler(repos, backups)

	scheduler := api.NewBackupScheduler(backups)
	if interval, err := time.ParseDuration(cfg.Backup.CheckInterval); err == nil && interval > 0 {
		scheduler.CheckInterval = interval
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Addr, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.HTTP.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.HTTP.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
