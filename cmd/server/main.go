/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the investment engine server. Handles
	configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Load configuration (environment / .env via viper)
 2. Initialize SQLite store
 3. Build the engine (catalog, fee rate, withdrawal minimum)
 4. Configure HTTP router and accrual scheduler
 5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop the accrual scheduler
	2. Stop accepting new connections
	3. Wait for active requests to complete (30s timeout)
	4. Close database connection
	5. Exit

CONFIGURATION (environment or .env):

	PORT               HTTP server port (default: 8080)
	DB_PATH            SQLite database path (default: invest.db)
	FEE_RATE           Withdrawal fee fraction (default: 0.12)
	MIN_WITHDRAWAL     Minimum gross withdrawal (default: 50)
	ACCRUAL_INTERVAL   Scheduler interval (default: 1h)
	SCHEDULER_ENABLED  In-process accrual scheduler (default: true)
	ALLOWED_ORIGINS    CORS allow-list (default: *)

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration loading
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/shopspring/decimal"

	"github.com/nkwazi/invest-engine/api"
	"github.com/nkwazi/invest-engine/config"
	"github.com/nkwazi/invest-engine/engine"
	"github.com/nkwazi/invest-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Build the engine
	catalog, err := engine.NewCatalog(engine.DefaultTiers())
	if err != nil {
		log.Fatalf("Invalid tier catalog: %v", err)
	}
	eng := engine.New(engine.Config{
		FeeRate:       decimal.NewFromFloat(cfg.FeeRate),
		MinWithdrawal: decimal.NewFromFloat(cfg.MinWithdrawal),
	}, store, catalog, engine.LogNotifier{})

	// Initialize handler and router
	handler := api.NewHandler(eng)
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	// Accrual scheduler
	scheduler := api.NewAccrualScheduler(eng)
	scheduler.CheckInterval = cfg.AccrualInterval
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", cfg.Port)
		log.Printf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
