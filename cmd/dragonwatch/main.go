package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm/logger"

	"github.com/dragonwatch/dragonwatch/internal/config"
	"github.com/dragonwatch/dragonwatch/internal/database"
	"github.com/dragonwatch/dragonwatch/internal/geo"
	"github.com/dragonwatch/dragonwatch/internal/handlers"
	"github.com/dragonwatch/dragonwatch/internal/jobs"
	"github.com/dragonwatch/dragonwatch/internal/notify"
	"github.com/dragonwatch/dragonwatch/internal/services"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting Dragonwatch correlation engine...")

	// Initialize database connection
	if err := database.Connect(cfg.DatabaseURL, logger.Warn); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run database migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize default database records
	if err := database.InitializeDefaults(); err != nil {
		log.Fatalf("Failed to initialize database defaults: %v", err)
	}

	// Refuse to start with an invalid calibration
	settings, err := database.GetOrCreateCorrelationSettings(database.GetDB())
	if err != nil {
		log.Fatalf("Failed to load correlation settings: %v", err)
	}
	if err := settings.Validate(); err != nil {
		log.Fatalf("Invalid correlation settings: %v", err)
	}

	// Load the region catalog
	var regions *geo.Registry
	if cfg.RegionsFile != "" {
		regions, err = geo.LoadRegistry(cfg.RegionsFile)
		if err != nil {
			log.Fatalf("Failed to load region catalog from %s: %v", cfg.RegionsFile, err)
		}
		log.Printf("Region catalog loaded from %s (%d regions)", cfg.RegionsFile, len(regions.Regions()))
	} else {
		regions = geo.NewDefaultRegistry()
		log.Printf("Using built-in region catalog (%d regions)", len(regions.Regions()))
	}

	// Initialize services
	alertService := services.NewAlertService(database.GetDB())
	correlationService := services.NewCorrelationService(database.GetDB(), regions, alertService)
	log.Printf("Correlation services initialized")

	// Wire websocket broadcasting of alert updates
	alertWSHandler := handlers.NewAlertWSHandler()
	alertService.SetUpdateListener(alertWSHandler.Broadcast)

	// Wire Slack escalation notifications if configured
	if notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertsChannel); notifier != nil {
		alertService.SetEscalationListener(notifier.NotifyEscalation)
		log.Printf("Slack escalation notifications enabled for channel %s", cfg.SlackAlertsChannel)
	} else {
		log.Printf("Slack escalation notifications disabled (set SLACK_BOT_TOKEN and SLACK_ALERTS_CHANNEL)")
	}

	// Set up HTTP server routes
	apiHandler := handlers.NewAPIHandler(alertService, correlationService)
	mux := http.NewServeMux()
	apiHandler.SetupRoutes(mux)
	alertWSHandler.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: mux,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Start the periodic correlation job
	stopJob := make(chan struct{})
	correlationJob := jobs.NewCorrelationJob(correlationService)
	go correlationJob.Start(stopJob)
	log.Printf("Correlation job started (interval %d minutes)", settings.PassIntervalMinutes)

	log.Printf("Correlation trigger endpoint: http://localhost:%d/api/correlate", cfg.HTTPPort)
	log.Printf("Alerts API: http://localhost:%d/api/alerts", cfg.HTTPPort)
	log.Printf("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(stopJob)
	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := database.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
	log.Println("Shutdown complete")
}
