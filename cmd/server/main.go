package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agrifusion/internal/config"
	"agrifusion/internal/handlers"
	"agrifusion/internal/repository"
	"agrifusion/internal/services"
	"agrifusion/pkg/database"
	"agrifusion/pkg/logging"
	"agrifusion/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if !cfg.DatabaseEnabled() {
		fmt.Fprintln(os.Stderr, "The API server needs a database, set AGRIFUSION_DATABASE_DRIVER")
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("agrifusion-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info(ctx, "[STARTUP] Starting AgriFusion dataset API server", logging.Fields{
		"version":     version,
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
		"db_name":     cfg.Database.Name,
	})

	metricsCollector := metrics.NewCollector("agrifusion")

	db, err := database.Open(ctx, cfg.DatabaseOptions(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()
	db.StartPoolMonitor(ctx, 15*time.Second)

	datasetRepo := repository.NewDatasetRepository(db, logger, metricsCollector)
	if err := datasetRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to prepare schema", logging.Fields{}, err)
	}

	datasetService := services.NewDatasetService(datasetRepo, services.DefaultDatasetSpecs(), logger, metricsCollector)
	datasetHandler := handlers.NewDatasetHandler(datasetService, logger, metricsCollector)

	router := mux.NewRouter()
	datasetHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	handler := gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(true))(router)
	handler = gorillahandlers.CompressHandler(handler)
	handler = gorillahandlers.CombinedLoggingHandler(os.Stdout, handler)

	server := &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
