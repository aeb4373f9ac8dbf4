package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/optica-backoffice/cash-ledger/internal/api"
	"github.com/optica-backoffice/cash-ledger/internal/api/service"
	"github.com/optica-backoffice/cash-ledger/internal/config"
	"github.com/optica-backoffice/cash-ledger/internal/data/mongo"
	"github.com/optica-backoffice/cash-ledger/internal/data/postgres"
	"github.com/optica-backoffice/cash-ledger/internal/logger"
	"github.com/optica-backoffice/cash-ledger/internal/platform/messaging/producers"
	"github.com/optica-backoffice/cash-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for settlement requests
	kafkaProducer, err := producers.NewSettlementReqMessageProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize settlement Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	pettyRegisterRepo := mongo.NewPettyRegisterRepository(log, mongoDB.Database())
	pettyMovementRepo := mongo.NewPettyMovementRepository(log, mongoDB.Database())
	bankRegisterRepo := mongo.NewBankRegisterRepository(log, mongoDB.Database())
	bankMovementRepo := mongo.NewBankMovementRepository(log, mongoDB.Database())
	settlementRepo := postgres.NewSettlementRepository(log, postgresDB)

	// Initialize services
	openCache := service.NewOpenRegisterCache()
	pettyService := service.NewPettyCashService(log, pettyRegisterRepo, pettyMovementRepo, bankRegisterRepo, settlementRepo, kafkaProducer, openCache)
	bankService := service.NewBankCashService(log, bankRegisterRepo, bankMovementRepo, pettyRegisterRepo)

	// Initialize REST server
	server := api.NewServer(log, cfg, pettyService, bankService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
