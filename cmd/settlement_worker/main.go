package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/optica-backoffice/cash-ledger/internal/api/service"
	"github.com/optica-backoffice/cash-ledger/internal/config"
	"github.com/optica-backoffice/cash-ledger/internal/data/mongo"
	"github.com/optica-backoffice/cash-ledger/internal/data/postgres"
	"github.com/optica-backoffice/cash-ledger/internal/logger"
	"github.com/optica-backoffice/cash-ledger/internal/platform/messaging/consumers"
	"github.com/optica-backoffice/cash-ledger/internal/platform/messaging/producers"
	"github.com/optica-backoffice/cash-ledger/internal/platform/persistence"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/components"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/consumer"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/journal_poller"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/scheduler"
	workersvc "github.com/optica-backoffice/cash-ledger/internal/settlement_worker/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("settlement_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	pettyRegisterRepo := mongo.NewPettyRegisterRepository(log, mongoDB.Database())
	bankRegisterRepo := mongo.NewBankRegisterRepository(log, mongoDB.Database())
	bankMovementRepo := mongo.NewBankMovementRepository(log, mongoDB.Database())
	settlementRepo := postgres.NewSettlementRepository(log, postgresDB)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize processing service behind the worker pool
	factory := components.NewFactory(log, bankRegisterRepo, bankMovementRepo)
	baseService := workersvc.NewSettlementProcessingService(log, settlementRepo, factory.CreateSettlementApplier())
	processingService, err := workersvc.NewWorkerPoolProcessingService(
		baseService,
		workersvc.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize settlement event handler
	settlementEventHandler := consumer.NewSettlementEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize journal poller
	poller := journal_poller.NewPoller(
		&cfg.Journal,
		settlementRepo,
		processingService,
		log,
	)

	// Initialize month-close scheduler
	bankService := service.NewBankCashService(log, bankRegisterRepo, bankMovementRepo, pettyRegisterRepo)
	monthCloseScheduler, err := scheduler.NewScheduler(log, &cfg.Scheduler, bankService)
	if err != nil {
		log.Error("Failed to initialize month-close scheduler", "error", err)
		os.Exit(1)
	}

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.SettlementTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.SettlementTopic, cfg.Kafka.ConsumerGroup, settlementEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start journal poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting settlement journal poller",
			"interval", cfg.Journal.PollingInterval.String(),
			"batch_size", cfg.Journal.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start month-close scheduler
	monthCloseScheduler.Start()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Stop the cron scheduler, waiting for a running tick
	monthCloseScheduler.Stop()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", processingService.Running())
	processingService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Settlement Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Settlement Worker shutdown completed with errors")
	} else {
		log.Info("Settlement Worker shutdown completed successfully")
	}
}
