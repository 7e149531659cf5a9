package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/pipeline"
	"github.com/repolens/repolens/internal/worker"
	workerstorage "github.com/repolens/repolens/internal/worker/storage"
	"github.com/repolens/repolens/shared/cloudinary"
	"github.com/repolens/repolens/shared/githubapi"
	"github.com/repolens/repolens/shared/logger"
	"github.com/repolens/repolens/shared/postgresql"
	"github.com/repolens/repolens/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Assemble the processing pipeline
	repoPipeline, err := initPipeline(cfg, dbClient, rabbitClient, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		DBClient:      dbClient,
		RabbitClient:  rabbitClient,
		Pipeline:      repoPipeline,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop worker
	cancel()

	// Give worker time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop worker
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initPipeline wires the pipeline stages from configuration
func initPipeline(
	cfg *config.Config,
	dbClient *postgresql.Client,
	rabbitClient *rabbitmq.Client,
	appLogger *slog.Logger,
) (*pipeline.Pipeline, error) {
	githubClient := githubapi.NewClient(&githubapi.Config{
		BaseURL: cfg.GitHub.APIBaseURL,
		Token:   cfg.GitHub.Token,
		Timeout: cfg.GitHub.Timeout,
	}, appLogger)

	cloudinaryClient, err := cloudinary.NewClient(&cloudinary.Config{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
		BaseURL:   cfg.Cloudinary.BaseURL,
	}, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudinary client: %w", err)
	}

	workspaces, err := pipeline.NewWorkspaces(cfg.Pipeline.CloneBasePath, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace manager: %w", err)
	}

	executor := pipeline.NewSandboxExecutor(
		pipeline.NewDockerRuntime(appLogger),
		pipeline.ExecutorConfig{
			Timeout:      cfg.Sandbox.Timeout,
			Memory:       cfg.Sandbox.Memory,
			Network:      cfg.Sandbox.Network,
			Images:       cfg.Sandbox.Images,
			DefaultImage: cfg.Sandbox.DefaultImage,
		},
		appLogger,
	)

	ledger := workerstorage.NewStorage(dbClient.GetDB(), appLogger)

	return pipeline.New(pipeline.Deps{
		Validator:  pipeline.NewLinkValidator(githubClient, appLogger),
		Workspaces: workspaces,
		Fetcher:    pipeline.NewGitFetcher(cfg.Pipeline.FetchRetryAttempts, cfg.Pipeline.FetchRetryBaseWait, appLogger),
		Prober:     pipeline.NewMetadataProber(githubClient, cfg.Pipeline.FetchRetryAttempts, cfg.Pipeline.FetchRetryBaseWait, appLogger),
		Classifier: pipeline.NewClassifier(appLogger),
		Executor:   executor,
		Publisher:  pipeline.NewArtifactPublisher(cloudinaryClient, appLogger),
		Ledger:     ledger,
		Notifier:   worker.NewProgressNotifier(rabbitClient, appLogger),
		Logger:     appLogger,
	}), nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:                 cfg.Host,
		Port:                 cfg.Port,
		User:                 cfg.User,
		Password:             cfg.Password,
		VHost:                cfg.VHost,
		JobsExchangeName:     cfg.Jobs.Exchange,
		JobsQueueName:        cfg.Jobs.Queue,
		JobsRoutingKey:       cfg.Jobs.RoutingKey,
		ProgressExchangeName: cfg.Progress.Exchange,
		ProgressKeyPrefix:    cfg.Progress.KeyPrefix,
		RetryAttempts:        cfg.Connection.RetryAttempts,
		RetryInterval:        cfg.Connection.RetryInterval,
		Heartbeat:            cfg.Connection.Heartbeat,
		ConnectionTimeout:    cfg.Connection.ConnectionTimeout,
		PublishRetries:       cfg.Publish.RetryAttempts,
		PublishRetryDelay:    cfg.Publish.RetryInterval,
		PublishBackoffMult:   cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
