// main package for the production-bridge daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/production-client/internal/artifactstore"
	"github.com/book-expert/production-client/internal/bridge"
	"github.com/book-expert/production-client/internal/config"
	"github.com/book-expert/production-client/internal/production"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "production-bridge-bootstrap.log")
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "production-bridge.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return runBridge(cfg, finalLog)
}

func runBridge(cfg *config.Config, finalLog *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		finalLog.Error("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)

		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := artifactstore.New(jetstreamContext, cfg.NATS.ArtifactObjectStoreBucket)
	if err != nil {
		return fmt.Errorf("failed to create artifact store: %w", err)
	}

	client := production.NewClient(
		cfg.Production.BaseURL,
		time.Duration(cfg.Production.TimeoutSeconds)*time.Second,
		finalLog,
	)

	worker, err := bridge.New(
		natsConnection,
		cfg.NATS.ProductionRequestSubject,
		cfg.NATS.ProductionProgressSubject,
		client,
		store,
		time.Duration(cfg.Production.JobTimeoutSeconds)*time.Second,
		finalLog,
	)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	finalLog.System(
		"Production bridge initialized. Listening for jobs on subject: %s",
		cfg.NATS.ProductionRequestSubject,
	)

	runErr := worker.Run(ctx)
	if runErr != nil {
		return fmt.Errorf("bridge stopped with error: %w", runErr)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
