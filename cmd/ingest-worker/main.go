package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/app"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/async"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	cfg := common.LoadConfig()

	var (
		concurrency = flag.Int("concurrency", cfg.Worker.Concurrency, "jobs processed at once")
		maxRetries  = flag.Int("max-retries", cfg.Worker.MaxRetries, "retries per job after the first attempt")
		retryDelay  = flag.Duration("retry-delay", cfg.Worker.RetryDelay, "fixed delay between attempts")
		natsURL     = flag.String("nats", cfg.Queue.URL, "NATS server URL")
		logLevel    = flag.String("log-level", cfg.LogLevel, "debug, info, warn or error")
	)
	flag.Parse()

	if *concurrency <= 0 {
		printError("Error: --concurrency must be positive\n")
		os.Exit(1)
	}
	cfg.Worker.Concurrency = *concurrency
	cfg.Worker.MaxRetries = *maxRetries
	cfg.Worker.RetryDelay = *retryDelay
	cfg.Queue.URL = *natsURL
	cfg.LogLevel = *logLevel

	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, false)
	if err != nil {
		logger.Error("worker.init_failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	src, err := a.DriveSource(ctx)
	if err != nil {
		logger.Error("worker.drive_unavailable", "error", err)
		os.Exit(1)
	}
	orch, err := a.Orchestrator(src)
	if err != nil {
		logger.Error("worker.init_failed", "error", err)
		os.Exit(1)
	}

	queue, err := async.NewJetStreamQueue(ctx, async.JetStreamConfig{
		URL:     cfg.Queue.URL,
		Stream:  cfg.Queue.Stream,
		Subject: cfg.Queue.Subject,
		Durable: cfg.Queue.Durable,
		AckWait: cfg.Worker.TaskTimeout + 5*time.Minute,
	}, logger)
	if err != nil {
		logger.Error("worker.queue_unavailable", "error", err)
		os.Exit(1)
	}
	defer queue.Close()

	runner := async.NewRunner(orch, async.RetryPolicy{
		MaxRetries: cfg.Worker.MaxRetries,
		Delay:      cfg.Worker.RetryDelay,
	}, logger)
	handler := async.TaskHandlerFunc(func(ctx context.Context, task async.Task) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Worker.TaskTimeout)
		defer cancel()
		return runner.Run(ctx, task)
	})

	logger.Info("worker.start",
		"concurrency", cfg.Worker.Concurrency,
		"max_retries", cfg.Worker.MaxRetries,
		"retry_delay", cfg.Worker.RetryDelay.String(),
		"stream", cfg.Queue.Stream,
	)
	if err := queue.Consume(ctx, handler, cfg.Worker.Concurrency); err != nil {
		logger.Error("worker.consume_failed", "error", err)
		os.Exit(1)
	}
	logger.Info("worker.stopped")
}
