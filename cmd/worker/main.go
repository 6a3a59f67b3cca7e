package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akozhevnikov/rule-assistant/internal/bootstrap"
	"github.com/akozhevnikov/rule-assistant/internal/config"
	"github.com/akozhevnikov/rule-assistant/internal/observability/logging"
	"github.com/akozhevnikov/rule-assistant/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("rule-assistant-worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("rule-assistant-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartDocument()
		start := time.Now()
		perr := app.IndexingUC.ProcessByID(processCtx, documentID)
		workerMetrics.FinishDocument("rule-assistant-worker", time.Since(start), perr)
		if perr == nil {
			if doc, derr := app.Documents.GetByID(processCtx, documentID); derr == nil {
				workerMetrics.ObserveIndexedChunks("rule-assistant-worker", doc.ChunkCount)
				workerMetrics.ObserveQueueLag("rule-assistant-worker", start.Sub(doc.CreatedAt))
			}
		}
		return perr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
