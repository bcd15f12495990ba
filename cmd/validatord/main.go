package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpadapter "github.com/m-deepasri/noc-validator/internal/adapters/http"
	"github.com/m-deepasri/noc-validator/internal/bootstrap"
	"github.com/m-deepasri/noc-validator/internal/config"
	"github.com/m-deepasri/noc-validator/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("noc-validator", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.IntakeUC, app.StatusUC).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      app.HTTPMetrics.Middleware("noc-validator", router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.HTTPMetrics.Handler())
	metricsMux.Handle("/metrics/pipeline", app.PipelineMetrics.Handler())
	metricsMux.Handle("/metrics/dox", app.DOXMetrics.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: metricsMux,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api_server_error", "error", err)
			stop()
		}
	}()
	go func() {
		slog.Info("metrics_listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics_server_error", "error", err)
		}
	}()

	// Each subscriber joins the same queue group, so the worker count
	// bounds concurrent pipeline runs in this process.
	var workers sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		workers.Add(1)
		go func(worker int) {
			defer workers.Done()
			err := app.Queue.SubscribeJobAccepted(ctx, func(handlerCtx context.Context, jobID string) error {
				processCtx, cancel := context.WithTimeout(handlerCtx, 15*time.Minute)
				defer cancel()
				return app.ProcessUC.ProcessByID(processCtx, jobID)
			})
			if err != nil {
				slog.Error("subscriber_stopped", "worker", worker, "error", err)
			}
		}(i)
	}
	slog.Info("workers_subscribed", "count", cfg.WorkerCount, "subject", cfg.NATSSubject)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_error", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics_shutdown_error", "error", err)
	}
	workers.Wait()
}
