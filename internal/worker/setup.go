package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-adhere/internal/batch"
	"github.com/ahrav/go-adhere/internal/configuration"
	"github.com/ahrav/go-adhere/pkg/events"
)

// NewRouter serves Prometheus metrics from reg on /metrics and a liveness
// probe on /health. ready may be nil; when set, a non-nil error turns the
// probe into a 503.
func NewRouter(reg *prometheus.Registry, ready func() error) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "ok", http.StatusOK
		if ready != nil {
			if err := ready(); err != nil {
				status, code = err.Error(), http.StatusServiceUnavailable
			}
		}
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}).Methods(http.MethodGet)
	return r
}

// NewRegistry returns a Prometheus registry with the Go and process
// collectors installed.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Serve connects to Temporal, runs a worker on the configured task queue and
// serves the HTTP endpoints until ctx is cancelled.
func Serve(ctx context.Context, cfg *configuration.Config, sink events.EventSink, logger *slog.Logger) error {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to temporal: %w", err)
	}
	defer c.Close()

	reg := NewRegistry()
	w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
	RegisterAll(w, sink, nil, batch.NewMetrics(reg))

	ready := func() error {
		_, err := c.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Server.MetricsAddr,
		Handler:           NewRouter(reg, ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", srv.Addr, "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	defer w.Stop()

	logger.Info("worker started",
		"task_queue", cfg.Temporal.TaskQueue,
		"namespace", cfg.Temporal.Namespace,
		"metrics_addr", cfg.Server.MetricsAddr)
	<-ctx.Done()
	logger.Info("worker stopping")
	return nil
}
