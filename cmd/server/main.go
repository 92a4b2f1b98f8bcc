package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/user/runlog-engine/internal/adapter/api"
	"github.com/user/runlog-engine/internal/adapter/archive"
	"github.com/user/runlog-engine/internal/adapter/knowledge"
	"github.com/user/runlog-engine/internal/adapter/logstore"
	"github.com/user/runlog-engine/internal/adapter/metrics"
	"github.com/user/runlog-engine/internal/adapter/runinfo"
	"github.com/user/runlog-engine/internal/adapter/taskstore"
	"github.com/user/runlog-engine/internal/pkg/config"
	"github.com/user/runlog-engine/internal/pkg/logger"
	"github.com/user/runlog-engine/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	// The cache tree must exist before any worker touches it.
	for _, dir := range []string{cfg.CacheDir, cfg.LogStoreDataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Error("failed to create cache directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// --- Admin and metrics server ---
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())

	adminServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: adminMux,
	}
	go func() {
		log.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful shutdown context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Wiring ---
	store := logstore.NewClient(cfg.LogStoreEndpoint, m, log)
	retriever := archive.NewRetriever(cfg.CacheDir, cfg.DownloadTimeout, log)
	extractor := archive.NewExtractor(cfg.CacheDir, log)
	tasks := taskstore.NewMemory()

	ingestUC := usecase.NewIngestUseCase(retriever, extractor, store, tasks, m, log, cfg.LogStoreDataDir)
	queryUC := usecase.NewQueryUseCase(store, log)

	router := api.NewRouter(api.Deps{
		Logger:       log,
		IngestUC:     ingestUC,
		QueryUC:      queryUC,
		Tasks:        tasks,
		RunInfo:      runinfo.New(cfg.RunInfoURL, cfg.RunInfoToken, log),
		Instructions: knowledge.New(cfg.KnowledgeDir, log),
		IngestRate:   rate.Limit(cfg.IngestRateLimit),
		IngestBurst:  cfg.IngestBurst,
	})

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("starting server", "addr", server.Addr, "log_store", cfg.LogStoreEndpoint)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown failed", "error", err)
	}
	log.Info("shutdown complete")
}
