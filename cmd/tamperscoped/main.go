// Command tamperscoped is the tamperscope analysis service.
// It serves the analysis API, Prometheus metrics and a health check.
package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/tamperscope/tamperscope/internal/api"
	"github.com/tamperscope/tamperscope/internal/ingestion"
	"github.com/tamperscope/tamperscope/internal/metrics"
	"github.com/tamperscope/tamperscope/internal/platform"
	"github.com/tamperscope/tamperscope/internal/webhook"
	"github.com/tamperscope/tamperscope/pkg/config"
	"github.com/tamperscope/tamperscope/pkg/risk"
)

type serverConfig struct {
	Port        string
	DatabaseURL string
	ConfigPath  string
	APIKey      string
	LogLevel    string
	LogFormat   string

	StorageBackend string
	StorageBucket  string
	StorageDir     string

	WebhookURL    string
	WebhookSecret string
}

func loadServerConfig() serverConfig {
	return serverConfig{
		Port:           envOrDefault("PORT", "8080"),
		DatabaseURL:    envOrDefault("DATABASE_URL", "postgres://localhost:5432/tamperscope?sslmode=disable"),
		ConfigPath:     os.Getenv("CONFIG_PATH"),
		APIKey:         os.Getenv("API_KEY"),
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		StorageBackend: os.Getenv("STORAGE_BACKEND"),
		StorageBucket:  firstEnv("STORAGE_BUCKET", "S3_BUCKET", "GCS_BUCKET"),
		StorageDir:     os.Getenv("LOCAL_STORAGE_PATH"),
		WebhookURL:     os.Getenv("WEBHOOK_URL"),
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
	}
}

func main() {
	cfg := loadServerConfig()

	logger, err := platform.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("configure logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("tamperscoped exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg serverConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if _, err := platform.AutoMigrate(db, logger); err != nil {
		return err
	}

	store, err := config.NewStore(cfg.ConfigPath, logger)
	if err != nil {
		return err
	}
	store.OnReload = func(snap *config.Snapshot, err error) {
		metrics.RecordConfigReload(err)
	}
	go func() {
		if err := store.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("config watch stopped", "error", err)
		}
	}()

	storageCfg := store.Current().Config.Storage
	if cfg.StorageBackend != "" {
		storageCfg.Backend = cfg.StorageBackend
	}
	if cfg.StorageBucket != "" {
		storageCfg.Bucket = cfg.StorageBucket
	}
	if cfg.StorageDir != "" {
		storageCfg.Dir = cfg.StorageDir
	}
	storage, err := ingestion.NewStorage(ctx, storageCfg)
	if err != nil {
		return err
	}
	if c, ok := storage.(io.Closer); ok {
		defer c.Close()
	}

	orch := risk.NewOrchestrator(store,
		risk.WithLogger(logger),
		risk.WithObserver(metrics.Observer{}),
	)
	svc := ingestion.NewService(db, storage, orch, store, logger)
	if cfg.WebhookURL != "" {
		svc.SetNotifier(webhook.NewNotifier(cfg.WebhookURL, []byte(cfg.WebhookSecret), logger))
	}

	handler := api.NewHandler(svc, store, nil, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.CORS(api.APIKeyAuth(cfg.APIKey)(api.RequestLogger(logger)(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting tamperscoped",
			"port", cfg.Port,
			"storage", storageCfg.Backend,
			"config_version", store.Current().Version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
