package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/lockerinv/internal/auth"
	"github.com/vbonduro/lockerinv/internal/config"
	"github.com/vbonduro/lockerinv/internal/db"
	"github.com/vbonduro/lockerinv/internal/logging"
	"github.com/vbonduro/lockerinv/internal/photostore"
	"github.com/vbonduro/lockerinv/internal/photostore/local"
	s3store "github.com/vbonduro/lockerinv/internal/photostore/s3"
	"github.com/vbonduro/lockerinv/internal/qr"
	"github.com/vbonduro/lockerinv/internal/ratelimit"
	"github.com/vbonduro/lockerinv/internal/service"
	"github.com/vbonduro/lockerinv/internal/store"
	"github.com/vbonduro/lockerinv/internal/telemetry"
	"github.com/vbonduro/lockerinv/internal/vision"
	claudevision "github.com/vbonduro/lockerinv/internal/vision/claude"
	ollamavision "github.com/vbonduro/lockerinv/internal/vision/ollama"
	"github.com/vbonduro/lockerinv/internal/web"
)

const serviceName = "lockerinv"

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelExporter, os.Stdout)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		return
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	photoStg, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize photo store", "error", err)
		return
	}

	limiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize rate limiter", "error", err)
		return
	}
	defer func() {
		if err := limiter.Close(); err != nil {
			logger.Error("failed to close rate limiter", "error", err)
		}
	}()

	stores := store.New(database)
	tx := store.NewTxManager(database)
	encoder := qr.NewEncoder(cfg.QRBaseURL)

	services := web.Services{
		Users:      service.NewUserService(stores, tx, photoStg, logger),
		Lockers:    service.NewLockerService(stores, tx, photoStg, encoder, newVisionAnalyzer(cfg, logger), logger),
		Categories: service.NewCategoryService(stores, tx, logger),
		Items:      service.NewItemService(stores, tx, logger),
		Dashboard:  service.NewDashboardService(stores),
		Data:       service.NewDataService(stores, tx, photoStg, encoder, logger),
	}
	server := web.NewServer(services, web.Deps{
		Sessions:       web.NewSessionStore(cfg.SessionKey, cfg.CookieSecure),
		Tokens:         auth.NewTokenIssuer(cfg.TokenKey, cfg.TokenTTL),
		Limiter:        limiter,
		Blobs:          photoStg,
		DB:             database,
		Logger:         logger,
		ServiceName:    serviceName,
		CSRFEnabled:    cfg.CSRFEnabled,
		CSRFKey:        cfg.CSRFKey,
		CookieSecure:   cfg.CookieSecure,
		TrustedOrigins: cfg.TrustedOrigins,
	})
	httpServer := server.HTTPServer(cfg.ListenAddr)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", "error", err)
		}
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return
	}
	logger.Info("server stopped")
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "s3":
		logger.Info("using S3 photo store", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return s3store.New(ctx, s3store.Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		logger.Info("using local photo store", "path", cfg.PhotoPath)
		return local.NewLocalPhotoStore(cfg.PhotoPath)
	}
}

func newLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ratelimit.Limiter, error) {
	if cfg.RedisURL != "" {
		logger.Info("using redis login rate limiter")
		return ratelimit.NewRedisLimiter(ctx, cfg.RedisURL, ratelimit.DefaultMaxAttempts, ratelimit.DefaultWindow)
	}
	logger.Info("using in-memory login rate limiter")
	return ratelimit.NewMemoryLimiter(ratelimit.DefaultMaxAttempts, ratelimit.DefaultWindow), nil
}

// newVisionAnalyzer returns nil when photo analysis is disabled.
func newVisionAnalyzer(cfg *config.Config, logger *slog.Logger) vision.VisionAnalyzer {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude; photo analysis disabled")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel, "")
	case "ollama":
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	default:
		logger.Info("photo analysis disabled")
		return nil
	}
}
