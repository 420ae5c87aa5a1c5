package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/anish1206/green-tech/internal/application"
	"github.com/anish1206/green-tech/internal/application/analysis"
	"github.com/anish1206/green-tech/internal/application/csvparse"
	"github.com/anish1206/green-tech/internal/application/enrich"
	"github.com/anish1206/green-tech/internal/config"
	domain "github.com/anish1206/green-tech/internal/domain/analysis"
	"github.com/anish1206/green-tech/internal/domain/ai"
	openaiClient "github.com/anish1206/green-tech/internal/infra/ai/openai"
	"github.com/anish1206/green-tech/internal/infra/db/memory"
	"github.com/anish1206/green-tech/internal/infra/db/migrations"
	mysqlp "github.com/anish1206/green-tech/internal/infra/db/mysql"
	pgp "github.com/anish1206/green-tech/internal/infra/db/postgres"
	"github.com/anish1206/green-tech/internal/infra/httpserver"
	staticid "github.com/anish1206/green-tech/internal/infra/identity"
	minioStore "github.com/anish1206/green-tech/internal/infra/storage"
	"github.com/anish1206/green-tech/internal/logger"
	"github.com/anish1206/green-tech/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, db, err := openRepository(ctx, cfg)
	if err != nil {
		zl.Fatal("database init error", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	var archive domain.ArchiveStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			zl.Fatal("minio init error", zap.Error(err))
		}
		archive = store
	}

	var completer ai.Completer = openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL)
	degrade := cfg.Enrichment.DegradeSummary
	if cfg.OpenAI.Disabled {
		zl.Warn("openai disabled, uploads get no summary or suggestions")
		completer = openaiClient.Disabled{}
		degrade = true
	}

	metrics := middleware.NewMetrics()
	enricher := enrich.New(completer, enrich.Config{
		Concurrency:          cfg.Enrichment.Concurrency,
		CallTimeout:          cfg.Enrichment.CallTimeout,
		MaxAttempts:          cfg.Enrichment.MaxAttempts,
		RetryDelay:           cfg.Enrichment.RetryDelay,
		SummaryMaxTokens:     cfg.Enrichment.SummaryMaxTokens,
		AlternativeMaxTokens: cfg.Enrichment.AlternativeMaxTokens,
		DegradeSummary:       degrade,
	}, zl.Named("enrich"))
	enricher.OnSuggestion = metrics.SuggestionOutcome

	svc := &analysis.Service{
		Repo:     repo,
		Enricher: enricher,
		Parser:   csvparse.Normalizer{ProductAliases: domain.DefaultProductAliases},
		Archive:  archive,
		Observer: metrics,
		Log:      zl.Named("analysis"),
	}

	checkers := map[string]middleware.HealthChecker{}
	if db != nil {
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
		defer limiter.Stop()
	}

	handler := httpserver.NewRouter(httpserver.Options{
		Service:        svc,
		Verifier:       staticid.NewStaticVerifier(cfg.Auth.Tokens),
		Metrics:        metrics,
		Limiter:        limiter,
		Checkers:       checkers,
		CORSOrigins:    cfg.CORS.AllowedOrigins,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Log:            zl.Named("http"),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		zl.Info("server listening", zap.String("addr", srv.Addr), zap.String("database", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		zl.Error("server error", zap.Error(err))
	}
	zl.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		zl.Error("shutdown error", zap.Error(err))
	}
}

// openRepository connects and migrates the configured driver. db is nil for memory.
func openRepository(ctx context.Context, cfg *config.Config) (domain.Repository, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Run(db, "mysql"); err != nil {
			db.Close()
			return nil, nil, err
		}
		return mysqlp.NewAnalysisRepository(db), db, nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Run(db, "postgres"); err != nil {
			db.Close()
			return nil, nil, err
		}
		return pgp.NewAnalysisRepository(db), db, nil
	default:
		return memory.NewAnalysisRepository(application.SystemClock{}), nil, nil
	}
}
