package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/adrs-io/adrs/cmd/mainconfig"
	"github.com/adrs-io/adrs/internal/api/router"
	appconfig "github.com/adrs-io/adrs/internal/config"
	"github.com/adrs-io/adrs/internal/inference"
	"github.com/adrs-io/adrs/internal/observability/metrics"
	"github.com/adrs-io/adrs/internal/receipt"
	"github.com/adrs-io/adrs/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting decision receipt service",
		"env", cfg.Env,
		"port", cfg.Port,
		"inference_provider", cfg.InferenceProvider,
	)

	ctx := context.Background()

	// Store: postgres when configured, in-memory otherwise (dev mode).
	var store receipt.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		store = receipt.NewPostgresStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		store = receipt.NewMemoryStore()
	}

	recent := receipt.NewRecentIndex(buildRedisClient(ctx, cfg, logger))

	invoker, err := buildInvoker(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize inference backend", "error", err)
		os.Exit(1)
	}

	receiptMetrics := metrics.NewReceiptMetrics(nil)

	builder := receipt.NewBuilder(store, invoker, logger,
		receipt.WithInferenceTimeout(cfg.InferenceTimeout),
		receipt.WithMetrics(receiptMetrics),
	)
	reviews := receipt.NewReviewService(store, logger, receiptMetrics)
	handler := receipt.NewHandler(builder, reviews, store, recent, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ReceiptHandler:     handler,
		AuthJWTSecret:      cfg.AuthJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func buildInvoker(ctx context.Context, cfg *appconfig.Config) (inference.Invoker, error) {
	switch cfg.InferenceProvider {
	case "bedrock":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return inference.NewBedrockInvoker(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	case "gemini":
		return inference.NewGeminiInvoker(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	default:
		return inference.Simulated(), nil
	}
}

func buildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available, dashboard cache disabled", "error", err)
		return nil
	}
	return client
}
