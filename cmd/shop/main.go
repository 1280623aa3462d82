package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatdomain "github.com/boddenberg/organic-shop-bfa/internal/chat/domain"
	chatinfra "github.com/boddenberg/organic-shop-bfa/internal/chat/infra"
	chatservice "github.com/boddenberg/organic-shop-bfa/internal/chat/service"
	"github.com/boddenberg/organic-shop-bfa/internal/config"
	"github.com/boddenberg/organic-shop-bfa/internal/handler"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/cache"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/observability"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/resilience"
	"github.com/boddenberg/organic-shop-bfa/internal/infra/sqlstore"
	"github.com/boddenberg/organic-shop-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "organic-shop-api")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("faq_path", cfg.FAQPath),
		zap.Bool("llm_enabled", cfg.OpenAIAPIKey != ""),
		zap.String("llm_model", cfg.OpenAIModel),
		zap.Duration("llm_timeout", cfg.OpenAITimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Int("chat_rate_limit", cfg.ChatRateLimit),
	)
	if cfg.UsesDefaultSecret() {
		logger.Warn("JWT_SECRET not set, using development secret")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "organic-shop-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("openai", logger)
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Store ---
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := sqlstore.Open(startCtx, cfg.DBDriver, cfg.DatabaseURL, resilienceCfg, logger)
	if err != nil {
		cancelStart()
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	if cfg.SeedData {
		if err := store.Seed(startCtx); err != nil {
			cancelStart()
			logger.Fatal("failed to seed database", zap.Error(err))
		}
	}
	cancelStart()

	// --- Chat adapters ---
	faqCache := cache.New[[]chatdomain.FaqEntry](cfg.CacheTTL)
	defer faqCache.Stop()
	faqSource := chatinfra.NewFaqFile(cfg.FAQPath, faqCache, metrics, logger)

	completer := chatinfra.NewOpenAICompleter(chatinfra.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	}, &http.Client{}, cb, bulkhead, metrics, logger)

	// --- Services ---
	faqs := chatservice.NewFaqCatalog(faqSource, logger)
	chatSvc := chatservice.NewChatService(
		chatservice.NewIntentClassifier(completer, faqs, metrics, logger),
		faqs,
		chatservice.NewProductFinder(store),
		chatservice.NewResponseComposer(completer, metrics, logger),
		metrics,
		logger,
	)
	catalogSvc := service.NewCatalogService(store, store, logger)
	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRememberTTL, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Chat:        chatSvc,
		Catalog:     catalogSvc,
		Auth:        authSvc,
		Health:      store,
		ChatLimiter: handler.NewRateLimiter(cfg.ChatRateLimit, cfg.ChatRateBurst),
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.OpenAITimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
