package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chatinfra "github.com/precocity/timeoff-assistant-go/internal/chat/infra"
	chatservice "github.com/precocity/timeoff-assistant-go/internal/chat/service"
	"github.com/precocity/timeoff-assistant-go/internal/config"
	"github.com/precocity/timeoff-assistant-go/internal/domain"
	"github.com/precocity/timeoff-assistant-go/internal/handler"
	"github.com/precocity/timeoff-assistant-go/internal/infra/cache"
	"github.com/precocity/timeoff-assistant-go/internal/infra/observability"
	"github.com/precocity/timeoff-assistant-go/internal/infra/openair"
	"github.com/precocity/timeoff-assistant-go/internal/infra/resilience"
	"github.com/precocity/timeoff-assistant-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("accrual_target", cfg.AccrualTarget),
		zap.String("accrual_api_url", cfg.AccrualAPIURL),
		zap.Int("accrual_read_limit", cfg.AccrualReadLimit),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retrievals", cfg.MaxRetrievals),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "timeoff-assistant")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	identityCache := cache.New[domain.Identity](cfg.CacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	accrualCB := resilience.NewCircuitBreaker("accrual-service")
	chatCB := resilience.NewCircuitBreaker("chat-platform")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	accrualClient := openair.NewClient(
		httpClient,
		cfg.AccrualAPIURL,
		openair.Credentials{
			Namespace:  cfg.AccrualNamespace,
			APIKey:     cfg.AccrualAPIKey,
			Company:    cfg.AccrualCompany,
			User:       cfg.AccrualUser,
			Password:   cfg.AccrualPassword,
			ClientName: cfg.AccrualClientName,
			Version:    cfg.AccrualAPIVersion,
		},
		cfg.AccrualReadLimit,
		accrualCB,
		logger,
	)

	usersClient := chatinfra.NewUsersClient(httpClient, cfg.ChatAPIURL, cfg.ChatBotToken, chatCB, resilienceCfg, logger)
	responder := chatinfra.NewResponder(httpClient, chatCB, resilienceCfg, logger)

	// --- Services ---
	retrievalSvc := service.NewRetrieval(accrualClient, cfg.MaxRetrievals, metrics, logger)
	chatSvc := chatservice.NewChatService(
		usersClient,
		responder,
		retrievalSvc,
		identityCache,
		cfg.ServerName(),
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(chatSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}

	logger.Info("server stopped")
}
