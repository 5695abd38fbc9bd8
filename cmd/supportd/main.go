package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickplate/support-core-go/internal/config"
	"github.com/quickplate/support-core-go/internal/domain"
	"github.com/quickplate/support-core-go/internal/handler"
	"github.com/quickplate/support-core-go/internal/infra/cache"
	"github.com/quickplate/support-core-go/internal/infra/client"
	"github.com/quickplate/support-core-go/internal/infra/memstore"
	"github.com/quickplate/support-core-go/internal/infra/observability"
	"github.com/quickplate/support-core-go/internal/infra/redisstore"
	"github.com/quickplate/support-core-go/internal/infra/resilience"
	"github.com/quickplate/support-core-go/internal/port"
	"github.com/quickplate/support-core-go/internal/service"
	"github.com/quickplate/support-core-go/internal/session"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
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
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.String("policy_file", cfg.PolicyFile),
	)

	// --- Policy ---
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Fatal("failed to load policy", zap.Error(err))
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "support-core")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	customerCache := cache.New[*domain.CustomerInfo](cfg.CacheTTL)
	defer customerCache.Close()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("external-apis")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	ordersClient := client.NewOrdersClient(httpClient, cfg.OrdersAPIURL, cb, resilienceCfg)
	customersClient := client.NewCustomersClient(httpClient, cfg.CustomersAPIURL, cb, resilienceCfg)
	classifierClient := client.NewClassifierClient(httpClient, cfg.NLPAPIURL, cb, resilienceCfg)
	paymentsClient := client.NewPaymentsClient(httpClient, cfg.PaymentsAPIURL, cb, resilienceCfg)

	// --- Session store ---
	var store port.SessionStore
	var storePinger handler.Pinger
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		redisStore := redisstore.New(rdb, cfg.SessionTTL)
		store = redisStore
		storePinger = redisStore
		logger.Info("using Redis session store", zap.String("addr", cfg.RedisAddr))
	} else {
		store = memstore.New()
		logger.Info("using in-memory session store")
	}

	manager := session.NewManager(store, logger)

	// --- Decision engines ---
	verificationEngine := service.NewVerificationEngine(policy.Verification, metrics, logger)
	solutionEngine := service.NewSolutionDecisionEngine(policy.Compensation, metrics, logger)
	escalationEngine := service.NewEscalationEngine(policy.Escalation, metrics, logger)

	// --- Service ---
	supportSvc := service.NewSupportService(
		manager,
		ordersClient,
		customersClient,
		classifierClient,
		paymentsClient,
		verificationEngine,
		solutionEngine,
		escalationEngine,
		customerCache,
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(supportSvc, metrics, storePinger, cfg.JWTSecret, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
