package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/medtranslate/internal/accounts"
	"github.com/geocoder89/medtranslate/internal/auth"
	"github.com/geocoder89/medtranslate/internal/cache"
	"github.com/geocoder89/medtranslate/internal/config"
	"github.com/geocoder89/medtranslate/internal/conversations"
	"github.com/geocoder89/medtranslate/internal/db"
	"github.com/geocoder89/medtranslate/internal/demo"
	"github.com/geocoder89/medtranslate/internal/gateway"
	httpx "github.com/geocoder89/medtranslate/internal/http"
	"github.com/geocoder89/medtranslate/internal/http/handlers"
	"github.com/geocoder89/medtranslate/internal/http/middlewares"
	"github.com/geocoder89/medtranslate/internal/observability"
	"github.com/geocoder89/medtranslate/internal/redisclient"
	"github.com/geocoder89/medtranslate/internal/repo/memory"
	"github.com/geocoder89/medtranslate/internal/repo/postgres"
	"github.com/geocoder89/medtranslate/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type userStore interface {
	accounts.UserStore
	demo.UserStore
}

type conversationStore interface {
	conversations.ConversationStore
	demo.ConversationStore
}

type stores struct {
	users         userStore
	conversations conversationStore
	messages      conversations.MessageStore
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	// root context lives until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "medtranslate",
		Env:         cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	checks := map[string]handlers.Pinger{}

	st, closeStorage, err := openStorage(ctx, cfg, prom, log, checks)
	if err != nil {
		log.Error("storage init failed", "storage", cfg.Storage, "err", err)
		os.Exit(1)
	}
	defer closeStorage()

	sessions, closeSessions, err := openSessions(ctx, cfg, log, checks)
	if err != nil {
		log.Error("session store init failed", "err", err)
		os.Exit(1)
	}
	defer closeSessions()

	gen := gateway.Disabled()
	if cfg.GeminiAPIKey != "" {
		g, err := gateway.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error("gemini client init failed", "err", err)
			os.Exit(1)
		}
		gen = g
	} else {
		log.Warn("GEMINI_API_KEY not set, translation and summaries will fail")
	}

	gw := gateway.New(gen, gateway.Config{
		Timeout:          cfg.GatewayTimeout(),
		MaxRetries:       cfg.GatewayMaxRetries,
		FailureThreshold: cfg.GatewayFailureThreshold,
		Cooldown:         cfg.GatewayCooldown(),
	}, prom)

	limiter := middlewares.NewRateLimiter(max(cfg.AuthRateLimit, 1), time.Minute)
	limiter.StartJanitor(ctx, time.Minute)
	msgLimiter := middlewares.NewRateLimiter(max(cfg.MessageRateLimit, 1), time.Minute)
	msgLimiter.StartJanitor(ctx, time.Minute)

	deps := httpx.Deps{
		Config:         cfg,
		Prom:           prom,
		Gatherer:       reg,
		Accounts:       accounts.NewService(st.users),
		Conversations:  conversations.NewService(st.conversations, st.messages, st.users, gw),
		Sessions:       sessions,
		Tokens:         auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL()),
		Checks:         checks,
		AuthLimiter:    limiter,
		MessageLimiter: msgLimiter,
	}

	if cfg.DemoEnabled {
		tokens := cache.New(cfg.DemoTokenTTL())
		tokens.StartJanitor(ctx, time.Minute)
		deps.Demo = demo.NewService(st.users, st.conversations, tokens, cfg.DemoTokenTTL(), cfg.PublicBaseURL)
		log.Info("demo links enabled", "base_url", cfg.PublicBaseURL)
	}

	router := httpx.NewRouter(deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// model calls may run for the whole retry budget
		WriteTimeout: cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.Storage)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	// Graceful shutdown

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(sctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openStorage(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger, checks map[string]handlers.Pinger) (stores, func(), error) {
	switch cfg.Storage {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		m := memory.NewStore()
		return stores{users: m.Users(), conversations: m.Conversations(), messages: m.Messages()}, func() {}, nil

	case "postgres", "":
		cctx, cancel := config.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		pool, err := db.NewPool(cctx, cfg.DBURL)
		if err != nil {
			return stores{}, nil, err
		}
		if err := db.Migrate(cctx, pool, log); err != nil {
			pool.Close()
			return stores{}, nil, err
		}
		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }

		return stores{
			users:         postgres.NewUsersRepo(pool, prom),
			conversations: postgres.NewConversationsRepo(pool, prom),
			messages:      postgres.NewMessagesRepo(pool, prom),
		}, pool.Close, nil

	default:
		return stores{}, nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
}

func openSessions(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]handlers.Pinger) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, sessions are kept in process memory")
		c := cache.New(cfg.SessionTTL())
		c.StartJanitor(ctx, 5*time.Minute)
		return session.NewMemoryStore(c, cfg.SessionTTL()), func() {}, nil
	}

	cctx, cancel := config.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := redisclient.Connect(cctx, redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("redis connect: %w", err)
	}
	checks["redis"] = rdb.Ping

	return session.NewRedisStore(rdb.Raw(), cfg.SessionTTL()), func() { _ = rdb.Close() }, nil
}
