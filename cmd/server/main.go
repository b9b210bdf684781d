package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/traderdesk/paper-engine/internal/auth"
	"github.com/traderdesk/paper-engine/internal/broker"
	"github.com/traderdesk/paper-engine/internal/config"
	"github.com/traderdesk/paper-engine/internal/metrics"
	"github.com/traderdesk/paper-engine/internal/paper"
	"github.com/traderdesk/paper-engine/internal/pricing"
	"github.com/traderdesk/paper-engine/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)

	startingCash, err := cfg.StartingCash()
	if err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := cfg.Store.DatabaseURL; dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)

		pg := store.NewPostgresStore(pool, startingCash)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema migration failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := cfg.Store.RedisURL; redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid redis_url", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			ttl := time.Duration(cfg.Store.CacheTTLSeconds) * time.Second
			st = store.NewCachedStore(st, rdb, ttl)
			slog.Info("Redis cache enabled", "ttl", ttl)
		}
	} else {
		slog.Warn("database_url not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore(startingCash)
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Pricing oracle ---
	var oracle pricing.Oracle
	if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" {
		oracle = pricing.NewAlpaca(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret)
		slog.Info("using Alpaca live quotes")
	} else {
		mock, err := cfg.MockPrices()
		if err != nil {
			slog.Error("invalid config", "err", err)
			os.Exit(1)
		}
		if mock != nil {
			oracle = pricing.NewStatic(mock)
		} else {
			oracle = pricing.DefaultStatic()
		}
		slog.Warn("no Alpaca credentials, using static mock quotes")
	}

	// --- WebSocket hub ---
	wsHub := paper.NewWSHub()
	go wsHub.Run()

	// --- Paper trading service ---
	paperSvc := paper.NewService(st, oracle, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(auth.Middleware(auth.StaticTokens(cfg.Auth.Tokens), cfg.Auth.AllowDevHeader))

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"paper-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time fill events.
		r.Get("/ws", wsHub.HandleWS)

		// Paper trading ledger.
		r.Route("/paper", func(r chi.Router) {
			r.Post("/orders", paperSvc.CreateOrder)
			r.Get("/orders", paperSvc.ListOrders)
			r.Get("/positions", paperSvc.ListPositions)
			r.Get("/balance", paperSvc.GetBalance)
			r.Get("/ledger", paperSvc.ListLedger)
		})

		// Live brokerage proxy, only when credentials are configured.
		if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" {
			bh := broker.NewHandlers(broker.NewAlpacaClient(
				cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL))
			r.Route("/broker", func(r chi.Router) {
				r.Get("/account", bh.GetAccount)
				r.Get("/orders", bh.ListOrders)
				r.Get("/positions", bh.ListPositions)
			})
		}
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("paper-engine listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down paper-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("paper-engine stopped")
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
