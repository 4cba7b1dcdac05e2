// Package main is the entry point for the sipdah API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"sipdah/internal/config"
	"sipdah/internal/domain/auth"
	"sipdah/internal/domain/role"
	"sipdah/internal/domain/user"
	"sipdah/internal/infrastructure/cache"
	v1 "sipdah/internal/infrastructure/http/v1"
	"sipdah/internal/infrastructure/http/v1/handlers"
	"sipdah/internal/infrastructure/metrics"
	"sipdah/internal/infrastructure/storage/postgres"
	"sipdah/internal/infrastructure/storage/postgres/auth_repo"
	"sipdah/pkg/logger"
)

const (
	connectRetries = 5
	connectBackoff = 500 * time.Millisecond
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	log.Infow("starting sipdah server", "env", cfg.App.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	poolCfg.AcquireTimeout = cfg.Database.AcquireTimeout

	pool, err := connect(ctx, "database", func(ctx context.Context) (*postgres.Pool, error) {
		return postgres.NewPool(ctx, poolCfg)
	})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	m := metrics.New()
	m.RegisterPoolStats(pool.Stats)

	txManager := postgres.NewTxManager(pool,
		postgres.WithAcquireTimeout(cfg.Database.AcquireTimeout),
		postgres.WithRollbackTimeout(cfg.Database.RollbackTimeout),
		postgres.WithStatementTimeout(cfg.Database.StatementTimeout),
		postgres.WithObserver(m),
	)
	executor := postgres.NewExecutor(pool)

	// --- Redis ---
	redisCfg := cache.Config{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	}
	redisClient, err := connect(ctx, "redis", func(ctx context.Context) (*redis.Client, error) {
		return cache.NewClient(ctx, redisCfg)
	})
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer func() { _ = redisClient.Close() }()
	tokenCache := cache.NewRedis(redisClient)

	// --- Services ---
	userRepo := auth_repo.NewUserRepo(executor)
	roleRepo := auth_repo.NewRoleRepo(executor)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})

	userService := user.NewService(userRepo)
	roleService := role.NewService(roleRepo, txManager)
	authService := auth.NewService(
		userRepo,
		roleRepo,
		txManager,
		jwtService,
		tokenCache,
		auth.NewBcryptHasher(cfg.App.BcryptCost),
	)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:      log,
		Metrics:     m,
		Verifier:    authService,
		Roles:       roleService,
		AuthService: authService,
		UserService: userService,
		RoleService: roleService,
		Cookies: handlers.CookieConfig{
			Domain:     cfg.Cookie.Domain,
			Secure:     cfg.Cookie.Secure,
			AccessTTL:  cfg.JWT.AccessTTL,
			RefreshTTL: cfg.JWT.RefreshTTL,
		},
		HealthChecks: map[string]handlers.Pinger{
			"database": executor,
			"redis":    tokenCache,
		},
		Debug: !cfg.IsProduction(),
	})

	// --- HTTP Server ---
	addr := ":" + strconv.Itoa(cfg.App.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	go reportPoolStats(ctx, pool)

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// connect calls dial with exponential backoff, giving up after
// connectRetries retries.
func connect[T any](ctx context.Context, target string, dial func(ctx context.Context) (T, error)) (T, error) {
	var out T
	backoff := retry.WithMaxRetries(connectRetries, retry.NewExponential(connectBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := dial(ctx)
		if err != nil {
			logger.Warn(ctx, "connection attempt failed", "target", target, "error", err)
			return retry.RetryableError(err)
		}
		out = v
		return nil
	})
	return out, err
}

func reportPoolStats(ctx context.Context, pool *postgres.Pool) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pool.LogStats(ctx)
		}
	}
}
