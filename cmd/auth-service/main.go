package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/config"
	httpapi "github.com/pribylovaa/go-session-auth/internal/http"
	"github.com/pribylovaa/go-session-auth/internal/http/middleware"
	"github.com/pribylovaa/go-session-auth/internal/janitor"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/storage"
	"github.com/pribylovaa/go-session-auth/internal/storage/postgres"
	rstore "github.com/pribylovaa/go-session-auth/internal/storage/redis"
	"github.com/pribylovaa/go-session-auth/internal/token"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env, "storage", cfg.Storage.Driver)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	pg, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info("postgres_connected")

	if cfg.DB.AutoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		log.Info("postgres_migrated")
	}

	tokens, closeTokens, err := refreshStore(ctx, cfg, pg)
	if err != nil {
		return err
	}
	defer closeTokens()

	codec, err := token.NewCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return err
	}

	refresh := service.NewRefreshManager(codec, tokens, cfg.Auth.RefreshSlidingTTL, cfg.Auth.MaxSessionLifetime)
	svc := service.New(
		service.NewAccessManager(codec, cfg.Auth.AccessTokenTTL),
		refresh,
		service.NewPasswordVerifier(pg),
		service.NewDirectory(pg),
		pg,
	)
	log.Info("service_initialized")

	// Фоновая очистка просроченных refresh-токенов.
	jan := janitor.New(refresh, cfg.Janitor.Period, log, time.Now)
	go jan.Run(ctx)

	var ready atomic.Bool

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: httpapi.NewRouter(svc, httpapi.Options{
			Logger:  log,
			Timeout: cfg.Timeouts.Service,
			Cookies: middleware.CookieOptions{
				Secure: cfg.Cookies.Secure,
				Domain: cfg.Cookies.Domain,
			},
			AdminPatterns: cfg.Auth.AdminPatterns,
			Ready:         ready.Load,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-ctx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			return err
		}
	}

	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}
	log.Info("http_stopped")

	return nil
}

// refreshStore выбирает реестр refresh-токенов по storage.driver.
// Пользователи всегда живут в postgres.
func refreshStore(ctx context.Context, cfg *config.Config, pg *postgres.Storage) (storage.RefreshTokenStorage, func(), error) {
	if cfg.Storage.Driver != config.DriverRedis {
		return pg, func() {}, nil
	}

	rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rs, err := rstore.New(rctx, cfg.Redis.RedisURL, cfg.Redis.Prefix)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("redis_connected")

	return rs, func() { _ = rs.Close() }, nil
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
