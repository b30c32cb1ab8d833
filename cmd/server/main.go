package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notekeeper/internal/api"
	"notekeeper/internal/api/handler"
	"notekeeper/internal/app/service"
	"notekeeper/internal/app/worker"
	"notekeeper/internal/common/security"
	"notekeeper/internal/domain/repository"
	"notekeeper/internal/platform/cache"
	"notekeeper/internal/platform/config"
	"notekeeper/internal/platform/database"
	"notekeeper/internal/platform/logger"
	"notekeeper/internal/platform/media"
	"notekeeper/internal/platform/payments"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database and schema
	db, err := database.Connect(ctx, cfg.DBConnStr, zl)
	if err != nil {
		return err
	}
	defer database.Close(db, zl)

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	// 3. Redis backs the rate limiter only; run without it if unreachable.
	rdb, err := cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}, zl)
	if err != nil {
		zl.Warn("rate limiting disabled", zap.Error(err))
		rdb = nil
	}
	defer cache.Close(rdb, zl)

	uploader, err := media.New(ctx, cfg)
	if err != nil {
		return err
	}

	// 4. Worker pool for storage calls
	pool := worker.NewPool(cfg.DBWorkers, zl)
	pool.Start(context.Background())
	defer pool.Stop()

	// 5. Repositories and services
	userRepo := repository.NewPgUserRepository(db)
	noteRepo := repository.NewPgNoteRepository(db)

	tokens := security.NewTokenManager([]byte(cfg.JWTSecret), cfg.JWTExp())
	services := api.Services{
		Auth:    service.NewAuthService(userRepo, pool, tokens, cfg.BcryptCost, zl),
		OTP:     service.NewOTPService(userRepo, pool, cfg.OTPIssuer, zl),
		Notes:   service.NewNoteService(noteRepo, pool, uploader, cfg.MaxUploadBytes, zl),
		MoonPay: payments.NewMoonPay(cfg.MoonPayBaseURL, cfg.MoonPayAPIKey, nil),
	}

	// 6. Router & HTTP Server
	router := api.NewRouter(api.RouterConfig{
		Tokens:         tokens,
		RequireCookie:  cfg.AuthRequireCookie,
		Cookie:         handler.CookieOptions{TTL: cfg.CookieTTL(), Secure: cfg.CookieSecure},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimitLogin,
		RateWindow:     cfg.RateLimitWindow(),
		MaxUploadBytes: cfg.MaxUploadBytes,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}, services, rdb, zl)

	server := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 7. Graceful Shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	zl.Info("server stopped gracefully")
	return nil
}
