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

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/inkwellhq/inkwell-server/internal/app"
	"github.com/inkwellhq/inkwell-server/internal/config"
	"github.com/inkwellhq/inkwell-server/internal/http/handler"
	"github.com/inkwellhq/inkwell-server/internal/http/middleware"
	"github.com/inkwellhq/inkwell-server/internal/http/router"
	"github.com/inkwellhq/inkwell-server/internal/observability"
	"github.com/inkwellhq/inkwell-server/internal/repository"
	"github.com/inkwellhq/inkwell-server/internal/security"
	"github.com/inkwellhq/inkwell-server/internal/service"
)

func main() {
	root := &cobra.Command{
		Use:           "inkwell-server",
		Short:         "Inkwell blog platform auth and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := app.OpenDatabase(cfg)
			if err != nil {
				return err
			}
			return app.Migrate(db)
		},
	}
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, loggerProvider, err := observability.InitLogging(ctx, cfg)
	if err != nil {
		return err
	}
	runtime, err := observability.InitRuntime(ctx, cfg, logger, loggerProvider)
	if err != nil {
		return err
	}

	db, err := app.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	if err := app.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret)
	sessions := service.NewSessionService(userRepo, tokenRepo, jwtMgr, cfg.RefreshHashSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	users := service.NewUserService(userRepo)
	authHandler := handler.NewAuthHandler(sessions, users, cfg.CookieSecure)

	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		limiter = middleware.NewRedisLimiter(client, "inkwell")
		logger.Info("using redis rate limiter", "addr", cfg.RedisAddr)
	} else {
		limiter = middleware.NewLocalLimiter()
	}

	readiness := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	h := router.New(router.Dependencies{
		AuthHandler:      authHandler,
		JWTManager:       jwtMgr,
		APIRateLimitRPM:  cfg.APIRateLimitRPM,
		AuthRateLimitRPM: cfg.AuthRateLimitRPM,
		Limiter:          limiter,
		Readiness:        readiness,
		EnableOTelHTTP:   cfg.EnableOTelHTTP,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a := app.New(cfg, logger, server, runtime)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("shutting down")
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return a.Observability.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
