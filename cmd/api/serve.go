package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShivpalBellway/DevBhakti/internal/auth"
	"github.com/ShivpalBellway/DevBhakti/internal/catalog"
	"github.com/ShivpalBellway/DevBhakti/internal/db"
	httphandler "github.com/ShivpalBellway/DevBhakti/internal/http"
	"github.com/ShivpalBellway/DevBhakti/internal/http/handlers"
	"github.com/ShivpalBellway/DevBhakti/internal/jobs"
	"github.com/ShivpalBellway/DevBhakti/internal/metrics"
	"github.com/ShivpalBellway/DevBhakti/internal/middleware"
	"github.com/ShivpalBellway/DevBhakti/internal/onboarding"
	"github.com/ShivpalBellway/DevBhakti/internal/repo"
	"github.com/ShivpalBellway/DevBhakti/internal/upload"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	if err := db.MigrateUp(a.db.DB, logger); err != nil {
		return err
	}

	if cfg.OTPDevMode {
		logger.Warn("OTP_DEV_MODE is on: issued codes are returned to clients; disable in production")
	}

	m := metrics.New()
	store := repo.NewStore(a.db)
	storage := upload.NewDiskStorage(cfg.UploadDir)

	// Initialize auth services
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	authService := auth.NewService(store.Accounts, jwtService, auth.NewLogNotifier(logger), logger, auth.Options{
		DevMode: cfg.OTPDevMode,
		Metrics: m,
	})
	onboardingService := onboarding.NewService(store, logger, m, cfg.DefaultInstitutionPassword)
	catalogService := catalog.NewService(store.Repos, logger)

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, rate limits will fail open until it recovers", zap.Error(err))
		}
	}
	var limiters *middleware.LimiterFactory
	if rdb != nil {
		limiters = middleware.NewLimiterFactory(rdb)
	} else {
		limiters = middleware.NewLimiterFactory(nil)
	}
	defer limiters.Close()

	router := httphandler.NewRouter(httphandler.Deps{
		Auth:        handlers.NewAuthHandler(authService, storage, logger),
		Institution: handlers.NewInstitutionHandler(onboardingService, storage, logger),
		Catalog:     handlers.NewCatalogHandler(catalogService, logger),
		Health:      handlers.NewHealthHandler(a.db),
		JWT:         jwtService,
		Accounts:    store.Accounts,
		Limiters:    limiters,
		Metrics:     m,
		Logger:      logger,
		UploadDir:   storage.Root(),
		CORSOrigins: cfg.CORSOrigins,
	})

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddOTPSweeper(cfg.OTPSweepSchedule, jobs.NewOTPSweeper(store.Accounts, logger, m)); err != nil {
		return err
	}
	scheduler.Start()

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
