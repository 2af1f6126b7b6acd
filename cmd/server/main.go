package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/diagram-service/internal/config"
	"github.com/iliyamo/diagram-service/internal/database"
	"github.com/iliyamo/diagram-service/internal/handler"
	"github.com/iliyamo/diagram-service/internal/health"
	"github.com/iliyamo/diagram-service/internal/logger"
	"github.com/iliyamo/diagram-service/internal/metrics"
	"github.com/iliyamo/diagram-service/internal/middleware"
	"github.com/iliyamo/diagram-service/internal/queue"
	"github.com/iliyamo/diagram-service/internal/repository"
	"github.com/iliyamo/diagram-service/internal/router"
	"github.com/iliyamo/diagram-service/internal/secrets"
	"github.com/iliyamo/diagram-service/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside development
	cfg := config.Load()

	log, logCloser := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	logger.Set(log)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Config{
		User:        cfg.DBUser,
		Password:    cfg.DBPass,
		Host:        cfg.DBHost,
		Port:        cfg.DBPort,
		Name:        cfg.DBName,
		TLS:         cfg.DBTLS,
		DialTimeout: cfg.DBDial,
	})
	if err != nil {
		log.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	repo, err := repository.NewDiagramRepo(db, cfg.DBTable)
	if err != nil {
		log.Error("invalid diagram table", "table", cfg.DBTable, "err", err)
		os.Exit(1)
	}

	// A broken secret store only degrades /api/health; the diagram API stays up.
	store, keys, err := secrets.NewProvider(ctx, cfg.Secrets)
	if err != nil {
		log.Warn("secret store unavailable", "provider", cfg.Secrets.Provider, "err", err)
	} else {
		defer store.Close()
	}

	journal := health.NewJournal(cfg.Health.MountPath, cfg.ServiceName, cfg.Env)
	defer journal.Close()
	checker := health.NewChecker(health.Options{
		ServiceName: cfg.ServiceName,
		Region:      cfg.Region,
		Environment: cfg.Env,
		VaultURL:    cfg.Secrets.VaultURL,
		Timeout:     cfg.Health.ProbeTimeout,
		Parallel:    cfg.Health.Parallel,
		SampleRows:  cfg.Health.SampleRows,
	}, health.Dependencies{
		Secrets:  store,
		Keys:     keys,
		Database: repo,
		Journal:  journal,
		System:   health.HostSampler{CPUInterval: time.Second},
	})

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Info("redis not configured; rate limiting and read cache disabled")
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	publisher := service.NewPublisher(cfg.Events.RabbitURL, cfg.Events.Queue)
	defer publisher.Close()
	if cfg.Events.RunConsumer && cfg.Events.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.Events.RabbitURL, cfg.Events.Queue, cfg.Events.LogDir)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", "err", err)
			}
		}()
	}

	metrics.StartRowGauge(ctx, repo, 30*time.Second)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Metrics())
	e.Use(middleware.CORS(cfg.CORSOrigin))

	router.RegisterRoutes(e)
	router.RegisterHealth(e, handler.NewHealthHandler(checker))
	// Pass the cache only when it is live; a typed nil would satisfy the interface.
	var invalidator handler.CacheInvalidator
	if cache != nil {
		invalidator = cache
	}
	router.RegisterDiagrams(e, handler.NewDiagramHandler(repo, publisher, invalidator), router.DiagramOptions{
		JWTSecret: cfg.JWTSecret,
		Cache:     cache,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})
	if !cfg.AuthEnabled() {
		log.Warn("JWT_SECRET not set; diagram routes are unauthenticated")
	}

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}
