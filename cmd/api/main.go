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

	"github.com/casahub/casahub/internal/auth"
	"github.com/casahub/casahub/internal/cache"
	"github.com/casahub/casahub/internal/config"
	"github.com/casahub/casahub/internal/db"
	apphttp "github.com/casahub/casahub/internal/http"
	"github.com/casahub/casahub/internal/http/handlers"
	"github.com/casahub/casahub/internal/http/middlewares"
	"github.com/casahub/casahub/internal/media"
	"github.com/casahub/casahub/internal/observability"
	"github.com/casahub/casahub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(rootCtx, "casahub-api", cfg.OTELEndpoint)

	if err != nil {
		log.Warn("tracing disabled", "error", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	if err := db.Migrate(rootCtx, cfg.DBURL); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(registry)

	usersRepo := postgres.NewUsersRepo(pool, prom)
	listingsRepo := postgres.NewListingsRepo(pool, prom)

	var listingCache cache.Store
	var cachePing handlers.PingFunc

	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      30 * time.Second,
		})
		defer redisCache.Close()

		listingCache = redisCache
		cachePing = redisCache.Ping
	} else {
		listingCache = cache.NewMemory(30 * time.Second)
	}

	uploader, err := media.NewS3Uploader(rootCtx, media.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.S3PublicBaseURL,
	})

	if err != nil {
		log.Error("media storage init failed", "error", err)
		os.Exit(1)
	}

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL())
	authService := auth.NewService(usersRepo, jwtManager, log)

	router := apphttp.NewRouter(apphttp.Deps{
		Cfg: cfg,
		Log: log,

		Auth:     handlers.NewAuthHandler(authService, cfg),
		Users:    handlers.NewUsersHandler(usersRepo, listingsRepo, cfg),
		Listings: handlers.NewListingsHandler(listingsRepo, listingCache, prom),
		Upload:   handlers.NewUploadHandler(uploader, prom),
		Health:   handlers.NewHealthHandler(pool.Ping, cachePing),

		AuthMW: middlewares.NewAuthMiddleware(jwtManager, log),

		Prom:     prom,
		Registry: registry,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "env", cfg.Env)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
}
