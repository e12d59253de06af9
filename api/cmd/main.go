package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	zlog "github.com/rs/zerolog/log"

	"github.com/promokit/adserve/internal/application/ads"
	"github.com/promokit/adserve/internal/application/analytics"
	"github.com/promokit/adserve/internal/application/fraud"
	"github.com/promokit/adserve/internal/application/ingest"
	"github.com/promokit/adserve/internal/config"
	rediscache "github.com/promokit/adserve/internal/infrastructure/caching/redis"
	"github.com/promokit/adserve/internal/infrastructure/db/postgres"
	rabbitpub "github.com/promokit/adserve/internal/infrastructure/messaging/rabbitmq"
	"github.com/promokit/adserve/internal/logger"
	"github.com/promokit/adserve/internal/transport/http/handlers"
	authmw "github.com/promokit/adserve/internal/transport/http/middleware"
	"github.com/promokit/adserve/internal/transport/http/router"
)

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now().UTC() }

type App struct {
	Config *config.Config
	Server *http.Server
	DB     *sql.DB

	Cache      *rediscache.Cache
	Publisher  *rabbitpub.Publisher
	Reconciler *ingest.Reconciler
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal().Err(err).Msg("db open failed")
	}
	defer db.Close()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			zlog.Fatal().Err(err).Msg("db ping failed")
		}
	}

	app := NewApp(cfg, db)
	defer func() {
		if app.Publisher != nil {
			_ = app.Publisher.Close()
		}
		if app.Cache != nil {
			_ = app.Cache.Close()
		}
	}()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.Reconciler != nil {
		go app.Reconciler.Run(rootCtx)
	}

	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server crashed")
		}
	}()

	<-rootCtx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("shutdown incomplete")
	}
}

func NewApp(cfg *config.Config, db *sql.DB) *App {
	// 1) Infrastructure
	adRepo := postgres.NewAdRepo(db)
	eventRepo := postgres.NewEventRepo(db)
	statsRepo := postgres.NewStatsRepo(db)

	// Cache degrades to fail-open pass-through when Redis is unreachable.
	cache, err := rediscache.New(cfg.RedisURL)
	if err != nil {
		zlog.Warn().Err(err).Msg("redis unavailable, serving uncached")
		cache = nil
	}

	var rabbit *rabbitpub.Publisher
	var replay ingest.ReplayPublisher = ingest.NoopReplay{}
	if cfg.RabbitURL != "" {
		p, err := rabbitpub.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			zlog.Fatal().Err(err).Msg("rabbit publisher init failed")
		}
		rabbit = p
		replay = p
		zlog.Info().Str("exchange", cfg.RabbitExchange).Msg("rabbit publisher ready")
	} else {
		zlog.Warn().Msg("RABBIT_URL empty: exhausted retries fall through to log dumps")
	}

	// 2) Application
	clock := sysClock{}
	catalog := ads.New(adRepo, cache, clock, cfg.CacheTTLModerate, cfg.CacheTTLModerate, cfg.CacheTTLShort)
	stats := analytics.New(statsRepo, cache, clock, cfg.CacheTTLDynamic, cfg.CacheTTLStatic)
	detector := fraud.New(eventRepo, fraud.Limits{
		ImpressionsPerWindow: cfg.FraudImpressionsPerWindow,
		ClicksPerWindow:      cfg.FraudClicksPerWindow,
		ConversionsPerWindow: cfg.FraudConversionsPerWindow,
		VelocityWindow:       cfg.FraudVelocityWindow,
		Lookback:             cfg.FraudLookback,
	})
	ingestor := ingest.New(catalog, eventRepo, detector, cache, replay, clock,
		cfg.FraudLookbackTimeout, cfg.IngestRetryAttempts, cfg.IngestRetryBackoff)

	var reconciler *ingest.Reconciler
	if cfg.ReconcileEnabled {
		reconciler = ingest.NewReconciler(eventRepo, cache, cfg.ReconcileInterval)
	}

	// 3) Transport
	serveH := handlers.NewServeHandler(catalog, clock)
	eventsH := handlers.NewEventsHandler(ingestor)
	statsH := handlers.NewAnalyticsHandler(stats, clock)
	adminH := handlers.NewAdminAdsHandler(catalog, clock)
	auth := authmw.NewAuth(cfg.JWTSecret, cfg.JWTIssuer)
	z := handlers.NewHealthHandler()

	httpHandler := router.New(serveH, eventsH, statsH, adminH, auth, z, cfg)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpHandler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &App{
		Config:     cfg,
		Server:     srv,
		DB:         db,
		Cache:      cache,
		Publisher:  rabbit,
		Reconciler: reconciler,
	}
}
