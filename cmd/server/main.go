package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/taekabu/linkfan/config"
	"github.com/taekabu/linkfan/internal/app/kv"
	appmodel "github.com/taekabu/linkfan/internal/app/model"
	apprepository "github.com/taekabu/linkfan/internal/app/repository"
	appserver "github.com/taekabu/linkfan/internal/app/server"
	appservice "github.com/taekabu/linkfan/internal/app/service"
	httpUtil "github.com/taekabu/linkfan/internal/http/util"
	"github.com/taekabu/linkfan/internal/infra/logger"
	infraNATS "github.com/taekabu/linkfan/internal/infra/nats"
	infraPostgres "github.com/taekabu/linkfan/internal/infra/postgres"
	infraPrometheus "github.com/taekabu/linkfan/internal/infra/prometheus"
	infraRedis "github.com/taekabu/linkfan/internal/infra/redis"
	"go.uber.org/zap"
)

const sessionTTL = 24 * time.Hour

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_user", cfg.Postgres.User),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.User{},
		&appmodel.MainLink{},
		&appmodel.DestinationLink{},
		&appmodel.ConversionSetting{},
	); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	userRepo := apprepository.NewUserRepository(gormDB)
	mainLinkRepo := apprepository.NewMainLinkRepository(gormDB)
	destinationRepo := apprepository.NewDestinationRepository(gormDB)
	settingRepo := apprepository.NewConversionSettingRepository(gormDB)

	snapshotStore := kv.NewSnapshotStore(redisClient)
	counterStore := kv.NewCounterStore(redisClient)

	publisher := appservice.NewSnapshotPublisher(appservice.PublisherDeps{
		Logger:       log,
		MainLinks:    mainLinkRepo,
		Destinations: destinationRepo,
		Users:        userRepo,
		Snapshots:    snapshotStore,
	})

	linkService := appservice.NewLinkService(appservice.LinkServiceDeps{
		Logger:       log,
		Users:        userRepo,
		MainLinks:    mainLinkRepo,
		Destinations: destinationRepo,
		Settings:     settingRepo,
		Counters:     counterStore,
		Publisher:    publisher,
	})

	conversionTracker := appservice.NewConversionTracker(appservice.ConversionDeps{
		Logger:       log,
		Destinations: destinationRepo,
		Settings:     settingRepo,
		Counters:     counterStore,
	})

	tasks := appservice.NewBackgroundRunner(log, 0)
	clickPublisher := appservice.NewClickPublisher(js)
	resolver := appservice.NewResolver(appservice.ResolverDeps{
		Logger:    log,
		Snapshots: snapshotStore,
		Clicks:    clickPublisher,
		Tasks:     tasks,
	})

	clickConsumer := appservice.NewClickConsumer(js, log, counterStore)
	if err := clickConsumer.Start(); err != nil {
		log.Fatal("Failed to start click consumer", zap.Error(err))
	}
	defer clickConsumer.Stop()

	if cfg.Resync.Enabled {
		interval, err := time.ParseDuration(cfg.Resync.Interval)
		if err != nil {
			interval = 0
		}
		resyncer := appservice.NewSnapshotResyncer(log, mainLinkRepo, publisher, interval)
		resyncer.Start()
		defer resyncer.Stop()
	}

	sessions := httpUtil.NewSessionSigner([]byte(cfg.Auth.SessionSecret), sessionTTL)

	server := appserver.New(appserver.Dependencies{
		Logger:      log,
		Postgres:    pool,
		Redis:       redisClient,
		NATS:        natsConn,
		JetStream:   js,
		Users:       userRepo,
		Links:       linkService,
		Resolver:    resolver,
		Conversions: conversionTracker,
		Sessions:    sessions,
	})

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := server.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}

	tasks.Wait()
}
