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

	"github.com/go-redis/redis/v8"
	"github.com/isdelr/realty-be/internal/api"
	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/config"
	"github.com/isdelr/realty-be/internal/database"
	"github.com/isdelr/realty-be/internal/logger"
	"github.com/isdelr/realty-be/internal/metrics"
	"github.com/isdelr/realty-be/internal/monitoring"
	"github.com/isdelr/realty-be/internal/services"
	"github.com/isdelr/realty-be/internal/storage"
	"github.com/isdelr/realty-be/internal/telemetry"
	"github.com/isdelr/realty-be/internal/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "realty-be"

func main() {
	// Load configuration; CONFIG_FILE optionally names a YAML file
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, serviceName, cfg.Telemetry)

	// Set up database
	db, err := database.New(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	// Token revocations live in Redis when configured, in the database otherwise.
	var revocations auth.RevocationStore = auth.NewSQLRevocationStore(db)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		revocations = auth.NewRedisRevocationStore(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using Redis token revocation store")
	}

	// Listing pictures go to S3 when a bucket is configured.
	var blobs storage.BlobStore
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("Failed to initialize picture storage")
		}
		blobs = s3Store
		log.Info().Str("bucket", cfg.Storage.Bucket).Msg("Storing listing pictures in S3")
	}

	m := metrics.New()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run(ctx)

	// Set up services
	userService := services.NewUserService(db)
	infoService := services.NewInfoService(db)
	propertyService := services.NewPropertyService(db, blobs)
	eventService := services.NewEventService(db)

	// Set up and run the background stats updater
	statUpdater := monitoring.NewStatUpdater(eventService, 30*time.Second)
	go statUpdater.Run()

	// Set up and run the maintenance scheduler
	scheduler, err := monitoring.NewScheduler(cfg.Maintenance, revocations, eventService, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure maintenance scheduler")
	}
	scheduler.Run()

	router := api.NewRouter(api.Deps{
		Config:      *cfg,
		Codec:       auth.NewCodec(cfg.Auth.Secret, auth.WithTTL(cfg.Auth.TokenTTL)),
		Revocations: revocations,
		Users:       userService,
		Info:        infoService,
		Properties:  propertyService,
		Events:      eventService,
		DB:          db,
		HostStats:   statUpdater,
		Hub:         hub,
		Metrics:     m,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	statUpdater.Stop()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush traces")
	}

	log.Info().Msg("Server exiting")
}
