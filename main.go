package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	segkafka "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/wisteria/config"
	"github.com/Ramsey-B/wisteria/internal/repositories/building"
	"github.com/Ramsey-B/wisteria/internal/repositories/exclusion"
	"github.com/Ramsey-B/wisteria/internal/repositories/listing"
	"github.com/Ramsey-B/wisteria/internal/repositories/mergehistory"
	"github.com/Ramsey-B/wisteria/internal/repositories/property"
	"github.com/Ramsey-B/wisteria/pkg/database"
	"github.com/Ramsey-B/wisteria/pkg/dedup"
	"github.com/Ramsey-B/wisteria/pkg/events"
	"github.com/Ramsey-B/wisteria/pkg/kafka"
	"github.com/Ramsey-B/wisteria/pkg/merging"
	"github.com/Ramsey-B/wisteria/pkg/middleware"
	"github.com/Ramsey-B/wisteria/pkg/processor"
	"github.com/Ramsey-B/wisteria/pkg/redis"
	"github.com/Ramsey-B/wisteria/pkg/routes/buildings"
	"github.com/Ramsey-B/wisteria/pkg/routes/duplicates"
	"github.com/Ramsey-B/wisteria/pkg/routes/exclusions"
	"github.com/Ramsey-B/wisteria/pkg/routes/health"
	mergehistoryroutes "github.com/Ramsey-B/wisteria/pkg/routes/mergehistory"
	"github.com/Ramsey-B/wisteria/pkg/routes/merges"
	"github.com/Ramsey-B/wisteria/pkg/startup"
	"github.com/Ramsey-B/wisteria/pkg/tracing"
	"github.com/Ramsey-B/wisteria/pkg/tracing/exporters"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	// .env is optional; deployed environments configure through the process env
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := ectoenv.BindEnv(&cfg); err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	zapLogger, err := newZapLogger(&cfg)
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx := context.Background()

	shutdownTracing := initTracing(ctx, &cfg, logger)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	var (
		sqlxDB      *sqlx.DB
		redisClient *redis.Client
	)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(startup.Dep{
		Name: "postgres",
		StartFn: func(ctx context.Context) error {
			db, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, postgresDSN(&cfg))
			if err != nil {
				return err
			}
			db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			sqlxDB = db
			return nil
		},
		StopFn: func(ctx context.Context) error {
			if sqlxDB == nil {
				return nil
			}
			return sqlxDB.Close()
		},
	})
	boot.AddDependency(startup.Dep{
		Name: "redis",
		StartFn: func(ctx context.Context) error {
			client, err := redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			if err != nil {
				return err
			}
			redisClient = client
			return nil
		},
		StopFn: func(ctx context.Context) error {
			if redisClient == nil {
				return nil
			}
			return redisClient.Close()
		},
	})
	boot.AddDependency(startup.Dep{
		Name: "kafka",
		StartFn: func(ctx context.Context) error {
			if len(cfg.KafkaBrokers) == 0 {
				return fmt.Errorf("no kafka brokers configured")
			}
			conn, err := segkafka.DialContext(ctx, "tcp", cfg.KafkaBrokers[0])
			if err != nil {
				return err
			}
			return conn.Close()
		},
	})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.MigratePostgres(cfg.DatabaseName, sqlxDB.DB); err != nil {
		logger.WithError(err).Error("Database migration failed")
		os.Exit(1)
	}

	db := database.NewDatabaseInstance(sqlxDB, logger)

	buildingRepo := building.NewRepository(db, logger)
	propertyRepo := property.NewRepository(db, logger)
	listingRepo := listing.NewRepository(db, logger)
	exclusionRepo := exclusion.NewRepository(db, logger)
	buildingHistories := mergehistory.NewBuildingRepository(db, logger)
	propertyHistories := mergehistory.NewPropertyRepository(db, logger)

	var scanCache *dedup.Cache
	if cfg.DedupCacheEnabled {
		scanCache = dedup.NewCache(redisClient, cfg.DedupCacheTTL)
	}

	finderCfg := dedup.DefaultConfig()
	finderCfg.ScanLimit = cfg.DedupScanLimit
	finderCfg.CacheTTL = cfg.DedupCacheTTL
	finder := dedup.NewFinder(logger, buildingRepo, exclusionRepo, scanCache, finderCfg)

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	emitter := events.NewEmitter(producer, logger)

	locker := redis.NewLocker(redisClient, "wisteria:merge")
	engine := merging.NewEngine(
		logger,
		buildingRepo,
		propertyRepo,
		listingRepo,
		exclusionRepo,
		buildingHistories,
		propertyHistories,
		locker,
		scanCache,
		emitter,
		merging.Config{
			LockTTL:     cfg.MergeLockTTL,
			LockTimeout: cfg.MergeLockWait,
		},
	)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}

	for _, err := range []error{
		ectoinject.RegisterInstance[*config.Config](container, &cfg),
		ectoinject.RegisterInstance[ectologger.Logger](container, logger),
		ectoinject.RegisterInstance[database.DB](container, db),
		ectoinject.RegisterInstance[*building.Repository](container, buildingRepo),
		ectoinject.RegisterInstance[*property.Repository](container, propertyRepo),
		ectoinject.RegisterInstance[listing.ListingRepository](container, listingRepo),
		ectoinject.RegisterInstance[*exclusion.Repository](container, exclusionRepo),
		ectoinject.RegisterInstance[*mergehistory.BuildingRepository](container, buildingHistories),
		ectoinject.RegisterInstance[*mergehistory.PropertyRepository](container, propertyHistories),
		ectoinject.RegisterInstance[*dedup.Finder](container, finder),
		ectoinject.RegisterInstance[*merging.Engine](container, engine),
	} {
		if err != nil {
			logger.WithError(err).Error("Failed to register dependency")
			os.Exit(1)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = middleware.Error(logger)

	admin := e.Group("/admin")
	buildings.Register(admin)
	duplicates.Register(admin)
	merges.Register(admin)
	exclusions.Register(admin)
	mergehistoryroutes.Register(admin)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	proc := processor.NewListingProcessor(logger, buildingRepo, propertyRepo, listingRepo, scanCache)
	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(cfg, logger, proc.ProcessMessage)
	}

	var kafkaHealth health.KafkaHealth
	if consumer != nil {
		kafkaHealth = consumer
	}
	checker := health.NewChecker(db, redisClient, kafkaHealth, version)
	checker.RegisterRoutes(e)

	if consumer != nil {
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start Kafka consumer")
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
		TLSConfig: &tls.Config{
			MinVersion: tlsVersion(cfg.TLSMinVersion),
			MaxVersion: tlsVersion(cfg.TLSMaxVersion),
		},
	}

	go func() {
		logger.Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	checker.SetReady(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.WithError(err).Error("Failed to stop Kafka consumer")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server")
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close Kafka producer")
	}
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop dependencies")
	}

	logger.Info("Shutdown complete")
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// initTracing wires the global tracer. Returns the provider shutdown func.
func initTracing(ctx context.Context, cfg *config.Config, logger ectologger.Logger) func(context.Context) error {
	if !cfg.TracingEnabled {
		return func(context.Context) error { return nil }
	}

	var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{}
	if cfg.TracingExporter == "otlp" {
		otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: cfg.TracingOTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			logger.WithError(err).Warn("Failed to create OTLP exporter, falling back to console")
		} else {
			exporter = otlpExporter
		}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
		)),
	)
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return provider.Shutdown
}

func postgresDSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost,
		cfg.DatabasePort,
		cfg.DatabaseUserName,
		cfg.DatabasePassword,
		cfg.DatabaseName,
		cfg.DatabaseSSLMode,
	)
}

func tlsVersion(name string) uint16 {
	switch name {
	case "TLS_1_0":
		return tls.VersionTLS10
	case "TLS_1_1":
		return tls.VersionTLS11
	case "TLS_1_3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
