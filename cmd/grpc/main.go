package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-pricing-service/config"
	"github.com/fekuna/omnipos-pricing-service/internal/broker"
	"github.com/fekuna/omnipos-pricing-service/internal/cache"
	"github.com/fekuna/omnipos-pricing-service/internal/database/postgres"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"github.com/fekuna/omnipos-pricing-service/internal/middleware"
	"github.com/fekuna/omnipos-pricing-service/internal/rpc"
	"github.com/fekuna/omnipos-pricing-service/internal/search"
	"github.com/shopspring/decimal"

	rateH "github.com/fekuna/omnipos-pricing-service/internal/exchangerate/handler"
	rateListenerPkg "github.com/fekuna/omnipos-pricing-service/internal/exchangerate/listener"
	rateRepoPkg "github.com/fekuna/omnipos-pricing-service/internal/exchangerate/repository"
	rateUCPkg "github.com/fekuna/omnipos-pricing-service/internal/exchangerate/usecase"

	prodH "github.com/fekuna/omnipos-pricing-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-pricing-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-pricing-service/internal/product/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig).With(zap.String("instance", cfg.Server.InstanceID))
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if err := postgres.Migrate(context.Background(), db); err != nil {
		appLogger.Fatal("Could not apply schema", zap.Error(err))
	}

	// 4. Initialize Repositories
	rateRepo := rateRepoPkg.NewSQLRepository(db)
	prodRepo := prodRepoPkg.NewSQLRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka
	kafkaConfig := &broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}
	var publisher broker.Publisher
	var kafkaConsumer *broker.KafkaConsumer
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(kafkaConfig)
		defer producer.Close()
		publisher = producer

		kafkaConsumer = broker.NewConsumer(kafkaConfig)
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		appLogger.Warn("Kafka disabled, rate changes will not reach other replicas until cache expiry")
	}

	// 5.8 Initialize Elasticsearch
	var esClient *search.Client
	if cfg.Elastic.Enabled {
		esClient, err = search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			// Search falls back to the database.
			appLogger.Warn("Could not connect to Elasticsearch (Search features might be limited)", zap.Error(err))
			esClient = nil
		} else {
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 6. Initialize UseCases
	rateUC := rateUCPkg.NewExchangeRateUseCase(rateRepo, redisClient, publisher, rateUCPkg.Options{
		AllowIdentityFallback: cfg.Pricing.AllowIdentityRate,
		Source:                cfg.Server.InstanceID,
	}, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, rateUC, redisClient, esClient, publisher, prodUCPkg.Options{
		DefaultTaxRate: decimal.NewFromFloat(cfg.Pricing.DefaultTaxRate),
		Source:         cfg.Server.InstanceID,
	}, appLogger)

	// 6.5 Start Listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if kafkaConsumer != nil {
		rateListener := rateListenerPkg.NewRateListener(kafkaConsumer, rateUC, cfg.Server.InstanceID, appLogger)
		go rateListener.Start(ctx)
	}

	// 7. Initialize Handlers
	rateHandler := rateH.NewExchangeRateHandler(rateUC, appLogger)
	prodHandler := prodH.NewProductHandler(prodUC, appLogger)

	// 8. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.LoggingInterceptor(appLogger),
			middleware.AuthInterceptor(middleware.AuthConfig{
				SecretKey: cfg.JWT.SecretKey,
				Required:  cfg.JWT.Required,
			}, appLogger),
		),
	)

	// Register Services
	rpc.Register(grpcServer, rateH.ServiceName, rateHandler)
	rpc.Register(grpcServer, prodH.ServiceName, prodHandler)

	// Register Reflection
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
