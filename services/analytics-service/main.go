package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	commonlogger "github.com/agrigrocer/marketplace-backend/common/logger"
	"github.com/agrigrocer/marketplace-backend/services/analytics-service/consumer"
	"github.com/agrigrocer/marketplace-backend/services/analytics-service/models"
	"github.com/agrigrocer/marketplace-backend/services/analytics-service/services"
	"github.com/agrigrocer/marketplace-backend/common/database"
)

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("[AnalyticsService] ❌ Failed to load config: ", err)
	}

	logger, err := commonlogger.New(cfg.Env)
	if err != nil {
		log.Fatal("[AnalyticsService] ❌ Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	dsn := database.DSN(
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword,
		cfg.PostgresDB, cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)
	db, err := database.ConnectPostgres(dsn, logger,
		&models.ProductAnalytics{},
		&models.UserAnalytics{},
	)
	if err != nil {
		logger.Fatal("Failed to connect to DB", zap.Error(err))
	}

	svc := services.NewAnalyticsService(services.NewGormStore(db), logger)
	cons := consumer.New(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		logger.Info("Shutting down consumer")
		cancel()
	}()

	if err := cons.Start(ctx); err != nil {
		logger.Fatal("Consumer stopped", zap.Error(err))
	}
}
