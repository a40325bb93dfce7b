package main

import (
	"context"
	"io"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agrigrocer/marketplace-backend/common/database"
	apperrors "github.com/agrigrocer/marketplace-backend/common/errors"
	commonlogger "github.com/agrigrocer/marketplace-backend/common/logger"
	awspkg "github.com/agrigrocer/marketplace-backend/pkg/aws"
	"github.com/agrigrocer/marketplace-backend/services/order-service/controllers"
	"github.com/agrigrocer/marketplace-backend/services/order-service/email"
	"github.com/agrigrocer/marketplace-backend/services/order-service/middleware"
	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/payments"
	"github.com/agrigrocer/marketplace-backend/services/order-service/repository"
	"github.com/agrigrocer/marketplace-backend/services/order-service/routes"
	"github.com/agrigrocer/marketplace-backend/services/order-service/services"
	"github.com/agrigrocer/marketplace-backend/services/order-service/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("[OrderService] ❌ Failed to load config: ", err)
	}

	ctx := context.Background()

	awsCfg, awsErr := awspkg.LoadConfig(ctx)

	var extra io.Writer
	if awsErr == nil {
		if cw, err := awspkg.NewCloudWatchLogsWriter(ctx, "order-service"); err == nil && cw.IsEnabled() {
			extra = cw
		}
	}

	var logger *zap.Logger
	if extra != nil {
		logger, err = commonlogger.NewWithWriter(cfg.Env, extra)
	} else {
		logger, err = commonlogger.New(cfg.Env)
	}
	if err != nil {
		log.Fatal("[OrderService] ❌ Failed to initialize logger: ", err)
	}
	defer logger.Sync()

	dsn := database.DSN(
		cfg.PostgresHost, cfg.PostgresUser, cfg.PostgresPassword,
		cfg.PostgresDB, cfg.PostgresPort, cfg.PostgresSSLMode, cfg.PostgresTimeZone,
	)
	db, err := database.ConnectPostgres(dsn, logger,
		&models.Order{},
		&models.OrderItem{},
		&models.Product{},
		&models.Shop{},
		&models.User{},
		&models.Address{},
		&models.DiscountCode{},
		&models.ProductAnalytics{},
		&models.UserAnalytics{},
		&models.Notification{},
		&models.ProcessedEvent{},
	)
	if err != nil {
		logger.Fatal("Failed to connect to DB", zap.Error(err))
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Invalid REDIS_URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	orderRepo := repository.NewGormOrderRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	shopRepo := repository.NewGormShopRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	addressRepo := repository.NewGormAddressRepository(db)
	discountRepo := repository.NewGormDiscountCodeRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)
	analyticsRepo := repository.NewGormAnalyticsRepository(db)
	eventLedger := repository.NewGormEventLedger(db)

	sessionStore := session.NewRedisStore(redisClient)
	sessionManager := session.NewManager(sessionStore, shopRepo, logger)

	stripeSvc := payments.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)

	// Email delivery and the SNS fanout are best effort. If AWS is not
	// reachable the checkout pipeline still runs, just without them.
	var emailDispatcher email.Dispatcher
	var snsPublisher awspkg.SNSPublisher
	if awsErr == nil {
		if queueURL, err := awspkg.GetQueueURL(ctx, awsCfg, cfg.EmailQueueName); err == nil {
			emailQueue := awspkg.NewSQSQueue(awsCfg, queueURL)
			emailDispatcher = email.NewSQSDispatcher(emailQueue)

			if sender, err := email.NewSMTPSender(); err == nil {
				worker := email.NewWorker(emailQueue, sender, logger)
				go worker.Start(ctx)
			} else {
				logger.Warn("SMTP not configured, email worker disabled", zap.Error(err))
			}
		} else {
			logger.Warn("Email queue unavailable", zap.String("queue", cfg.EmailQueueName), zap.Error(err))
		}
		snsPublisher = awspkg.NewSNSClient(awsCfg)
	} else {
		logger.Warn("AWS config unavailable, email and SNS disabled", zap.Error(awsErr))
	}

	materializer := services.NewMaterializer(services.MaterializerConfig{
		Sessions:      sessionStore,
		Orders:        orderRepo,
		Products:      productRepo,
		Shops:         shopRepo,
		Users:         userRepo,
		Analytics:     analyticsRepo,
		Notifications: notificationRepo,
		Ledger:        eventLedger,
		Emails:        emailDispatcher,
		SNS:           snsPublisher,
		SNSTopicArn:   cfg.OrderSNSTopicARN,
		PublicBaseURL: cfg.PublicBaseURL,
		Logger:        logger,
	})

	deliverySvc := services.NewDeliveryService(orderRepo, shopRepo, logger)

	oc := &controllers.OrderController{
		Sessions:      sessionManager,
		Payments:      stripeSvc,
		Materializer:  materializer,
		Delivery:      deliverySvc,
		Orders:        orderRepo,
		Shops:         shopRepo,
		Products:      productRepo,
		Users:         userRepo,
		Addresses:     addressRepo,
		DiscountCodes: discountRepo,
		Logger:        logger,
	}

	auth := middleware.NewAuth(cfg.JWTSecret)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonlogger.RequestLogger(logger))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterOrderRoutes(r, oc, auth)

	logger.Info("Order service running", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
