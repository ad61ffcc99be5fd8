package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"marketplace-system/internal/controllers"
	"marketplace-system/internal/listeners"
	"marketplace-system/internal/repositories"
	"marketplace-system/internal/routes"
	"marketplace-system/internal/services"
	"marketplace-system/pkg/config"
	"marketplace-system/pkg/database/postgresql"
	"marketplace-system/pkg/eventbus"
	"marketplace-system/pkg/filestorage"
	"marketplace-system/pkg/logger"
	"marketplace-system/pkg/mailer"
	"marketplace-system/pkg/middleware"
	"marketplace-system/pkg/payment"
	jwtservice "marketplace-system/pkg/service"
	"marketplace-system/pkg/utils"
	"marketplace-system/pkg/websocket"
)

func main() {
	log := logger.NewLogger()
	defer func() { _ = log.Sync() }()

	cfg := config.New()

	dbpool := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Не удалось подключиться к Redis", zap.Error(err))
	}

	fileStorage, err := filestorage.NewMinIOFileStorage(
		cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
		cfg.MinIO.Bucket, cfg.MinIO.PublicURL, cfg.MinIO.UseSSL,
	)
	if err != nil {
		log.Fatal("Не удалось инициализировать файловое хранилище", zap.Error(err))
	}

	// Инфраструктура.
	hub := websocket.NewHub()
	go hub.Run()

	bus := eventbus.New(log)
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, log)
	paymentProvider := payment.New(cfg.Payment.BaseURL, cfg.Payment.ClientID, cfg.Payment.APIKey, log)
	jwtSvc := jwtservice.NewJWTService(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL, log)

	// Репозитории.
	txManager := repositories.NewTxManager(dbpool)
	userRepo := repositories.NewUserRepository(dbpool)
	serviceRequestRepo := repositories.NewServiceRequestRepository(dbpool)
	materialRequestRepo := repositories.NewMaterialRequestRepository(dbpool)
	contractorAppRepo := repositories.NewContractorApplicationRepository(dbpool)
	distributorAppRepo := repositories.NewDistributorApplicationRepository(dbpool)
	paymentRepo := repositories.NewPaymentRepository(dbpool)
	notificationRepo := repositories.NewNotificationRepository(dbpool)
	reviewRepo := repositories.NewReviewRepository(dbpool)
	cacheRepo := repositories.NewRedisCacheRepository(redisClient)

	// Сервисы.
	notificationSvc := services.NewNotificationService(notificationRepo, hub, log)
	requestSvc := services.NewRequestService(serviceRequestRepo, materialRequestRepo, contractorAppRepo, distributorAppRepo, txManager, fileStorage, notificationSvc, log)
	applicationSvc := services.NewApplicationService(serviceRequestRepo, materialRequestRepo, contractorAppRepo, distributorAppRepo, userRepo, notificationSvc, log)
	paymentSvc := services.NewPaymentService(paymentRepo, contractorAppRepo, distributorAppRepo, serviceRequestRepo, materialRequestRepo, userRepo, cacheRepo, txManager, paymentProvider, notificationSvc, bus, cfg.Payment, log)
	reputationSvc := services.NewReputationService(reviewRepo, userRepo, serviceRequestRepo, materialRequestRepo, contractorAppRepo, distributorAppRepo, cacheRepo, txManager, log)
	authSvc := services.NewAuthService(userRepo, jwtSvc, log)
	reportSvc := services.NewReportService(paymentRepo, log)

	// Слушатели шины.
	listeners.NewPaymentListener(hub, smtpMailer, log).Register(bus)

	// HTTP.
	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewValidator(validator.New())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.InjectLogger(log))

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc, log)
	routes.Register(e, authMiddleware, routes.Controllers{
		Auth:         controllers.NewAuthController(authSvc, log),
		Request:      controllers.NewRequestController(requestSvc, log),
		Application:  controllers.NewApplicationController(applicationSvc, log),
		Payment:      controllers.NewPaymentController(paymentSvc, log),
		Notification: controllers.NewNotificationController(notificationSvc, log),
		Review:       controllers.NewReviewController(reputationSvc, log),
		Report:       controllers.NewReportController(reportSvc, log),
		Websocket:    controllers.NewWebsocketController(hub, log),
	})

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Сервер остановился с ошибкой", zap.Error(err))
		}
	}()
	log.Info("Сервер запущен", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("Ошибка graceful shutdown", zap.Error(err))
	}
	log.Info("Сервер остановлен")
}
