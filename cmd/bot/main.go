package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mrtesla07/3xui-shop/internal/api/rest"
	"github.com/mrtesla07/3xui-shop/internal/config"
	"github.com/mrtesla07/3xui-shop/internal/db"
	"github.com/mrtesla07/3xui-shop/internal/integration/urlpay"
	"github.com/mrtesla07/3xui-shop/internal/kafka"
	"github.com/mrtesla07/3xui-shop/internal/metrics"
	"github.com/mrtesla07/3xui-shop/internal/repository"
	"github.com/mrtesla07/3xui-shop/internal/repository/postgres"
	"github.com/mrtesla07/3xui-shop/internal/service"
	"github.com/mrtesla07/3xui-shop/internal/telegram"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := initLogger()
	defer log.Sync()

	log.Infow("3xui-shop bot starting up...")

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatalw("Failed to load configuration", "error", err)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключаемся к базе данных
	dbClient, err := db.NewDBClient(cfg.Database.DSN, log)
	if err != nil {
		log.Fatalw("Failed to connect to database", "error", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Errorw("Error closing database connection", "error", err)
		}
	}()
	log.Infow("Database connection established")

	// Инициализируем Redis кеш
	redisCache, err := repository.NewRedisCacheRepository(
		cfg.Redis.Addr,
		cfg.Redis.Password,
		cfg.Redis.DB,
		log,
	)
	if err != nil {
		// Не фатально, но предупреждаем
		log.Warnw("Failed to initialize Redis cache, continuing without caching", "error", err)
	} else {
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Errorw("Error closing Redis connection", "error", err)
			}
		}()
	}

	// Инициализируем репозиторий транзакций
	baseRepo := postgres.NewTransactionRepository(dbClient.DB(), log)

	var transactionRepo repository.TransactionRepository
	if redisCache != nil {
		transactionRepo = repository.NewCachedTransactionRepository(baseRepo, redisCache, log)
		log.Infow("Using cached transaction repository")
	} else {
		transactionRepo = baseRepo
		log.Infow("Using non-cached transaction repository")
	}

	// Инициализируем клиент UrlPay
	urlpayClient := urlpay.NewClient(urlpay.Config{
		BaseURL:   cfg.UrlPay.BaseURL,
		APIKey:    cfg.UrlPay.APIKey,
		ShopID:    cfg.UrlPay.ShopID,
		SecretKey: cfg.UrlPay.SecretKey,
	}, log)
	if !urlpayClient.Configured() {
		log.Warnw("UrlPay credentials are not fully configured, payment creation will fail")
	}

	// Инициализируем Kafka Producer
	kafkaProducer, err := kafka.NewSaramaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		log.Errorw("Failed to initialize Kafka producer, continuing without event publishing", "error", err)
		kafkaProducer = nil
	} else {
		defer func() {
			if err := kafkaProducer.Close(); err != nil {
				log.Errorw("Error closing Kafka producer", "error", err)
			}
		}()
	}

	// Инициализируем Telegram бота
	bot, err := telegram.NewBot(cfg.Telegram.Token, log)
	if err != nil {
		log.Fatalw("Failed to initialize Telegram bot", "error", err)
	}

	// Prometheus реестр и метрики
	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry, log)

	// Инициализируем service layer
	gateway := service.NewGatewayService(
		service.Credentials{
			APIKey:    cfg.UrlPay.APIKey,
			ShopID:    cfg.UrlPay.ShopID,
			SecretKey: cfg.UrlPay.SecretKey,
		},
		urlpayClient,
		transactionRepo,
		bot,
		telegram.Formatter{},
		bot,
		kafkaProducer,
		paymentMetrics,
		log,
	)

	// Настраиваем HTTP сервер с роутами
	router := rest.SetupRouter(gateway, registry, log)
	server := rest.NewServer(router, cfg.App.Port, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	// Запускаем цикл обработки обновлений бота
	go bot.Run(ctx, gateway)

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Infow("Shutdown signal received")

	cancel()

	// Даем 10 секунд на завершение текущих запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("HTTP server shutdown error", "error", err)
	} else {
		log.Infow("HTTP server gracefully stopped")
	}

	log.Infow("Cleanup finished. Goodbye!")
}

// initLogger инициализирует новый логгер
func initLogger() *logger.Logger {
	logLevel := logger.INFO
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = logger.DEBUG
	}
	return logger.New(logLevel)
}
