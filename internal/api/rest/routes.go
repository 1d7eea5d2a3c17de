package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrtesla07/3xui-shop/internal/api/rest/handlers"
	"github.com/mrtesla07/3xui-shop/internal/api/rest/middleware"
	"github.com/mrtesla07/3xui-shop/internal/service"
	"github.com/mrtesla07/3xui-shop/pkg/logger"
)

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(gateway *service.GatewayService, registry *prometheus.Registry, log *logger.Logger) *gin.Engine {
	r := gin.New()

	// Подключение middleware
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(gin.Recovery())

	// Endpoint для проверки работоспособности сервиса
	r.GET("/health", handlers.HealthCheck)

	// Prometheus метрики
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	webhookHandler := handlers.NewWebhookHandler(gateway, log)

	// Вебхуки на корневом уровне роутера
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/urlpay", webhookHandler.HandleUrlPayWebhook)
	}

	return r
}
