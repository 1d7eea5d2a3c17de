package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startedAt = time.Now()

// HealthCheck обработчик для проверки работоспособности сервиса
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"service": "3xui-shop",
		"uptime":  time.Since(startedAt).Round(time.Second).String(),
		"time":    time.Now().Format(time.RFC3339),
	})
}
