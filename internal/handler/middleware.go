package handler

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/metrics"
)

const (
	// RequestIDHeader 请求 ID 头
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID 请求 ID 注入中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// Logger 请求日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed":    time.Since(start).String(),
		})
		if id := c.Param("id"); id != "" {
			entry = entry.WithField("session_id", id)
		}
		entry.Info("request")
	}
}

// Recovery Panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logrus.WithFields(logrus.Fields{
					"request_id": c.GetString(requestIDKey),
					"path":       c.Request.URL.Path,
					"method":     c.Request.Method,
					"stack":      string(debug.Stack()),
				}).WithError(fmt.Errorf("%v", err)).Error("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
					Code:      string(apperr.CodeInternalError),
					Message:   "internal server error",
					RequestID: c.GetString(requestIDKey),
				})
			}
		}()
		c.Next()
	}
}

// Metrics Prometheus 指标采集中间件
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// CORS 跨域中间件，浏览器端向导页面需要
func CORS(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	cfg := cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader, "Content-Disposition", headerDownloadSucceeded, headerDownloadFailed},
		MaxAge:        12 * time.Hour,
	}
	// 通配来源时不能携带凭证
	if !(len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
