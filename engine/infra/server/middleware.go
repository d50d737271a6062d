package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/tdlimport/pkg/logger"
)

// LoggerMiddleware attaches log to the request context and logs each request.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), log))
		c.Next()
		log.Info("Request completed",
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"status_code", c.Writer.Status(),
			"body_size", c.Writer.Size(),
			"path", c.Request.URL.Path,
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}

// BodySizeLimiter caps the request body at limit bytes.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
