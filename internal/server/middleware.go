package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// slowRequestThreshold is the duration above which requests are logged
// at WARN level. Generation calls legitimately take seconds; anything
// beyond this points at a struggling provider.
const slowRequestThreshold = 2 * time.Second

// requestLogger logs every request with method, path, status and
// timing.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request failed", attrs...)
		case duration > slowRequestThreshold:
			logger.Warn("slow request", attrs...)
		default:
			logger.Debug("request completed", attrs...)
		}
	}
}
