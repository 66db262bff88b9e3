package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"order-pipeline/internal/dto"
	"order-pipeline/internal/logger"
	"order-pipeline/internal/metrics"
)

const HeaderRequestID = "X-Request-ID"

func abortWithError(c *gin.Context, err error) {
	status, body := dto.ErrorFrom(err)
	c.AbortWithStatusJSON(status, body)
}

// RequestLogger tags the request context with a request id and logs one line
// per request once it completes.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		ctx := log.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if userID := c.GetString(ctxUserID); userID != "" {
			ctx = log.WithUserID(ctx, userID)
		}
		level := zerolog.InfoLevel
		if c.Writer.Status() >= 500 {
			level = zerolog.ErrorLevel
		}
		event := log.Zerolog(ctx).WithLevel(level)
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}

// Metrics records request count and latency per route template.
func Metrics(m *metrics.Collectors) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(route, c.Writer.Status(), time.Since(start))
	}
}
