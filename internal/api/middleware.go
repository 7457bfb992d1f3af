package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recipebox/internal/platform/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an ID, stores a logger carrying it in
// the request context and logs the request once it has been served.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logger := logging.FromContext(ctx)
		event := logger.Info()
		if c.Writer.Status() >= 500 {
			event = logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request served")
	}
}
