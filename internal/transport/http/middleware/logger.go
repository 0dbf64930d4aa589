package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var sensitiveHeaders = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
	"X-Llm-Api-Key": {},
}

// RequestLogger logs one line per request. Header values that carry
// credentials are replaced before they reach the log.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if owner, ok := OwnerID(c); ok {
			fields = append(fields, zap.String("owner", owner))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("http_request", fields...)
		default:
			if ce := logger.Check(zap.DebugLevel, "http_request"); ce != nil {
				ce.Write(append(fields, zap.Any("headers", RedactHeaders(c.Request.Header)))...)
				return
			}
			logger.Info("http_request", fields...)
		}
	}
}

// RedactHeaders returns a copy of h with credential values masked.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		canonical := http.CanonicalHeaderKey(name)
		if _, ok := sensitiveHeaders[canonical]; ok {
			out[canonical] = "[REDACTED]"
			continue
		}
		if len(values) > 0 {
			out[canonical] = values[0]
		}
	}
	return out
}
