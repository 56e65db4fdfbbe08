package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"kolamart/pos/internal/logger"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func accessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"request_id":  c.GetString(ctxRequestID),
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if c.FullPath() == "" {
			fields["path"] = c.Request.URL.Path
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("http_request", fields)
			return
		}
		log.Debug("http_request", fields)
	}
}

// recovery turns handler panics into the usual JSON failure.
func recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		log.Error("http_panic", fmt.Errorf("%v", rec), map[string]any{
			"request_id": c.GetString(ctxRequestID),
			"path":       c.Request.URL.Path,
		})
		fail(c, http.StatusInternalServerError, "internal error")
	})
}
