package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinic-concierge/internal/platform/ctxutil"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

// quietRoutes are polled by load balancers and logged at debug.
var quietRoutes = map[string]bool{
	"/health":      true,
	"/healthcheck": true,
	"/metrics":     true,
}

// RequestLogger writes one line per request once the handler chain is done.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("middleware", "RequestLogger")
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(began).Milliseconds(),
			"request_id", ctxutil.RequestID(c.Request.Context()),
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil && td.TraceID != "" {
			kv = append(kv, "trace_id", td.TraceID)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "error", errs.Last().Error())
		}

		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		case quietRoutes[route]:
			log.Debug("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
