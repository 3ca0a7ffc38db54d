package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinic-concierge/internal/http"
	"github.com/yungbote/clinic-concierge/internal/observability"
	"github.com/yungbote/clinic-concierge/internal/platform/envutil"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		Tracing:        envutil.Bool("OTEL_ENABLED", false),
		WebhookHandler: handlers.Webhook,
		HealthHandler:  handlers.Health,
		SessionHandler: handlers.Session,
		ConfigHandler:  handlers.Config,
		AdminAuth:      middleware.AdminAuth,
	})
}
