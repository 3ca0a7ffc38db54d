package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/clinic-concierge/internal/http/handlers"
	httpMW "github.com/yungbote/clinic-concierge/internal/http/middleware"
	"github.com/yungbote/clinic-concierge/internal/observability"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

const serviceName = "clinic-concierge"

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	Tracing     bool

	WebhookHandler *httpH.WebhookHandler
	HealthHandler  *httpH.HealthHandler
	SessionHandler *httpH.SessionHandler
	ConfigHandler  *httpH.ConfigHandler

	AdminAuth *httpMW.AdminAuth
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}

	r := gin.New()
	r.Use(httpMW.Recovery(log))
	if cfg.Tracing {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(log))
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Root)
		r.GET("/health", cfg.HealthHandler.Health)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Messaging gateway
	if cfg.WebhookHandler != nil {
		r.POST("/webhook/whatsapp", cfg.WebhookHandler.Receive)
		// legacy path still configured on existing Twilio sandboxes
		r.POST("/whatsapp-webhook", cfg.WebhookHandler.Receive)
	}

	// Diagnostics
	if cfg.ConfigHandler != nil {
		r.GET("/check-config", cfg.ConfigHandler.CheckConfig)
		r.GET("/check-twilio", cfg.ConfigHandler.CheckTwilio)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	// Admin (read-only session inspection); open when no secret is set
	if cfg.SessionHandler != nil {
		admin := r.Group("/api")
		if cfg.AdminAuth != nil {
			admin.Use(cfg.AdminAuth.Require())
		}
		admin.GET("/sessions", cfg.SessionHandler.List)
		admin.GET("/sessions/:key", cfg.SessionHandler.Get)
	}

	return r
}
