package app

import (
	"strings"

	"github.com/yungbote/clinic-concierge/internal/db"
	httpH "github.com/yungbote/clinic-concierge/internal/http/handlers"
	httpMW "github.com/yungbote/clinic-concierge/internal/http/middleware"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
	"github.com/yungbote/clinic-concierge/internal/services"
)

type Handlers struct {
	Webhook *httpH.WebhookHandler
	Health  *httpH.HealthHandler
	Session *httpH.SessionHandler
	Config  *httpH.ConfigHandler
}

type Middleware struct {
	AdminAuth *httpMW.AdminAuth
}

func wireHandlers(log *logger.Logger, cfg Config, pg *db.Service, repos Repos, svcs Services, clients Clients) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Webhook: httpH.NewWebhookHandler(log, svcs.Webhook),
		Health:  httpH.NewHealthHandler(pg, ""),
		Session: httpH.NewSessionHandler(repos.Sessions),
		Config:  httpH.NewConfigHandler(credentialReport(cfg), clients.Twilio),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	mw := Middleware{AdminAuth: httpMW.NewAdminAuth(log, cfg.AdminJWTSecret)}
	if !mw.AdminAuth.Enabled() {
		log.Warn("ADMIN_JWT_SECRET not set; /api/sessions is unauthenticated")
	}
	return mw
}

func credentialReport(cfg Config) httpH.CredentialReport {
	anthropicKey := strings.TrimSpace(cfg.Anthropic.APIKey)
	sid := strings.TrimSpace(cfg.Twilio.AccountSID)
	return httpH.CredentialReport{
		Provider:           cfg.LLMProvider,
		Sender:             cfg.MessageSender,
		AnthropicKeyExists: anthropicKey != "",
		AnthropicKeyPrefix: httpH.KeyPrefix(anthropicKey),
		OpenAIKeyExists:    strings.TrimSpace(cfg.OpenAI.APIKey) != "",
		TwilioSIDExists:    sid != "",
		TwilioSIDPrefix:    httpH.KeyPrefix(sid),
		TwilioTokenExists:  strings.TrimSpace(cfg.Twilio.AuthToken) != "" || strings.TrimSpace(cfg.Twilio.APIKeySecret) != "",
		RedisConfigured:    strings.TrimSpace(cfg.Redis.Addr) != "",
	}
}

// logCredentials reports credential presence at startup.
func logCredentials(log *logger.Logger, report httpH.CredentialReport) {
	log.Info("Credential check",
		"llm_provider", report.Provider,
		"anthropic_key_exists", report.AnthropicKeyExists,
		"anthropic_key_prefix", report.AnthropicKeyPrefix,
		"openai_key_exists", report.OpenAIKeyExists,
		"twilio_sid_exists", report.TwilioSIDExists,
		"twilio_token_exists", report.TwilioTokenExists,
		"redis_configured", report.RedisConfigured,
	)
	if missing := report.Missing(); len(missing) > 0 {
		log.Warn("Missing credentials", "missing", strings.Join(missing, ","))
	}
	if report.Provider == services.ProviderMock {
		log.Warn("LLM_PROVIDER=mock; replies are canned")
	}
}
