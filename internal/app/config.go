package app

import (
	"strings"
	"time"

	"github.com/yungbote/clinic-concierge/internal/clients/redis"
	"github.com/yungbote/clinic-concierge/internal/clients/twilio"
	"github.com/yungbote/clinic-concierge/internal/db"
	"github.com/yungbote/clinic-concierge/internal/domain/conversation"
	httpMW "github.com/yungbote/clinic-concierge/internal/http/middleware"
	"github.com/yungbote/clinic-concierge/internal/platform/anthropic"
	"github.com/yungbote/clinic-concierge/internal/platform/envutil"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
	"github.com/yungbote/clinic-concierge/internal/platform/openai"
	"github.com/yungbote/clinic-concierge/internal/services"
)

const (
	SenderTwilio = "twilio"
	SenderLog    = "log"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	LLMProvider   string
	MessageSender string

	ClinicFactsPath    string
	HistoryCap         int
	PromptHistoryTurns int
	Timeouts           services.StepTimeouts
	Apology            string

	AdminJWTSecret string
	CORSOrigins    []string

	DB        db.Config
	Anthropic anthropic.Config
	OpenAI    openai.Config
	Twilio    twilio.Config
	Redis     redis.Config
}

func LoadConfig(log *logger.Logger) Config {
	def := services.DefaultStepTimeouts()
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", ""),

		LLMProvider:   strings.ToLower(envutil.String("LLM_PROVIDER", services.ProviderAnthropic)),
		MessageSender: strings.ToLower(envutil.String("MESSAGE_SENDER", SenderTwilio)),

		ClinicFactsPath:    envutil.String("CLINIC_FACTS_PATH", ""),
		HistoryCap:         envutil.Int("HISTORY_CAP", conversation.DefaultHistoryCap),
		PromptHistoryTurns: envutil.Int("PROMPT_HISTORY_TURNS", conversation.DefaultRecentTurns),
		Timeouts: services.StepTimeouts{
			Store: envutil.Seconds("STORE_TIMEOUT_SECONDS", def.Store),
			LLM:   envutil.Seconds("LLM_TIMEOUT_SECONDS", def.LLM),
			Send:  envutil.Seconds("SEND_TIMEOUT_SECONDS", def.Send),
		},
		Apology: envutil.String("APOLOGY_MESSAGE", services.DefaultApology),

		AdminJWTSecret: envutil.String("ADMIN_JWT_SECRET", ""),
		CORSOrigins:    httpMW.ParseOrigins(envutil.String("CORS_ALLOWED_ORIGINS", "")),

		DB:        db.ConfigFromEnv(),
		Anthropic: anthropic.ConfigFromEnv(),
		OpenAI:    openai.ConfigFromEnv(),
		Twilio:    twilio.ConfigFromEnv(),
		Redis:     redis.ConfigFromEnv(),
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = conversation.DefaultHistoryCap
	}
	if cfg.PromptHistoryTurns <= 0 {
		cfg.PromptHistoryTurns = conversation.DefaultRecentTurns
	}
	// A provider timeout shorter than the step timeout would pre-empt it.
	if cfg.Anthropic.Timeout < cfg.Timeouts.LLM {
		cfg.Anthropic.Timeout = cfg.Timeouts.LLM
	}
	if cfg.OpenAI.Timeout < cfg.Timeouts.LLM {
		cfg.OpenAI.Timeout = cfg.Timeouts.LLM
	}
	if log != nil {
		log.Info("Configuration loaded",
			"port", cfg.Port,
			"llm_provider", cfg.LLMProvider,
			"message_sender", cfg.MessageSender,
			"db_driver", cfg.DB.Driver,
			"history_cap", cfg.HistoryCap,
			"prompt_history_turns", cfg.PromptHistoryTurns,
			"store_timeout", cfg.Timeouts.Store.String(),
			"llm_timeout", cfg.Timeouts.LLM.String(),
			"send_timeout", cfg.Timeouts.Send.String(),
		)
	}
	return cfg
}

// ShutdownTimeout bounds graceful drain of in-flight webhooks.
func (c Config) ShutdownTimeout() time.Duration {
	return c.Timeouts.Store*2 + c.Timeouts.LLM + c.Timeouts.Send*2
}
