package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/clinic-concierge/internal/clients/redis"
	"github.com/yungbote/clinic-concierge/internal/clients/twilio"
	"github.com/yungbote/clinic-concierge/internal/platform/anthropic"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
	"github.com/yungbote/clinic-concierge/internal/platform/openai"
	"github.com/yungbote/clinic-concierge/internal/services"
)

// Clients holds the outbound integrations. A nil field means the backend is
// not selected or its credentials are missing; the matching *Err explains why.
type Clients struct {
	Anthropic anthropic.Client
	OpenAI    openai.Client
	Twilio    twilio.Client
	Deduper   redis.Deduper

	LLMErr    error
	TwilioErr error
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	switch cfg.LLMProvider {
	case services.ProviderAnthropic:
		out.Anthropic, out.LLMErr = anthropic.NewClient(log, cfg.Anthropic)
	case services.ProviderOpenAI:
		out.OpenAI, out.LLMErr = openai.NewClient(log, cfg.OpenAI)
	case services.ProviderMock:
	default:
		return Clients{}, fmt.Errorf("unknown LLM_PROVIDER %q (want anthropic, openai or mock)", cfg.LLMProvider)
	}
	if out.LLMErr != nil {
		log.Warn("LLM client not configured; replies will fall back to the apology", "provider", cfg.LLMProvider, "error", out.LLMErr)
	}

	// Twilio is built whenever credentials exist so /check-twilio works even
	// with the log sender.
	switch cfg.MessageSender {
	case SenderTwilio, SenderLog:
	default:
		return Clients{}, fmt.Errorf("unknown MESSAGE_SENDER %q (want twilio or log)", cfg.MessageSender)
	}
	if tw, err := twilio.New(log, cfg.Twilio); err != nil {
		out.TwilioErr = err
		if cfg.MessageSender == SenderTwilio {
			log.Warn("Twilio client not configured; replies cannot be delivered", "error", err)
		}
	} else {
		out.Twilio = tw
	}

	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		d, err := redis.NewDeduper(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis deduper: %w", err)
		}
		out.Deduper = d
	} else {
		log.Info("REDIS_ADDR not set; inbound deduplication disabled")
	}

	return out, nil
}

func (c Clients) Close() {
	if c.Deduper != nil {
		_ = c.Deduper.Close()
	}
}
