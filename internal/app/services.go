package app

import (
	"fmt"

	"github.com/yungbote/clinic-concierge/internal/observability"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
	"github.com/yungbote/clinic-concierge/internal/services"
)

type Services struct {
	LLM     services.LLMProvider
	Sender  services.MessageSender
	Webhook services.WebhookService
}

func wireServices(log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	facts := services.DefaultClinicFacts()
	if cfg.ClinicFactsPath != "" {
		loaded, err := services.LoadClinicFacts(cfg.ClinicFactsPath)
		if err != nil {
			return Services{}, fmt.Errorf("load clinic facts: %w", err)
		}
		facts = loaded
		log.Info("Clinic facts loaded", "path", cfg.ClinicFactsPath, "clinic", facts.Name, "services", len(facts.Services))
	}

	llm := selectLLM(cfg, clients)
	sender := selectSender(log, cfg, clients)

	deps := services.WebhookDeps{
		Sessions: repos.Sessions,
		LLM:      llm,
		Sender:   sender,
		Prompts:  services.NewPromptBuilder(facts, cfg.PromptHistoryTurns),
		Metrics:  metrics,
		Timeouts: cfg.Timeouts,
		Apology:  cfg.Apology,
	}
	if clients.Deduper != nil {
		deps.Deduper = clients.Deduper
	}
	webhook, err := services.NewWebhookService(log, deps)
	if err != nil {
		return Services{}, err
	}

	log.Info("Webhook pipeline ready", "llm_provider", llm.Name(), "message_sender", cfg.MessageSender, "dedup", deps.Deduper != nil)
	return Services{LLM: llm, Sender: sender, Webhook: webhook}, nil
}

func selectLLM(cfg Config, clients Clients) services.LLMProvider {
	switch {
	case cfg.LLMProvider == services.ProviderMock:
		return services.NewMockProvider()
	case clients.Anthropic != nil:
		return services.NewAnthropicProvider(clients.Anthropic)
	case clients.OpenAI != nil:
		return services.NewOpenAIProvider(clients.OpenAI)
	default:
		return services.NewUnavailableProvider(cfg.LLMProvider, clients.LLMErr)
	}
}

func selectSender(log *logger.Logger, cfg Config, clients Clients) services.MessageSender {
	switch {
	case cfg.MessageSender == SenderLog:
		return services.NewLogSender(log)
	case clients.Twilio != nil:
		return services.NewTwilioSender(clients.Twilio, cfg.Twilio.DefaultFrom)
	default:
		return services.NewUnavailableSender(clients.TwilioErr)
	}
}
