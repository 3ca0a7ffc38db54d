package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/clinic-concierge/internal/platform/anthropic"
	"github.com/yungbote/clinic-concierge/internal/platform/openai"
)

// LLMProvider turns an assembled prompt into reply text.
type LLMProvider interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Name() string
}

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
)

type textClient interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Model() string
}

type clientProvider struct {
	name   string
	client textClient
}

func (p *clientProvider) GenerateText(ctx context.Context, system string, user string) (string, error) {
	return p.client.GenerateText(ctx, system, user)
}

func (p *clientProvider) Name() string { return p.name + ":" + p.client.Model() }

func NewAnthropicProvider(c anthropic.Client) LLMProvider {
	return &clientProvider{name: ProviderAnthropic, client: c}
}

func NewOpenAIProvider(c openai.Client) LLMProvider {
	return &clientProvider{name: ProviderOpenAI, client: c}
}

// MockProvider answers without any network call. The reply is a pure
// function of the user text.
type MockProvider struct{}

func NewMockProvider() LLMProvider { return MockProvider{} }

func (MockProvider) GenerateText(ctx context.Context, system string, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return "", fmt.Errorf("mock provider: empty user message")
	}
	return "Gracias por tu mensaje: \"" + user + "\". En breve te ayudamos.", nil
}

func (MockProvider) Name() string { return ProviderMock }

type unavailableProvider struct {
	name  string
	cause error
}

// NewUnavailableProvider stands in for a provider whose credentials are
// missing. Every call fails with cause so the webhook takes its fallback path.
func NewUnavailableProvider(name string, cause error) LLMProvider {
	return &unavailableProvider{name: name, cause: cause}
}

func (p *unavailableProvider) GenerateText(ctx context.Context, system string, user string) (string, error) {
	return "", fmt.Errorf("%s provider unavailable: %w", p.name, p.cause)
}

func (p *unavailableProvider) Name() string { return p.name + ":unavailable" }
