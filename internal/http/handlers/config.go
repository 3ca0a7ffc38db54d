package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinic-concierge/internal/clients/twilio"
)

// CredentialReport says which credentials are configured without exposing
// them. Prefixes are truncated to keyPrefixLen characters.
type CredentialReport struct {
	Provider           string `json:"llm_provider"`
	Sender             string `json:"message_sender"`
	AnthropicKeyExists bool   `json:"anthropic_key_exists"`
	AnthropicKeyPrefix string `json:"anthropic_key_prefix,omitempty"`
	OpenAIKeyExists    bool   `json:"openai_key_exists"`
	TwilioSIDExists    bool   `json:"twilio_sid_exists"`
	TwilioSIDPrefix    string `json:"twilio_sid_prefix,omitempty"`
	TwilioTokenExists  bool   `json:"twilio_token_exists"`
	RedisConfigured    bool   `json:"redis_configured"`
	Message            string `json:"message,omitempty"`
}

const keyPrefixLen = 10

// KeyPrefix returns the first keyPrefixLen characters of a secret followed
// by "...". Short secrets are cut in half.
func KeyPrefix(secret string) string {
	if secret == "" {
		return ""
	}
	n := keyPrefixLen
	if len(secret) <= n {
		n = len(secret) / 2
	}
	return secret[:n] + "..."
}

// Missing lists the credentials the selected backends need but lack.
func (r CredentialReport) Missing() []string {
	var out []string
	switch r.Provider {
	case "anthropic":
		if !r.AnthropicKeyExists {
			out = append(out, "ANTHROPIC_API_KEY")
		}
	case "openai":
		if !r.OpenAIKeyExists {
			out = append(out, "OPENAI_API_KEY")
		}
	}
	if r.Sender == "twilio" {
		if !r.TwilioSIDExists {
			out = append(out, "TWILIO_ACCOUNT_SID")
		}
		if !r.TwilioTokenExists {
			out = append(out, "TWILIO_AUTH_TOKEN")
		}
	}
	return out
}

type ConfigHandler struct {
	report CredentialReport
	twilio twilio.Client
}

// NewConfigHandler serves report. tw may be nil when Twilio is not set up.
func NewConfigHandler(report CredentialReport, tw twilio.Client) *ConfigHandler {
	if missing := report.Missing(); len(missing) > 0 && report.Message == "" {
		report.Message = "missing credentials; set them in the environment"
	}
	return &ConfigHandler{report: report, twilio: tw}
}

// GET /check-config
func (h *ConfigHandler) CheckConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"config":  h.report,
		"missing": h.report.Missing(),
	})
}

// GET /check-twilio
func (h *ConfigHandler) CheckTwilio(c *gin.Context) {
	if h.twilio == nil {
		c.JSON(http.StatusOK, gin.H{"status": "not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	acct, err := h.twilio.FetchAccount(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error with credentials", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "valid credentials",
		"account_name": acct.FriendlyName,
		"account_type": acct.Type,
	})
}
