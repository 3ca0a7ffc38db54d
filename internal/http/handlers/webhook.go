package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinic-concierge/internal/http/response"
	"github.com/yungbote/clinic-concierge/internal/platform/apierr"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
	"github.com/yungbote/clinic-concierge/internal/services"
)

type WebhookHandler struct {
	log *logger.Logger
	svc services.WebhookService
}

func NewWebhookHandler(log *logger.Logger, svc services.WebhookService) *WebhookHandler {
	return &WebhookHandler{log: log.With("handler", "WebhookHandler"), svc: svc}
}

// POST /webhook/whatsapp
//
// Twilio posts form-encoded fields; Body and From are required.
func (h *WebhookHandler) Receive(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("webhook panic", "panic", fmt.Sprint(r))
			response.RespondStatusError(c, http.StatusInternalServerError, "internal error")
		}
	}()

	if err := c.Request.ParseForm(); err != nil {
		response.RespondStatusError(c, http.StatusBadRequest, "invalid form body")
		return
	}
	in := services.InboundMessage{
		From:        c.PostForm("From"),
		Body:        c.PostForm("Body"),
		MessageSID:  c.PostForm("MessageSid"),
		ProfileName: c.PostForm("ProfileName"),
	}

	if _, err := h.svc.Handle(c.Request.Context(), in); err != nil {
		_ = c.Error(err)
		response.RespondStatusError(c, apierr.StatusOf(err), err.Error())
		return
	}
	response.RespondStatusOK(c)
}
