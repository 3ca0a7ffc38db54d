package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/clinic-concierge/internal/clients/twilio"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

// MessageSender delivers a reply to a sender address and returns the
// gateway's delivery id.
type MessageSender interface {
	Send(ctx context.Context, to string, body string) (string, error)
}

type twilioSender struct {
	client twilio.Client
	from   string
}

// NewTwilioSender sends through the Twilio Messages API. An empty from uses
// the client's default sender.
func NewTwilioSender(c twilio.Client, from string) MessageSender {
	return &twilioSender{client: c, from: from}
}

func (s *twilioSender) Send(ctx context.Context, to string, body string) (string, error) {
	msg, err := s.client.SendMessage(ctx, twilio.SendMessageRequest{To: to, From: s.from, Body: body})
	if err != nil {
		return "", err
	}
	if msg == nil || msg.SID == "" {
		return "", fmt.Errorf("twilio: empty message sid")
	}
	return msg.SID, nil
}

type logSender struct {
	log *logger.Logger
}

// NewLogSender logs outbound messages instead of delivering them; for local
// development without gateway credentials.
func NewLogSender(log *logger.Logger) MessageSender {
	return &logSender{log: log.With("service", "LogSender")}
}

func (s *logSender) Send(ctx context.Context, to string, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "log-" + uuid.NewString()
	s.log.Info("outbound message (not delivered)", "to", to, "delivery_id", id, "reply_body", body)
	return id, nil
}

type unavailableSender struct {
	cause error
}

// NewUnavailableSender fails every delivery with cause.
func NewUnavailableSender(cause error) MessageSender {
	return &unavailableSender{cause: cause}
}

func (s *unavailableSender) Send(ctx context.Context, to string, body string) (string, error) {
	return "", fmt.Errorf("message sender unavailable: %w", s.cause)
}
