package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sessionrepo "github.com/yungbote/clinic-concierge/internal/data/repos/conversation"
	"github.com/yungbote/clinic-concierge/internal/domain/conversation"
	"github.com/yungbote/clinic-concierge/internal/observability"
	"github.com/yungbote/clinic-concierge/internal/platform/apierr"
	"github.com/yungbote/clinic-concierge/internal/platform/dbctx"
	"github.com/yungbote/clinic-concierge/internal/platform/httpx"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

// DefaultApology is sent when the provider cannot produce a reply.
const DefaultApology = "Lo siento, tengo problemas técnicos. Por favor intenta más tarde."

type State string

const (
	StateReceived         State = "received"
	StateSessionLoaded    State = "session_loaded"
	StateIdentityResolved State = "identity_resolved"
	StateContextBuilt     State = "context_built"
	StateLLMCalled        State = "llm_called"
	StatePersisted        State = "persisted"
	StateReplied          State = "replied"

	OutcomeOK     State = "ok"
	OutcomeFailed State = "failed"
)

// InboundMessage is one gateway delivery.
type InboundMessage struct {
	From        string
	Body        string
	MessageSID  string
	ProfileName string
}

// WebhookResult describes how far a request got. Stage is the last state
// reached before the terminal Outcome.
type WebhookResult struct {
	Outcome      State
	Stage        State
	Reply        string
	DeliveryID   string
	NameLearned  bool
	Duplicate    bool
	FallbackSent bool
	// PersistErr is set when the reply was sent but the turn was not saved.
	PersistErr error
	Err        error
}

// MessageDeduper suppresses redelivered gateway messages.
type MessageDeduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type StepTimeouts struct {
	Store time.Duration
	LLM   time.Duration
	Send  time.Duration
}

func DefaultStepTimeouts() StepTimeouts {
	return StepTimeouts{Store: 5 * time.Second, LLM: 30 * time.Second, Send: 15 * time.Second}
}

type WebhookService interface {
	// Handle runs one inbound message to completion. The returned error is
	// an *apierr.Error and equals result.Err.
	Handle(ctx context.Context, in InboundMessage) (*WebhookResult, error)
}

type WebhookDeps struct {
	Sessions sessionrepo.SessionRepo
	LLM      LLMProvider
	Sender   MessageSender
	Prompts  *PromptBuilder
	// Deduper is optional.
	Deduper  MessageDeduper
	Metrics  *observability.Metrics
	Timeouts StepTimeouts
	Apology  string
	Now      func() time.Time
}

type webhookService struct {
	log      *logger.Logger
	sessions sessionrepo.SessionRepo
	llm      LLMProvider
	sender   MessageSender
	prompts  *PromptBuilder
	dedup    MessageDeduper
	metrics  *observability.Metrics
	timeouts StepTimeouts
	apology  string
	now      func() time.Time
	tracer   trace.Tracer
}

func NewWebhookService(log *logger.Logger, deps WebhookDeps) (WebhookService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Sessions == nil || deps.LLM == nil || deps.Sender == nil {
		return nil, fmt.Errorf("webhook service: sessions, llm and sender are required")
	}
	if deps.Prompts == nil {
		deps.Prompts = NewPromptBuilder(DefaultClinicFacts(), conversation.DefaultRecentTurns)
	}
	def := DefaultStepTimeouts()
	if deps.Timeouts.Store <= 0 {
		deps.Timeouts.Store = def.Store
	}
	if deps.Timeouts.LLM <= 0 {
		deps.Timeouts.LLM = def.LLM
	}
	if deps.Timeouts.Send <= 0 {
		deps.Timeouts.Send = def.Send
	}
	if strings.TrimSpace(deps.Apology) == "" {
		deps.Apology = DefaultApology
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &webhookService{
		log:      log.With("service", "WebhookService"),
		sessions: deps.Sessions,
		llm:      deps.LLM,
		sender:   deps.Sender,
		prompts:  deps.Prompts,
		dedup:    deps.Deduper,
		metrics:  deps.Metrics,
		timeouts: deps.Timeouts,
		apology:  deps.Apology,
		now:      deps.Now,
		tracer:   observability.Tracer(),
	}, nil
}

func (s *webhookService) Handle(ctx context.Context, in InboundMessage) (*WebhookResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "webhook.handle")
	defer span.End()

	res := &WebhookResult{Stage: StateReceived}
	from := strings.TrimSpace(in.From)
	body := strings.TrimSpace(in.Body)
	sid := strings.TrimSpace(in.MessageSID)

	defer func() {
		if res.Err != nil {
			res.Outcome = OutcomeFailed
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, string(apierr.KindOf(res.Err)))
		} else {
			res.Outcome = OutcomeOK
		}
		span.SetAttributes(
			attribute.String("webhook.outcome", string(res.Outcome)),
			attribute.String("webhook.stage", string(res.Stage)),
			attribute.Bool("webhook.duplicate", res.Duplicate),
		)
		kind := ""
		if res.Err != nil {
			kind = string(apierr.KindOf(res.Err))
		}
		s.metrics.ObserveWebhook(string(res.Outcome), string(res.Stage), kind, time.Since(start))
		s.logResult(from, sid, res, time.Since(start))
	}()

	if from == "" || body == "" {
		res.Err = apierr.Validation("missing_fields", errors.New("missing Body or From"))
		return res, res.Err
	}

	// Steps run detached from the inbound request, each under its own deadline.
	base := context.WithoutCancel(ctx)

	if s.dedup != nil && sid != "" {
		claimCtx, cancel := context.WithTimeout(base, s.timeouts.Store)
		claimed, err := s.dedup.Claim(claimCtx, sid)
		cancel()
		switch {
		case err != nil:
			s.log.Warn("dedup claim failed; processing anyway", "message_sid", sid, "error", err)
		case !claimed:
			res.Duplicate = true
			s.metrics.IncWebhookDuplicate()
			return res, nil
		default:
			defer func() {
				if res.Err == nil {
					return
				}
				relCtx, cancel := context.WithTimeout(base, s.timeouts.Store)
				defer cancel()
				if err := s.dedup.Release(relCtx, sid); err != nil {
					s.log.Warn("dedup release failed", "message_sid", sid, "error", err)
				}
			}()
		}
	}

	// SESSION_LOADED
	snap, err := s.loadSession(base, from)
	if err != nil {
		res.Err = apierr.Storage("session_load_failed", err)
		return res, res.Err
	}
	res.Stage = StateSessionLoaded

	// IDENTITY_RESOLVED
	identity := snap.Identity
	if p := strings.TrimSpace(in.ProfileName); p != "" {
		identity = identity.Merge(conversation.Identity{ProfileName: p})
	}
	identity, res.NameLearned = conversation.ResolveIdentity(identity, body)
	snap.Identity = identity
	res.Stage = StateIdentityResolved

	// CONTEXT_BUILT
	prompt := s.prompts.Build(snap, from, body)
	res.Stage = StateContextBuilt

	// LLM_CALLED
	reply, err := s.generate(base, prompt)
	if err != nil {
		res.FallbackSent = s.sendFallback(base, from)
		res.Err = apierr.Provider("llm_failed", err)
		return res, res.Err
	}
	res.Reply = reply
	res.Stage = StateLLMCalled

	// PERSISTED (non-fatal)
	turn := conversation.Turn{Utterance: body, Reply: reply, Timestamp: s.now().UTC()}
	if err := s.saveTurn(base, from, identity, turn); err != nil {
		res.PersistErr = apierr.Storage("session_save_failed", err)
		s.metrics.IncPersistFailure()
		s.log.Warn("turn not persisted; replying anyway", "sender", from, "message_sid", sid, "error", err)
	} else {
		res.Stage = StatePersisted
	}

	// REPLIED
	deliveryID, err := s.send(base, "reply", from, reply)
	if err != nil {
		res.Err = apierr.Delivery("reply_send_failed", err)
		return res, res.Err
	}
	res.DeliveryID = deliveryID
	res.Stage = StateReplied
	return res, nil
}

func (s *webhookService) loadSession(base context.Context, from string) (conversation.Snapshot, error) {
	ctx, span := s.tracer.Start(base, "session.load")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	row, err := s.sessions.GetOrCreate(dbctx.Context{Ctx: ctx}, from)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get_or_create")
		return conversation.Snapshot{}, err
	}
	snap, err := row.Snapshot()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode")
		return conversation.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int("session.history_len", len(snap.History)))
	return snap, nil
}

func (s *webhookService) generate(base context.Context, prompt Prompt) (string, error) {
	ctx, span := s.tracer.Start(base, "llm.generate", trace.WithAttributes(attribute.String("llm.provider", s.llm.Name())))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.LLM)
	defer cancel()

	reply, err := s.llm.GenerateText(ctx, prompt.System, prompt.User)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("provider returned an empty reply")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, httpx.FailureReason(err))
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (s *webhookService) saveTurn(base context.Context, from string, identity conversation.Identity, turn conversation.Turn) error {
	ctx, span := s.tracer.Start(base, "session.save")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	if err := s.sessions.Save(dbctx.Context{Ctx: ctx}, from, identity, &turn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save")
		return err
	}
	return nil
}

// send delivers body to the sender; kind is "reply" or "fallback".
func (s *webhookService) send(base context.Context, kind, to, body string) (string, error) {
	ctx, span := s.tracer.Start(base, "message."+kind)
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeouts.Send)
	defer cancel()

	start := time.Now()
	id, err := s.sender.Send(ctx, to, body)
	s.metrics.ObserveDelivery(kind, httpx.FailureReason(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, httpx.FailureReason(err))
		return "", err
	}
	return id, nil
}

// sendFallback attempts the apology reply. Failures are logged only.
func (s *webhookService) sendFallback(base context.Context, to string) bool {
	_, err := s.send(base, "fallback", to, s.apology)
	if err != nil {
		s.log.Warn("fallback reply failed", "sender", to, "error", err)
		return false
	}
	return true
}

func (s *webhookService) logResult(from, sid string, res *WebhookResult, dur time.Duration) {
	kv := []interface{}{
		"sender", from,
		"message_sid", sid,
		"outcome", string(res.Outcome),
		"stage", string(res.Stage),
		"duration_ms", dur.Milliseconds(),
	}
	if res.Duplicate {
		s.log.Info("duplicate webhook skipped", kv...)
		return
	}
	if res.Err != nil {
		kv = append(kv, "kind", string(apierr.KindOf(res.Err)), "error", res.Err.Error(), "fallback_sent", res.FallbackSent)
		s.log.Warn("webhook failed", kv...)
		return
	}
	kv = append(kv, "name_learned", res.NameLearned, "persisted", res.PersistErr == nil)
	s.log.Info("webhook handled", kv...)
}
