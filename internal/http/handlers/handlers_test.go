package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clinic-concierge/internal/data/repos/conversation"
	"github.com/yungbote/clinic-concierge/internal/data/repos/testutil"
	"github.com/yungbote/clinic-concierge/internal/platform/apierr"
	"github.com/yungbote/clinic-concierge/internal/platform/dbctx"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
	"github.com/yungbote/clinic-concierge/internal/services"
)

type stubWebhook struct {
	got   services.InboundMessage
	err   error
	panic bool
}

func (s *stubWebhook) Handle(ctx context.Context, in services.InboundMessage) (*services.WebhookResult, error) {
	s.got = in
	if s.panic {
		panic("unexpected")
	}
	return &services.WebhookResult{}, s.err
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestWebhookHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		stub    *stubWebhook
		status  int
		outcome string
	}{
		{"ok", &stubWebhook{}, http.StatusOK, "ok"},
		{"validation", &stubWebhook{err: apierr.Validation("missing_fields", errors.New("missing Body or From"))}, http.StatusBadRequest, "error"},
		{"provider", &stubWebhook{err: apierr.Provider("llm_failed", errors.New("timeout"))}, http.StatusInternalServerError, "error"},
		{"delivery", &stubWebhook{err: apierr.Delivery("reply_send_failed", errors.New("twilio 500"))}, http.StatusBadGateway, "error"},
		{"panic", &stubWebhook{panic: true}, http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/webhook/whatsapp", NewWebhookHandler(logger.NewNop(), tc.stub).Receive)

			rec := postForm(r, "/webhook/whatsapp", url.Values{
				"From":        {"whatsapp:+521000"},
				"Body":        {"Hola, me llamo Ana"},
				"MessageSid":  {"SM1"},
				"ProfileName": {"Ana"},
			})
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			body := decode(t, rec)
			if body["status"] != tc.outcome {
				t.Fatalf("body = %v", body)
			}
			if msg, _ := body["message"].(string); tc.outcome == "error" && msg == "" {
				t.Fatalf("error body without message")
			}
			if tc.stub.got.From != "whatsapp:+521000" || tc.stub.got.MessageSID != "SM1" || tc.stub.got.ProfileName != "Ana" {
				t.Fatalf("inbound = %+v", tc.stub.got)
			}
		})
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		pinger Pinger
		want   int
	}{
		{stubPinger{}, http.StatusOK},
		{stubPinger{err: errors.New("db down")}, http.StatusServiceUnavailable},
	} {
		h := NewHealthHandler(tc.pinger, "")
		r := gin.New()
		r.GET("/", h.Root)
		r.GET("/health", h.Health)
		r.GET("/healthcheck", h.HealthCheck)

		for path, want := range map[string]int{"/": 200, "/health": 200, "/healthcheck": tc.want} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != want {
				t.Fatalf("%s status = %d, want %d", path, rec.Code, want)
			}
		}
	}
}

func TestSessionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := conversation.NewSessionRepo(testutil.DB(t), testutil.Logger(t), 20)
	key := "whatsapp:+521777"
	if _, err := repo.GetOrCreate(dbctx.Context{Ctx: context.Background()}, key); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	h := NewSessionHandler(repo)
	r := gin.New()
	r.GET("/api/sessions", h.List)
	r.GET("/api/sessions/:key", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions?limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if body := decode(t, rec); body["total"].(float64) != 1 {
		t.Fatalf("list body = %v", body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions?limit=500&offset=-5", nil))
	if body := decode(t, rec); body["limit"].(float64) != conversation.MaxListLimit || body["offset"].(float64) != 0 {
		t.Fatalf("clamped page = limit %v offset %v", body["limit"], body["offset"])
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+url.PathEscape(key), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d: %s", rec.Code, rec.Body.String())
	}
	session := decode(t, rec)["session"].(map[string]any)
	if session["sender_key"] != key {
		t.Fatalf("session = %v", session)
	}
	if _, ok := session["identity"].(map[string]any)["first_seen"]; !ok {
		t.Fatalf("identity not returned verbatim: %v", session["identity"])
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
}

func TestConfigHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	report := CredentialReport{
		Provider:           "anthropic",
		Sender:             "twilio",
		AnthropicKeyExists: true,
		AnthropicKeyPrefix: KeyPrefix("sk-ant-api03-abcdef"),
		TwilioSIDExists:    true,
	}
	if report.AnthropicKeyPrefix != "sk-ant-api..." {
		t.Fatalf("prefix = %q", report.AnthropicKeyPrefix)
	}
	h := NewConfigHandler(report, nil)
	r := gin.New()
	r.GET("/check-config", h.CheckConfig)
	r.GET("/check-twilio", h.CheckTwilio)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check-config", nil))
	body := decode(t, rec)
	missing, _ := body["missing"].([]any)
	if len(missing) != 1 || missing[0] != "TWILIO_AUTH_TOKEN" {
		t.Fatalf("missing = %v", body["missing"])
	}
	if strings.Contains(rec.Body.String(), "abcdef") {
		t.Fatalf("secret leaked: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check-twilio", nil))
	if decode(t, rec)["status"] != "not configured" {
		t.Fatalf("check-twilio = %s", rec.Body.String())
	}
}

func TestKeyPrefix(t *testing.T) {
	for in, want := range map[string]string{"": "", "abcd": "ab...", "0123456789abc": "0123456789..."} {
		if got := KeyPrefix(in); got != want {
			t.Fatalf("KeyPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}
