package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

func TestGenerateText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Input) != 2 || req.Input[0].Role != "system" || req.Input[1].Content != "hola" {
			t.Errorf("unexpected input: %+v", req.Input)
		}
		if req.Temperature != nil {
			t.Errorf("temperature should be omitted")
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"reasoning"},{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Buenas tardes"}]}],"usage":{"input_tokens":5,"output_tokens":2}}`))
	}))
	defer srv.Close()

	c, err := NewClient(logger.NewNop(), Config{APIKey: "sk-test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := c.GenerateText(context.Background(), "sys", "hola")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != "Buenas tardes" {
		t.Fatalf("text = %q", got)
	}
}

func TestGenerateTextRetriesOnlyWhenConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"ok"}]}]}`))
	}))
	defer srv.Close()

	noRetry, _ := NewClient(logger.NewNop(), Config{APIKey: "k", BaseURL: srv.URL})
	_, err := noRetry.GenerateText(context.Background(), "s", "u")
	var herr *HTTPError
	if !errors.As(err, &herr) || herr.StatusCode != http.StatusBadGateway {
		t.Fatalf("err = %v, want 502 HTTPError", err)
	}

	atomic.StoreInt32(&calls, 0)
	withRetry, _ := NewClient(logger.NewNop(), Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 1})
	got, err := withRetry.GenerateText(context.Background(), "s", "u")
	if err != nil || got != "ok" {
		t.Fatalf("GenerateText = %q, %v", got, err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}
}
