package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/clinic-concierge/internal/observability"
	"github.com/yungbote/clinic-concierge/internal/platform/ctxutil"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

func signed(t *testing.T, secret string, claims AdminClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "s3cret"
	valid := AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	expired := AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}}
	noExp := AdminClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}}
	wrongRole := AdminClaims{Role: "viewer", RegisteredClaims: valid.RegisteredClaims}

	cases := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusOK},
		{"missing", secret, "", http.StatusUnauthorized},
		{"valid", secret, "Bearer " + signed(t, secret, valid), http.StatusOK},
		{"wrong secret", secret, "Bearer " + signed(t, "other", valid), http.StatusUnauthorized},
		{"expired", secret, "Bearer " + signed(t, secret, expired), http.StatusUnauthorized},
		{"no exp", secret, "Bearer " + signed(t, secret, noExp), http.StatusUnauthorized},
		{"wrong role", secret, "Bearer " + signed(t, secret, wrongRole), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/api/sessions", NewAdminAuth(logger.NewNop(), tc.secret).Require(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestRecoveryReturnsJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["status"] != "error" {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestTraceContextAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.New()
	r := gin.New()
	r.Use(AttachTraceContext(), Metrics(m), RequestLogger(logger.NewNop()))
	var seen string
	r.POST("/webhook/whatsapp", func(c *gin.Context) {
		seen = ctxutil.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", nil)
	req.Header.Set(headerTwilioIdempotency, "tw-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen != "tw-123" || rec.Header().Get(headerRequestID) != "tw-123" {
		t.Fatalf("request id = %q / %q", seen, rec.Header().Get(headerRequestID))
	}
	if rec.Header().Get(headerTraceID) == "" {
		t.Fatalf("trace id header missing")
	}
}
