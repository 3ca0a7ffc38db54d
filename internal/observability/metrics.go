package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/clinic-concierge/internal/platform/envutil"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	webhookOutcomes *CounterVec
	webhookLatency  *HistogramVec
	webhookDupes    *Counter

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	deliveries      *CounterVec
	deliveryLatency *HistogramVec
	fallbacks       *CounterVec
	persistFailures *Counter

	dbStats *GaugeVec
	redisUp *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

// Init builds the process-wide registry when METRICS_ENABLED is set and
// returns nil otherwise. All Metrics methods are nil-safe.
func Init() *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
	})
	return instance
}

// New returns a standalone registry.
func New() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	return &Metrics{
		apiRequests: NewCounterVec("cc_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("cc_api_request_duration_seconds", "API request latency in seconds by method/route/status.", []string{"method", "route", "status"}, latency),
		apiInflight: NewGauge("cc_api_inflight_requests", "In-flight API requests."),

		webhookOutcomes: NewCounterVec("cc_webhook_requests_total", "Inbound webhook requests by outcome, last reached state and error kind.", []string{"outcome", "stage", "kind"}),
		webhookLatency:  NewHistogramVec("cc_webhook_duration_seconds", "End-to-end webhook handling latency by outcome.", []string{"outcome"}, latency),
		webhookDupes:    NewCounter("cc_webhook_duplicates_total", "Redelivered webhooks skipped by message id."),

		llmRequests: NewCounterVec("cc_llm_requests_total", "LLM requests by provider/model/status.", []string{"provider", "model", "status"}),
		llmLatency:  NewHistogramVec("cc_llm_request_duration_seconds", "LLM request latency in seconds.", []string{"provider", "model", "status"}, latency),
		llmTokens:   NewCounterVec("cc_llm_tokens_total", "LLM tokens by provider/model/type.", []string{"provider", "model", "type"}),

		deliveries:      NewCounterVec("cc_message_deliveries_total", "Outbound message sends by kind/status.", []string{"kind", "status"}),
		deliveryLatency: NewHistogramVec("cc_message_delivery_duration_seconds", "Outbound message send latency.", []string{"kind", "status"}, latency),
		fallbacks:       NewCounterVec("cc_fallback_replies_total", "Apology replies attempted after a provider failure, by send result.", []string{"status"}),
		persistFailures: NewCounter("cc_session_persist_failures_total", "Turns that could not be saved but were still replied to."),

		dbStats: NewGaugeVec("cc_db_pool", "database/sql pool statistics.", []string{"stat"}),
		redisUp: NewGauge("cc_redis_up", "Redis reachability (1 up, 0 down)."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, p := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.webhookOutcomes, m.webhookLatency, m.webhookDupes,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.deliveries, m.deliveryLatency, m.fallbacks, m.persistFailures,
		m.dbStats, m.redisUp,
	} {
		if err := p.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	m.apiRequests.Inc(method, route, code)
	m.apiLatency.Observe(dur.Seconds(), method, route, code)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveWebhook records one finished webhook. kind is empty on success.
func (m *Metrics) ObserveWebhook(outcome, stage, kind string, dur time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.webhookOutcomes.Inc(outcome, stage, kind)
	m.webhookLatency.Observe(dur.Seconds(), outcome)
}

func (m *Metrics) WebhookOutcomes(outcome, stage, kind string) float64 {
	if m == nil {
		return 0
	}
	return m.webhookOutcomes.Value(outcome, stage, kind)
}

func (m *Metrics) IncWebhookDuplicate() {
	if m == nil {
		return
	}
	m.webhookDupes.Inc()
}

func (m *Metrics) ObserveLLMRequest(provider, model, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(provider, model, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), provider, model, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), provider, model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), provider, model, "output")
	}
}

// ObserveDelivery records an outbound send. kind is "reply" or "fallback".
func (m *Metrics) ObserveDelivery(kind, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.Inc(kind, status)
	m.deliveryLatency.Observe(dur.Seconds(), kind, status)
	if kind == "fallback" {
		m.fallbacks.Inc(status)
	}
}

func (m *Metrics) IncPersistFailure() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) PersistFailures() float64 {
	if m == nil {
		return 0
	}
	return m.persistFailures.Value()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval. The caller owns rdb.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				err := rdb.Ping(pingCtx).Err()
				cancel()
				if err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}
