package observability

import (
	"time"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Fallback stages reported by the chat pipeline.
const (
	StageClassifyIntent = "classify_intent"
	StageComposeFaq     = "compose_faq"
	StageComposeProduct = "compose_product"
)

// Metrics holds all Prometheus metrics for the shop API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	chatReplies     *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	pipelineRetries prometheus.Counter
	rateLimited     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shop_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		chatReplies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_chat_replies_total",
				Help: "Total chat replies by reply type.",
			},
			[]string{"type"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_chat_fallbacks_total",
				Help: "Total deterministic fallbacks taken by pipeline stage.",
			},
			[]string{"stage"},
		),
		pipelineRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "shop_chat_pipeline_retries_total",
				Help: "Total forced product-search retries after a pipeline failure.",
			},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shop_rate_limited_total",
				Help: "Total requests rejected by the rate limiter.",
			},
			[]string{"route"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrChatReply counts a chat reply by its type (faq, product_search, error).
func (m *Metrics) IncrChatReply(kind string) {
	m.chatReplies.WithLabelValues(kind).Inc()
}

// IncrFallback counts a deterministic fallback taken at the given stage.
func (m *Metrics) IncrFallback(stage string) {
	m.fallbacks.WithLabelValues(stage).Inc()
}

// IncrPipelineRetry counts a forced product-search retry.
func (m *Metrics) IncrPipelineRetry() {
	m.pipelineRetries.Inc()
}

// IncrRateLimited counts a request rejected by the rate limiter.
func (m *Metrics) IncrRateLimited(route string) {
	m.rateLimited.WithLabelValues(route).Inc()
}

// GetChatSnapshot returns a snapshot of chat-related metrics suitable for the
// GET /v1/metrics/chat endpoint.
func (m *Metrics) GetChatSnapshot() *domain.ChatMetrics {
	// Prometheus counters expose cumulative values.
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")

	faqReplies := getCounterValue(m.chatReplies, "faq")
	productReplies := getCounterValue(m.chatReplies, "product_search")
	errorReplies := getCounterValue(m.chatReplies, "error")
	totalReplies := faqReplies + productReplies + errorReplies

	classifyFallbacks := getCounterValue(m.fallbacks, StageClassifyIntent)
	composeFallbacks := getCounterValue(m.fallbacks, StageComposeFaq) +
		getCounterValue(m.fallbacks, StageComposeProduct)

	cacheHits := getCounterValue(m.cacheHits, "faq")
	cacheMisses := getCounterValue(m.cacheMisses, "faq")

	avgTokens := float64(0)
	fallbackRate := float64(0)
	cacheHitRate := float64(0)

	if totalReplies > 0 {
		avgTokens = (promptTokens + completionTokens) / totalReplies
		fallbackRate = classifyFallbacks / totalReplies
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	// gpt-3.5-turbo: ~$0.0005/1k prompt tokens, ~$0.0015/1k completion tokens
	estimatedCost := (promptTokens/1000)*0.0005 + (completionTokens/1000)*0.0015

	return &domain.ChatMetrics{
		TotalReplies:        int64(totalReplies),
		FaqReplies:          int64(faqReplies),
		ProductReplies:      int64(productReplies),
		ErrorReplies:        int64(errorReplies),
		ClassifyFallbacks:   int64(classifyFallbacks),
		ComposeFallbacks:    int64(composeFallbacks),
		PipelineRetries:     int64(counterValue(m.pipelineRetries)),
		FallbackRate:        fallbackRate,
		AvgTokensPerRequest: avgTokens,
		EstimatedCostUsd:    estimatedCost,
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
