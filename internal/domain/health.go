package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// ChatMetrics is returned by GET /v1/metrics/chat.
type ChatMetrics struct {
	TotalReplies        int64   `json:"totalReplies"`
	FaqReplies          int64   `json:"faqReplies"`
	ProductReplies      int64   `json:"productReplies"`
	ErrorReplies        int64   `json:"errorReplies"`
	ClassifyFallbacks   int64   `json:"classifyFallbacks"`
	ComposeFallbacks    int64   `json:"composeFallbacks"`
	PipelineRetries     int64   `json:"pipelineRetries"`
	FallbackRate        float64 `json:"fallbackRate"`
	AvgTokensPerRequest float64 `json:"avgTokensPerRequest"`
	EstimatedCostUsd    float64 `json:"estimatedCostUsd"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	Period              string  `json:"period"`
}
