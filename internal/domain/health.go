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
	LastChecked string `json:"lastChecked"`
}

// ReceiptMetrics is returned by GET /v1/metrics/receipts.
type ReceiptMetrics struct {
	ReportsGenerated int64   `json:"reportsGenerated"`
	ReportsFailed    int64   `json:"reportsFailed"`
	Downloaded       int64   `json:"downloaded"`
	Placeholders     int64   `json:"placeholders"`
	Skipped          int64   `json:"skipped"`
	SkipRate         float64 `json:"skipRate"`
	CacheHitRate     float64 `json:"cacheHitRate"`
	Period           string  `json:"period"`
}
