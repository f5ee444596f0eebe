package config

import "time"

// Application constants
const (
	AppName = "bankdash"

	// Server
	DefaultPort           = 8080
	DefaultRequestTimeout = 60 * time.Second

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Analysis
	DefaultMaxUploadBytes      = 32 << 20 // 32MB
	DefaultMaxDatasets         = 16
	DefaultPreviewRows         = 20
	DefaultOutlierColumnCount  = 4
	DefaultCorrelationInsights = 3

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultExportsDir = "data/exports"
	DefaultLogFile    = "logs/bankdash.log"

	// Log Settings
	DefaultLogLevel = "info"

	// API
	APIBasePath     = "/api"
	HealthEndpoint  = "/api/health"
	MetricsEndpoint = "/metrics"
)
