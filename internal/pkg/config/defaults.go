package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 50
	DefaultCleanupInterval = 1 * time.Hour

	// Processing defaults
	DefaultTaskTimeout = 600 * time.Second
	DefaultCacheTTL    = 60 * time.Minute
	DefaultWorkers     = 4

	// Analysis defaults
	DefaultGroupBy       = "month"
	DefaultWaitThreshold = 24 * time.Hour
	DefaultTopReactions  = 5

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
