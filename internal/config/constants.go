package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = time.Minute

// Admin API rate limiting (per client IP)
const (
	AdminRateLimitPerMin = 30
	AdminRateLimitWindow = time.Minute
)

// Connection hub limits
const (
	MaxAdminAuthAttempts = 5
	AdminRoom            = "admin"
	LeaderboardSize      = 10
)

// WebSocket transport settings
const (
	WSWriteWait          = 10 * time.Second
	WSPongWait           = 60 * time.Second
	WSPingPeriod         = (WSPongWait * 9) / 10
	WSMaxMessageBytes    = 8 * 1024
	WSSendBuffer         = 64
	WSMaxFramesPerSecond = 20
)
