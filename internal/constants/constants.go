// Package constants defines the election backend's REST paths and push event
// names, and the default timeout/interval values used throughout the monitor.
package constants

import "time"

const (
	// DefaultBackendURL is the base URL of the election analytics backend.
	DefaultBackendURL = "http://127.0.0.1:8080"
	// PushPath is the WebSocket endpoint for push events, relative to the backend URL.
	PushPath = "/ws"
)

// REST paths served by the backend.
const (
	PathHealth               = "/api/health"
	PathAnalytics            = "/api/analytics/enhanced"
	PathConstituencies       = "/api/constituencies"
	PathConstituencyAnalysis = "/api/analysis/constituency/"
	PathTransactions         = "/api/live/transactions"
	PathHistoricalVotes      = "/api/analytics/historical-votes"
	PathDemographics         = "/api/analytics/demographics"
	PathLivePredictions      = "/api/ai/predictions/live"
)

// Push events emitted by the server.
const (
	EventVotingUpdate     = "enhanced_voting_update"
	EventInsightUpdate    = "ai_analysis_update"
	EventPredictionUpdate = "prediction_update"
	EventTransaction      = "new_transaction"
	EventVisualization    = "visualization_data"
	EventConnectionStatus = "connection_status"
	EventError            = "error"
)

// Requests emitted by the client right after connecting.
const (
	RequestLiveData = "request_live_data"
	Request3DData   = "request_3d_data"
)

const (
	// DefaultMaxReconnectAttempts is the reconnect bound; exceeding it switches
	// the channel to polling for the rest of the process lifetime.
	DefaultMaxReconnectAttempts = 5
	// DefaultReconnectBaseDelay is the base of the exponential reconnect delay.
	DefaultReconnectBaseDelay = time.Second
	// DefaultReconnectMaxDelay caps the reconnect delay.
	DefaultReconnectMaxDelay = 30 * time.Second
	// DefaultConnectTimeout bounds a single push connection attempt.
	DefaultConnectTimeout = 20 * time.Second
	// DefaultPollInterval is the fallback polling interval.
	DefaultPollInterval = 10 * time.Second
	// DefaultPollMaxRetries bounds the retries of a single fallback pull.
	DefaultPollMaxRetries = 3
	// DefaultBootstrapTimeout bounds the initial-load sequence.
	DefaultBootstrapTimeout = 15 * time.Second
	// DefaultHTTPTimeout is the default timeout for backend HTTP requests.
	DefaultHTTPTimeout = 10 * time.Second
	// DefaultPingInterval is the interval between WebSocket keepalive pings.
	DefaultPingInterval = 25 * time.Second
	// DefaultSearchDebounce is the quiet period before a search query runs.
	DefaultSearchDebounce = 300 * time.Millisecond
	// DefaultSearchLimit caps the number of search results returned.
	DefaultSearchLimit = 20
	// BootstrapWorkers is the number of concurrent panel loads during bootstrap.
	BootstrapWorkers = 4
	// HighImportanceThreshold is the insight importance that triggers a notification.
	HighImportanceThreshold = 8
	// DefaultGracefulShutdownTimeout is the timeout for graceful HTTP server shutdown.
	DefaultGracefulShutdownTimeout = 5 * time.Second
)
