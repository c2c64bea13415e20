package model

// ConnectionState is the lifecycle state of the live update channel.
type ConnectionState int

const (
	// StateConnecting means a connection attempt is in flight.
	StateConnecting ConnectionState = iota
	// StateConnected means the push subscription is live.
	StateConnected
	// StateDisconnected means the last connection dropped or failed and a
	// reconnect is scheduled.
	StateDisconnected
	// StatePollingFallback means push updates were abandoned for the rest of
	// the process lifetime and data is pulled on a fixed interval.
	StatePollingFallback
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StatePollingFallback:
		return "polling_fallback"
	default:
		return "unknown"
	}
}

// MarshalText lets ConnectionState appear by name in JSON and logs.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
