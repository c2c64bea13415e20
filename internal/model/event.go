package model

// Event is a notable monitor event that can be logged and forwarded to
// notification providers.
type Event string

// All supported monitor events.
const (
	EventLeaderChanged         Event = "LEADER_CHANGED"
	EventHighImportanceInsight Event = "HIGH_IMPORTANCE_INSIGHT"
	EventPollingFallback       Event = "POLLING_FALLBACK"
	EventConnectionRestored    Event = "CONNECTION_RESTORED"
	EventBootstrapFailed       Event = "BOOTSTRAP_FAILED"
	EventTest                  Event = "TEST"
)

// AllEvents returns a slice of all defined events.
func AllEvents() []Event {
	return []Event{
		EventLeaderChanged,
		EventHighImportanceInsight,
		EventPollingFallback,
		EventConnectionRestored,
		EventBootstrapFailed,
		EventTest,
	}
}

// String returns the string representation of an Event.
func (e Event) String() string {
	return string(e)
}

// ParseEvent converts a string to an Event. Returns empty string if invalid.
func ParseEvent(s string) Event {
	for _, e := range AllEvents() {
		if string(e) == s {
			return e
		}
	}
	return ""
}
