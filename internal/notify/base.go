package notify

import "github.com/Guliveer/election-monitor-go/internal/model"

// eventSet is the set of events a provider is subscribed to.
type eventSet map[model.Event]struct{}

// parseEvents converts configured event names into a set, skipping unknown
// names. An empty list subscribes to every event.
func parseEvents(names []string) eventSet {
	set := make(eventSet)
	if len(names) == 0 {
		for _, e := range model.AllEvents() {
			set[e] = struct{}{}
		}
		return set
	}
	for _, name := range names {
		if e := model.ParseEvent(name); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// baseNotifier holds the name and subscription shared by every provider.
type baseNotifier struct {
	name    string
	enabled bool
	events  eventSet
}

func (b *baseNotifier) Name() string    { return b.name }
func (b *baseNotifier) IsEnabled() bool { return b.enabled }

// ShouldNotify reports whether the provider subscribed to event.
func (b *baseNotifier) ShouldNotify(event model.Event) bool {
	_, ok := b.events[event]
	return ok
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
