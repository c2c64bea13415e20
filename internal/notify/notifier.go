// Package notify provides notification dispatching to multiple providers
// (Telegram, Discord, Webhook) based on event filtering.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/config"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
)

const (
	// defaultHTTPTimeout is the timeout for notification HTTP requests.
	defaultHTTPTimeout = 5 * time.Second
	// repeatWindow suppresses an identical event and message sent again
	// within the window, e.g. a lead flipping back and forth.
	repeatWindow = time.Minute
)

// title is the heading used for every notification.
const title = "Election Monitor"

// Notifier is the interface that all notification providers must implement.
type Notifier interface {
	Send(ctx context.Context, event model.Event, title, message string) error
	Name() string
	IsEnabled() bool
	ShouldNotify(event model.Event) bool
}

// Dispatcher manages multiple notifiers and dispatches notifications to all
// enabled notifiers that match the event.
type Dispatcher struct {
	notifiers []Notifier
	log       *logger.Logger
	wg        sync.WaitGroup
	now       func() time.Time

	mu     sync.Mutex
	recent map[string]time.Time
}

// NewDispatcher creates a Dispatcher from the notification configuration.
// It initialises all configured and enabled notification providers.
func NewDispatcher(cfg config.NotificationsConfig, log *logger.Logger) *Dispatcher {
	d := &Dispatcher{
		log:    log,
		now:    time.Now,
		recent: make(map[string]time.Time),
	}

	httpClient := &http.Client{
		Timeout: defaultHTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     30 * time.Second,
		},
	}

	if tg := cfg.Telegram; tg != nil && tg.Enabled {
		d.notifiers = append(d.notifiers, &Telegram{
			baseNotifier:        baseNotifier{name: "Telegram", enabled: true, events: parseEvents(tg.Events)},
			apiBase:             telegramAPIBase,
			token:               tg.Token,
			chatID:              tg.ChatID,
			disableNotification: tg.DisableNotification,
			httpClient:          httpClient,
		})
	}

	if dc := cfg.Discord; dc != nil && dc.Enabled {
		d.notifiers = append(d.notifiers, &Discord{
			baseNotifier: baseNotifier{name: "Discord", enabled: true, events: parseEvents(dc.Events)},
			webhookURL:   dc.WebhookURL,
			httpClient:   httpClient,
		})
	}

	if wh := cfg.Webhook; wh != nil && wh.Enabled {
		d.notifiers = append(d.notifiers, &Webhook{
			baseNotifier: baseNotifier{name: "Webhook", enabled: true, events: parseEvents(wh.Events)},
			url:          wh.Endpoint,
			method:       wh.Method,
			headers:      wh.Headers,
			httpClient:   httpClient,
		})
	}

	return d
}

// Dispatch sends a notification to all enabled notifiers that match the event.
// Sends are non-blocking; each notifier runs in its own goroutine. Wait
// blocks until the sends started so far have finished.
func (d *Dispatcher) Dispatch(ctx context.Context, event model.Event, title, message string) {
	if d.repeated(event, message) {
		d.log.Debug("Suppressed repeated notification", "event", string(event))
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, n := range d.notifiers {
		if !n.IsEnabled() || !n.ShouldNotify(event) {
			continue
		}
		d.wg.Add(1)
		go func(notifier Notifier) {
			defer d.wg.Done()
			sendCtx, cancel := context.WithTimeout(ctx, defaultHTTPTimeout)
			defer cancel()
			if err := notifier.Send(sendCtx, event, title, message); err != nil {
				d.log.Warn("notification send failed",
					"provider", notifier.Name(),
					"event", string(event),
					"error", err,
				)
			}
		}(n)
	}
}

// repeated records the notification and reports whether an identical one
// was sent within repeatWindow. Test notifications are never suppressed.
func (d *Dispatcher) repeated(event model.Event, message string) bool {
	if event == model.EventTest {
		return false
	}
	now := d.now()
	key := string(event) + "\x00" + message

	d.mu.Lock()
	defer d.mu.Unlock()
	for k, at := range d.recent {
		if now.Sub(at) >= repeatWindow {
			delete(d.recent, k)
		}
	}
	if _, ok := d.recent[key]; ok {
		return true
	}
	d.recent[key] = now
	return false
}

// Wait blocks until all in-flight sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// NotifyFunc returns a logger.NotifyFunc that dispatches notifications via this Dispatcher.
func (d *Dispatcher) NotifyFunc() logger.NotifyFunc {
	return func(ctx context.Context, message string, event model.Event) {
		d.Dispatch(ctx, event, title, message)
	}
}

// HasNotifiers reports whether any notifiers are configured.
func (d *Dispatcher) HasNotifiers() bool {
	return len(d.notifiers) > 0
}

// SendTest sends a TEST notification to every subscribed provider and waits
// for the sends to finish.
func (d *Dispatcher) SendTest(ctx context.Context) {
	d.Dispatch(ctx, model.EventTest, title, "Test notification from the election monitor")
	d.Wait()
}
