// Package live implements the live update channel: it keeps a push
// subscription to the election backend alive with bounded exponential
// reconnects, falls back to fixed-interval polling once the bound is
// exceeded, and hands validated updates to its subscribers in arrival order.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/backoff"
	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/transport"
)

// Clock schedules the channel's waits. Tests substitute a fake.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// PushConn is an established push connection.
type PushConn interface {
	Emit(event string, data any) error
	Run(ctx context.Context, handle transport.FrameHandler) error
	Close()
}

// Dialer opens push connections.
type Dialer interface {
	Dial(ctx context.Context) (PushConn, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (PushConn, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (PushConn, error) { return f(ctx) }

// WebSocketDialer dials the backend's push endpoint at url.
func WebSocketDialer(url string, log *logger.Logger) Dialer {
	return DialerFunc(func(ctx context.Context) (PushConn, error) {
		conn, err := transport.Dial(ctx, url, log)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

// Poller pulls the current analytics snapshot over request/response.
type Poller interface {
	Analytics(ctx context.Context) (json.RawMessage, error)
}

// PollerFunc adapts a function to the Poller interface.
type PollerFunc func(ctx context.Context) (json.RawMessage, error)

// Analytics calls f(ctx).
func (f PollerFunc) Analytics(ctx context.Context) (json.RawMessage, error) { return f(ctx) }

// UpdateFunc receives each accepted update. It runs on the channel's
// goroutine and must not block.
type UpdateFunc func(u model.Update)

// StateFunc is notified of every connection state transition.
type StateFunc func(from, to model.ConnectionState)

// Options tunes the channel. Zero values are replaced by defaults.
type Options struct {
	Reconnect      backoff.Policy
	PollRetry      backoff.Policy
	ConnectTimeout time.Duration
	PollInterval   time.Duration
	Clock          Clock
}

func (o *Options) applyDefaults() {
	if o.Reconnect == (backoff.Policy{}) {
		o.Reconnect = backoff.DefaultReconnect()
	}
	if o.PollRetry == (backoff.Policy{}) {
		o.PollRetry = backoff.Policy{
			Base:        constants.DefaultReconnectBaseDelay,
			MaxDelay:    constants.DefaultReconnectMaxDelay,
			MaxAttempts: constants.DefaultPollMaxRetries,
		}
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = constants.DefaultConnectTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = constants.DefaultPollInterval
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
}

// Channel owns the connection state and the reconnect attempt counter.
// Only the goroutine running Run mutates them.
type Channel struct {
	mu      sync.RWMutex
	state   model.ConnectionState
	attempt int
	gen     uint64
	lastErr error

	dialer Dialer
	poller Poller
	opts   Options
	log    *logger.Logger

	subsMu      sync.RWMutex
	subscribers []UpdateFunc
	listeners   []StateFunc
}

// New creates a channel in the Connecting state. Nothing is dialed until Run.
func New(dialer Dialer, poller Poller, opts Options, log *logger.Logger) *Channel {
	opts.applyDefaults()
	return &Channel{
		state:  model.StateConnecting,
		dialer: dialer,
		poller: poller,
		opts:   opts,
		log:    log,
	}
}

// Subscribe registers fn to receive every accepted update.
func (c *Channel) Subscribe(fn UpdateFunc) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// OnStateChange registers fn to be told about state transitions.
func (c *Channel) OnStateChange(fn StateFunc) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the current connection state.
func (c *Channel) State() model.ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Attempt returns the number of consecutive failed connection attempts.
func (c *Channel) Attempt() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempt
}

// LastError returns the error that ended the most recent connection, if any.
func (c *Channel) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Run makes the first connection attempt and keeps the channel alive until
// ctx is cancelled. There is no fatal failure: once reconnects are
// exhausted it polls for the rest of its lifetime.
func (c *Channel) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.State() == model.StatePollingFallback {
			return c.runPolling(ctx)
		}

		c.setState(model.StateConnecting)
		err := c.connectOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay, fallback := c.onDisconnected(err)
		if fallback {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.opts.Clock.After(delay):
		}
	}
}

// connectOnce dials, and if that succeeds, reads frames until the
// connection ends. The returned error is never nil unless ctx was cancelled.
func (c *Channel) connectOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.ConnectTimeout)
	conn, err := c.dialer.Dial(dialCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	gen := c.onConnected(ctx, conn)

	err = conn.Run(ctx, func(event string, data json.RawMessage) {
		if !c.current(gen) {
			c.log.Debug("Discarding frame from superseded connection", "event", event)
			return
		}
		_ = c.HandleMessage(event, data)
	})
	if err == nil {
		err = errors.New("push connection ended")
	}
	return err
}

// onConnected resets the attempt counter, moves to Connected and asks the
// backend for the initial full snapshot and the visualisation data.
func (c *Channel) onConnected(ctx context.Context, conn PushConn) uint64 {
	c.mu.Lock()
	restored := c.attempt > 0
	c.attempt = 0
	c.gen++
	gen := c.gen
	c.lastErr = nil
	c.mu.Unlock()

	c.setState(model.StateConnected)
	if restored {
		c.log.Event(ctx, model.EventConnectionRestored, "Live updates restored")
	} else {
		c.log.Info("Live updates connected")
	}

	for _, req := range []string{constants.RequestLiveData, constants.Request3DData} {
		if err := conn.Emit(req, nil); err != nil {
			c.log.Warn("Failed to send request", "request", req, "error", err)
		}
	}
	return gen
}

// onDisconnected records a failed or dropped connection. It returns the
// delay before the next attempt, or fallback=true once the bound is exceeded.
func (c *Channel) onDisconnected(err error) (delay time.Duration, fallback bool) {
	c.mu.Lock()
	c.attempt++
	c.gen++
	c.lastErr = err
	attempt := c.attempt
	c.mu.Unlock()

	if c.opts.Reconnect.Exhausted(attempt) {
		c.log.Event(context.Background(), model.EventPollingFallback,
			"Live updates unavailable, switching to polling",
			"attempts", attempt-1, "interval", c.opts.PollInterval)
		c.setState(model.StatePollingFallback)
		return 0, true
	}

	c.setState(model.StateDisconnected)
	delay = c.opts.Reconnect.Delay(attempt)
	c.log.Warn("Live connection lost, reconnecting",
		"attempt", attempt, "error", err, "backoff", delay.Round(time.Millisecond))
	return delay, false
}

func (c *Channel) current(gen uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen == gen && c.state == model.StateConnected
}

// runPolling pulls the analytics snapshot every PollInterval. It never
// returns an error other than ctx's.
func (c *Channel) runPolling(ctx context.Context) error {
	for {
		c.pollOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.opts.Clock.After(c.opts.PollInterval):
		}
	}
}

// pollOnce performs a single pull with bounded retries. A pull that still
// fails after the bound is logged and dropped.
func (c *Channel) pollOnce(ctx context.Context) {
	var (
		raw json.RawMessage
		err error
	)
	for attempt := 0; ; attempt++ {
		raw, err = c.poller.Analytics(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return
		}
		if c.opts.PollRetry.Exhausted(attempt + 1) {
			c.log.Warn("Dropping poll after retries", "retries", attempt, "error", err)
			return
		}
		delay := c.opts.PollRetry.Delay(attempt + 1)
		c.log.Debug("Poll failed, retrying", "attempt", attempt+1, "error", err, "backoff", delay)
		select {
		case <-ctx.Done():
			return
		case <-c.opts.Clock.After(delay):
		}
	}

	if c.State() != model.StatePollingFallback {
		c.log.Debug("Discarding stale poll result")
		return
	}

	u, err := Normalize(constants.EventVotingUpdate, raw, model.SourcePoll, c.opts.Clock.Now())
	if err != nil {
		c.log.Warn("Dropping malformed poll result", "error", err)
		return
	}
	c.dispatch(*u)
}

// HandleMessage validates a named push payload and dispatches the resulting
// update. Malformed payloads are logged, dropped and returned as an error
// wrapping ErrMalformedPayload. Informational events return nil.
func (c *Channel) HandleMessage(event string, payload json.RawMessage) error {
	switch event {
	case constants.EventConnectionStatus:
		c.log.Debug("Backend connection status", "payload", string(payload))
		return nil
	case constants.EventError:
		c.log.Warn("Backend reported an error", "payload", string(payload))
		return nil
	}

	u, err := Normalize(event, payload, model.SourcePush, c.opts.Clock.Now())
	if err != nil {
		c.log.Warn("Dropping malformed push payload", "event", event, "error", err)
		return err
	}
	if u == nil {
		c.log.Debug("Ignoring unknown push event", "event", event)
		return nil
	}
	c.dispatch(*u)
	return nil
}

func (c *Channel) dispatch(u model.Update) {
	c.subsMu.RLock()
	subs := c.subscribers
	c.subsMu.RUnlock()

	for _, fn := range subs {
		fn(u)
	}
}

func (c *Channel) setState(to model.ConnectionState) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()

	if from == to {
		return
	}
	c.log.Debug("Connection state changed", "state", to.String(), "previous", from.String())

	c.subsMu.RLock()
	listeners := c.listeners
	c.subsMu.RUnlock()
	for _, fn := range listeners {
		fn(from, to)
	}
}
