// Package monitor implements the election monitor orchestrator. It wires
// together the live update channel, the snapshot store, the backend gateway,
// the initial-load sequence, notifications and the local dashboard.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Guliveer/election-monitor-go/internal/backoff"
	"github.com/Guliveer/election-monitor-go/internal/bootstrap"
	"github.com/Guliveer/election-monitor-go/internal/config"
	"github.com/Guliveer/election-monitor-go/internal/gateway"
	"github.com/Guliveer/election-monitor-go/internal/live"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/notify"
	"github.com/Guliveer/election-monitor-go/internal/prefs"
	"github.com/Guliveer/election-monitor-go/internal/search"
	"github.com/Guliveer/election-monitor-go/internal/server"
	"github.com/Guliveer/election-monitor-go/internal/store"
)

// Monitor owns every long-lived component of a running monitor.
type Monitor struct {
	cfg *config.MonitorConfig
	log *logger.Logger

	store    *store.Store
	gateway  *gateway.Client
	channel  *live.Channel
	loader   *bootstrap.Loader
	index    *search.Index
	searcher *search.Searcher
	prefs    *prefs.Store
	notify   *notify.Dispatcher
	server   *server.DashboardServer
	alerts   *alerter

	running atomic.Bool
}

// New builds a Monitor from configuration. The push channel dials the
// backend's WebSocket endpoint.
func New(cfg *config.MonitorConfig, log *logger.Logger) (*Monitor, error) {
	pushURL, err := cfg.PushURL()
	if err != nil {
		return nil, err
	}
	return newMonitor(cfg, log, live.WebSocketDialer(pushURL, log.WithComponent("push")))
}

func newMonitor(cfg *config.MonitorConfig, log *logger.Logger, dialer live.Dialer) (*Monitor, error) {
	p, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("opening preferences: %w", err)
	}

	m := &Monitor{
		cfg:    cfg,
		log:    log,
		store:  store.New(),
		index:  search.NewIndex(nil),
		prefs:  p,
		notify: notify.NewDispatcher(cfg.Notifications, log),
		alerts: newAlerter(log),
	}
	log.SetNotifyFunc(m.notify.NotifyFunc())

	m.gateway = gateway.NewClient(cfg.Backend.URL, cfg.Backend.HTTPTimeout, cfg.RetryPolicy(), log.WithComponent("gateway"))

	m.channel = live.New(dialer, live.PollerFunc(m.gateway.AnalyticsOnce), live.Options{
		Reconnect: cfg.ReconnectPolicy(),
		PollRetry: backoff.Policy{
			Base:        cfg.Live.ReconnectBaseDelay,
			MaxDelay:    cfg.Live.ReconnectMaxDelay,
			MaxAttempts: cfg.Live.PollMaxRetries,
		},
		ConnectTimeout: cfg.Live.ConnectTimeout,
		PollInterval:   cfg.Live.PollInterval,
	}, log.WithComponent("live"))
	m.channel.Subscribe(m.handleUpdate)
	m.channel.OnStateChange(m.handleStateChange)

	m.loader = bootstrap.New(m.gateway, m.store, m.index, cfg.Bootstrap.Timeout, log.WithComponent("bootstrap"))
	m.searcher = search.NewSearcher(m.index, cfg.Search.Debounce, cfg.Search.Limit)

	if cfg.Server.IsEnabled() {
		m.server = server.NewDashboardServer(cfg.Server.Addr, server.Deps{
			Store:    m.store,
			Channel:  m.channel,
			Loader:   m.loader,
			Prefs:    m.prefs,
			Index:    m.index,
			Searcher: m.searcher,
			Reports:  m.gateway,
		}, log.WithComponent("server"))
	}

	return m, nil
}

// Store returns the snapshot store.
func (m *Monitor) Store() *store.Store {
	return m.store
}

// Notifier returns the notification dispatcher.
func (m *Monitor) Notifier() *notify.Dispatcher {
	return m.notify
}

// IsRunning reports whether Run is active.
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// Run starts the live channel, the initial-load sequence and the dashboard,
// and blocks until ctx is cancelled or a component fails.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.running.Store(false)
	defer m.searcher.Close()
	defer m.notify.Wait()

	startTime := time.Now()
	m.log.Info("Starting election monitor",
		"backend", m.gateway.BaseURL(),
		"notifiers", m.notify.HasNotifiers(),
	)

	m.checkBackend(ctx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCancel(m.channel.Run(gctx))
	})

	g.Go(func() error {
		if err := m.loader.Run(gctx); err != nil && gctx.Err() == nil {
			m.log.Warn("Initial load incomplete", "error", err)
		}
		return nil
	})

	if m.server != nil {
		g.Go(func() error {
			return ignoreCancel(m.server.Run(gctx))
		})
	}

	m.running.Store(true)
	m.log.Info("Election monitor started",
		"dashboard", m.server != nil,
		"startup_duration", time.Since(startTime).Round(time.Millisecond),
	)

	return g.Wait()
}

// checkBackend logs the backend's health. An unreachable backend is not
// fatal: the channel keeps retrying and falls back to polling.
func (m *Monitor) checkBackend(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Backend.HTTPTimeout)
	defer cancel()

	h, err := m.gateway.Health(ctx)
	if err != nil {
		m.log.Warn("Backend health check failed", "backend", m.gateway.BaseURL(), "error", err)
		return
	}
	m.log.Info("Backend reachable", "status", h.Status, "timestamp", h.Timestamp)
}

func (m *Monitor) handleUpdate(u model.Update) {
	next := m.store.Apply(u)
	m.log.Debug("Update applied",
		"kind", string(u.Kind),
		"source", string(u.Source),
		"version", m.store.Version(),
	)
	m.alerts.check(next, u)
}

func (m *Monitor) handleStateChange(from, to model.ConnectionState) {
	m.log.Info("Live channel state changed", "from", from.String(), "to", to.String())
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
