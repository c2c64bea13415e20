// Package bootstrap runs the monitor's initial-load sequence: it waits,
// within a bound, for the first accepted snapshot and concurrently loads the
// independent dashboard panels. Panel failures are isolated; a missing
// snapshot yields a dismissable notice with a retry action.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/gateway"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/search"
	"github.com/Guliveer/election-monitor-go/internal/store"
	"github.com/Guliveer/election-monitor-go/internal/workerpool"
)

// ErrTimeout is returned when no snapshot arrived within the bound.
var ErrTimeout = errors.New("initial data did not arrive in time")

// Panel names an independently loaded dashboard feature.
type Panel string

const (
	PanelConstituencies Panel = "constituencies"
	PanelHistorical     Panel = "historical_votes"
	PanelTransactions   Panel = "transactions"
	PanelDemographics   Panel = "demographics"
)

var allPanels = []Panel{PanelConstituencies, PanelHistorical, PanelTransactions, PanelDemographics}

// Source is the subset of the backend gateway the panels load from.
type Source interface {
	Constituencies(ctx context.Context) ([]string, error)
	HistoricalVotes(ctx context.Context) (*model.HistoricalSeries, error)
	Transactions(ctx context.Context) (*gateway.TransactionFeed, error)
	Demographics(ctx context.Context) (*gateway.DemographicReport, error)
}

// Notice is the user-visible message shown when the initial load failed.
type Notice struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	CreatedAt time.Time `json:"created_at"`
}

// PanelState records the outcome of a panel's last load.
type PanelState struct {
	Loaded   bool      `json:"loaded"`
	Error    string    `json:"error,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
}

// Loader owns the bootstrap state.
type Loader struct {
	src     Source
	store   *store.Store
	index   *search.Index
	timeout time.Duration
	log     *logger.Logger

	runMu sync.Mutex

	mu           sync.RWMutex
	notice       *Notice
	panels       map[Panel]PanelState
	historical   *model.HistoricalSeries
	feed         *gateway.TransactionFeed
	demographics *gateway.DemographicReport
}

// New creates a Loader. Constituency names are loaded into index.
func New(src Source, st *store.Store, index *search.Index, timeout time.Duration, log *logger.Logger) *Loader {
	if timeout <= 0 {
		timeout = constants.DefaultBootstrapTimeout
	}
	return &Loader{
		src:     src,
		store:   st,
		index:   index,
		timeout: timeout,
		log:     log,
		panels:  make(map[Panel]PanelState, len(allPanels)),
	}
}

// Run performs the initial-load sequence. It returns ErrTimeout, and raises
// a notice, if no snapshot was accepted within the bound. Panel errors are
// recorded per panel and never returned.
func (l *Loader) Run(ctx context.Context) error {
	l.runMu.Lock()
	defer l.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.loadPanels(ctx)
	}()

	err := l.waitForSnapshot(ctx)
	wg.Wait()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		l.raiseNotice(ctx, err)
		return err
	}

	l.mu.Lock()
	l.notice = nil
	l.mu.Unlock()
	l.log.Info("Initial data loaded", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Retry dismisses the current notice and runs the sequence again.
func (l *Loader) Retry(ctx context.Context) error {
	l.mu.Lock()
	l.notice = nil
	l.mu.Unlock()
	return l.Run(ctx)
}

// Notice returns the active notice, or nil.
func (l *Loader) Notice() *Notice {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.notice == nil {
		return nil
	}
	n := *l.notice
	return &n
}

// Dismiss hides the notice with the given id. It reports whether a notice
// was dismissed.
func (l *Loader) Dismiss(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.notice == nil || l.notice.ID != id {
		return false
	}
	l.notice = nil
	return true
}

// Panels returns the state of every panel.
func (l *Loader) Panels() map[Panel]PanelState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[Panel]PanelState, len(allPanels))
	for _, p := range allPanels {
		out[p] = l.panels[p]
	}
	return out
}

// Historical returns the loaded historical vote series, or nil.
func (l *Loader) Historical() *model.HistoricalSeries {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.historical
}

// TransactionFeed returns the loaded transaction feed, or nil.
func (l *Loader) TransactionFeed() *gateway.TransactionFeed {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.feed
}

// DemographicReport returns the loaded demographic report, or nil.
func (l *Loader) DemographicReport() *gateway.DemographicReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.demographics
}

func (l *Loader) waitForSnapshot(ctx context.Context) error {
	for {
		watch := l.store.Watch()
		if !l.store.Current().IsEmpty() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-watch:
		}
	}
}

func (l *Loader) loadPanels(ctx context.Context) {
	errs := workerpool.RunEach(ctx, allPanels, constants.BootstrapWorkers, l.loadPanel)

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, p := range allPanels {
		if errs[i] != nil {
			prev := l.panels[p]
			prev.Error = errs[i].Error()
			l.panels[p] = prev
			l.log.Warn("Failed to load panel", "panel", string(p), "error", errs[i])
			continue
		}
		l.panels[p] = PanelState{Loaded: true, LoadedAt: time.Now()}
	}
}

func (l *Loader) loadPanel(ctx context.Context, p Panel) error {
	switch p {
	case PanelConstituencies:
		names, err := l.src.Constituencies(ctx)
		if err != nil {
			return err
		}
		l.index.Replace(names)
		l.log.Debug("Loaded constituencies", "count", len(names))
	case PanelHistorical:
		series, err := l.src.HistoricalVotes(ctx)
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.historical = series
		l.mu.Unlock()
	case PanelTransactions:
		feed, err := l.src.Transactions(ctx)
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.feed = feed
		l.mu.Unlock()
	case PanelDemographics:
		report, err := l.src.Demographics(ctx)
		if err != nil {
			return err
		}
		l.mu.Lock()
		l.demographics = report
		l.mu.Unlock()
	default:
		return fmt.Errorf("unknown panel %q", p)
	}
	return nil
}

func (l *Loader) raiseNotice(ctx context.Context, err error) {
	msg := "Live election data is taking longer than expected to load."
	if !errors.Is(err, ErrTimeout) {
		msg = "Live election data could not be loaded."
	}
	n := &Notice{
		ID:        uuid.NewString(),
		Message:   msg,
		Retryable: true,
		CreatedAt: time.Now(),
	}

	l.mu.Lock()
	l.notice = n
	l.mu.Unlock()

	l.log.Event(context.WithoutCancel(ctx), model.EventBootstrapFailed, msg,
		"timeout", l.timeout, "error", err)
}
