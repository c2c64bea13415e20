// Package server provides the local dashboard: a lightweight HTTP server
// that renders the latest election snapshot, the live channel status and
// the bootstrap notice as JSON endpoints and a single embedded page.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/bootstrap"
	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/gateway"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/prefs"
	"github.com/Guliveer/election-monitor-go/internal/search"
)

// SnapshotSource exposes the latest snapshot.
type SnapshotSource interface {
	Current() *model.Snapshot
	Version() uint64
}

// ChannelStatus exposes the live channel's connection state.
type ChannelStatus interface {
	State() model.ConnectionState
	Attempt() int
}

// Loader exposes the bootstrap notice, its actions and the panel data.
type Loader interface {
	Notice() *bootstrap.Notice
	Dismiss(id string) bool
	Retry(ctx context.Context) error
	Panels() map[bootstrap.Panel]bootstrap.PanelState
	Historical() *model.HistoricalSeries
	TransactionFeed() *gateway.TransactionFeed
	DemographicReport() *gateway.DemographicReport
}

// ThemeStore reads and writes the theme preference.
type ThemeStore interface {
	Get() prefs.Preferences
	SetTheme(theme prefs.Theme) error
}

// ReportSource fetches on-demand reports from the backend.
type ReportSource interface {
	ConstituencyAnalysis(ctx context.Context, name string) (*gateway.ConstituencyReport, error)
	LivePredictions(ctx context.Context) (*gateway.LivePredictions, error)
}

// Deps are the read-only references the dashboard renders from.
type Deps struct {
	Store    SnapshotSource
	Channel  ChannelStatus
	Loader   Loader
	Prefs    ThemeStore
	Index    *search.Index
	Searcher *search.Searcher
	Reports  ReportSource
}

// DashboardServer serves the dashboard page and JSON API endpoints.
type DashboardServer struct {
	addr    string
	log     *logger.Logger
	srv     *http.Server
	handler http.Handler
	deps    Deps

	mu     sync.RWMutex
	runCtx context.Context
}

// NewDashboardServer creates a new DashboardServer bound to the given address.
func NewDashboardServer(addr string, deps Deps, log *logger.Logger) *DashboardServer {
	s := &DashboardServer{
		addr:   addr,
		log:    log,
		deps:   deps,
		runCtx: context.Background(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/candidates", s.handleCandidates)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/panels", s.handlePanels)
	mux.HandleFunc("GET /api/constituencies", s.handleConstituencies)
	mux.HandleFunc("GET /api/constituency/{name}", s.handleConstituency)
	mux.HandleFunc("GET /api/predictions/live", s.handleLivePredictions)
	mux.HandleFunc("POST /api/search", s.handleSearchSubmit)
	mux.HandleFunc("GET /api/search", s.handleSearchLatest)
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handlePutTheme)
	mux.HandleFunc("POST /api/notice/dismiss", s.handleDismissNotice)
	mux.HandleFunc("POST /api/retry", s.handleRetry)

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	s.handler = withLogging(log, mux)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return context.Background()
		},
	}

	return s
}

// Handler returns the server's HTTP handler.
func (s *DashboardServer) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs graceful shutdown when the context is done.
func (s *DashboardServer) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	s.log.Info("Dashboard server starting", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("dashboard server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Dashboard server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultGracefulShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("dashboard server shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *DashboardServer) backgroundCtx() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runCtx
}

func withLogging(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
