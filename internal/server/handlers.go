package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/bootstrap"
	"github.com/Guliveer/election-monitor-go/internal/gateway"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/prefs"
	"github.com/Guliveer/election-monitor-go/internal/utils"
)

const maxRequestBody = 4 << 10

func (s *DashboardServer) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(dashboardHTML) //nolint:errcheck
}

func (s *DashboardServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.deps.Store.Current()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Connection: connectionStatus{
			State:   s.deps.Channel.State(),
			Attempt: s.deps.Channel.Attempt(),
		},
		Version: s.deps.Store.Version(),
		Source:  snap.Source,
		Notice:  s.deps.Loader.Notice(),
	}
	if !snap.IsEmpty() {
		resp.LastUpdate = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if resp.Connection.State == model.StatePollingFallback {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *DashboardServer) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Store.Current())
}

func (s *DashboardServer) handleCandidates(w http.ResponseWriter, _ *http.Request) {
	election := s.deps.Store.Current().Election
	total := election.TotalVotes()

	rows := make([]candidateRow, 0, len(election.Candidates))
	for _, c := range election.Candidates {
		share := c.Percentage
		if share == 0 {
			share = utils.VoteShare(c.Votes, total)
		}
		rows = append(rows, candidateRow{
			ID:         c.ID,
			Name:       c.Name,
			Party:      c.Party,
			Votes:      c.Votes,
			VotesShort: utils.CompactCount(c.Votes),
			Percentage: share,
			Verified:   c.Verified,
		})
	}
	slices.SortStableFunc(rows, func(a, b candidateRow) int { return b.Votes - a.Votes })

	resp := candidatesResponse{
		Candidates:        rows,
		TotalVotes:        total,
		TurnoutPercentage: election.TurnoutPercentage,
	}
	if leader, ok := election.Leader(); ok {
		resp.Leader = leader.Name
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *DashboardServer) handleInsights(w http.ResponseWriter, r *http.Request) {
	minImportance, err := intParam(r, "min_importance", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	insights := s.deps.Store.Current().Insights
	out := make([]model.Insight, 0, len(insights))
	for _, in := range insights {
		if in.Importance >= minImportance {
			out = append(out, in)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Insight) int { return b.Importance - a.Importance })
	writeJSON(w, http.StatusOK, out)
}

func (s *DashboardServer) handlePanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, panelsResponse{
		States:       s.deps.Loader.Panels(),
		Historical:   s.deps.Loader.Historical(),
		Transactions: s.deps.Loader.TransactionFeed(),
		Demographics: s.deps.Loader.DemographicReport(),
	})
}

func (s *DashboardServer) handleConstituencies(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"total":   s.deps.Index.Len(),
		"matches": s.deps.Index.Filter(q, limit),
	})
}

func (s *DashboardServer) handleConstituency(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	report, err := s.deps.Reports.ConstituencyAnalysis(r.Context(), name)
	if err != nil {
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "constituency not found"})
			return
		}
		s.log.Warn("Constituency report failed", "constituency", name, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *DashboardServer) handleLivePredictions(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Reports.LivePredictions(r.Context())
	if err != nil {
		s.log.Warn("Live predictions failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *DashboardServer) handleSearchSubmit(w http.ResponseWriter, r *http.Request) {
	s.deps.Searcher.Submit(r.URL.Query().Get("q"))
	w.WriteHeader(http.StatusAccepted)
}

func (s *DashboardServer) handleSearchLatest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Searcher.Latest())
}

func (s *DashboardServer) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Prefs.Get())
}

func (s *DashboardServer) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var body prefs.Preferences
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	theme, err := prefs.ParseTheme(string(body.Theme))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := s.deps.Prefs.SetTheme(theme); err != nil {
		s.log.Error("Failed to save theme", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "could not save preference"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Prefs.Get())
}

func (s *DashboardServer) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil || body.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "notice id required"})
		return
	}
	if !s.deps.Loader.Dismiss(body.ID) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no such notice"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *DashboardServer) handleRetry(w http.ResponseWriter, _ *http.Request) {
	ctx := s.backgroundCtx()
	go func() {
		if err := s.deps.Loader.Retry(ctx); err != nil && !errors.Is(err, bootstrap.ErrTimeout) {
			s.log.Warn("Bootstrap retry failed", "error", err)
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}

type connectionStatus struct {
	State   model.ConnectionState `json:"state"`
	Attempt int                   `json:"attempt"`
}

type healthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Connection connectionStatus  `json:"connection"`
	LastUpdate string            `json:"last_update,omitempty"`
	Source     model.Source      `json:"source,omitempty"`
	Version    uint64            `json:"version"`
	Notice     *bootstrap.Notice `json:"notice,omitempty"`
}

type candidateRow struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Party      string  `json:"party,omitempty"`
	Votes      int     `json:"votes"`
	VotesShort string  `json:"votes_short"`
	Percentage float64 `json:"percentage"`
	Verified   bool    `json:"blockchain_verified"`
}

type candidatesResponse struct {
	Candidates        []candidateRow `json:"candidates"`
	Leader            string         `json:"leader,omitempty"`
	TotalVotes        int            `json:"total_votes"`
	TurnoutPercentage float64        `json:"turnout_percentage"`
}

type panelsResponse struct {
	States       map[bootstrap.Panel]bootstrap.PanelState `json:"states"`
	Historical   *model.HistoricalSeries                  `json:"historical_votes"`
	Transactions *gateway.TransactionFeed                 `json:"transactions"`
	Demographics *gateway.DemographicReport               `json:"demographics"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v) //nolint:errcheck
}
