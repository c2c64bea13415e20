package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/model"
)

// Health is the backend's /api/health response.
type Health struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  map[string]any `json:"services,omitempty"`
	Network   map[string]any `json:"network,omitempty"`
}

// CandidateResult is one candidate's tally inside a constituency report.
type CandidateResult struct {
	Name       string  `json:"name"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// ConstituencyReport is the detailed analysis of a single constituency.
type ConstituencyReport struct {
	Name         string            `json:"constituency_name"`
	Results      []CandidateResult `json:"candidate_results"`
	Winner       CandidateResult   `json:"winning_candidate"`
	Margin       int               `json:"margin_of_victory"`
	Demographics struct {
		AgeGroups map[string]int `json:"age_groups"`
		Gender    map[string]int `json:"gender_distribution"`
		Location  struct {
			State      string `json:"state"`
			TotalVotes int    `json:"total_votes_in_constituency"`
		} `json:"location_info"`
	} `json:"demographics"`
	Narrative  []string `json:"narrative_insights"`
	Historical struct {
		Labels []string `json:"labels"`
		Data   []int    `json:"data"`
	} `json:"historical_data"`
}

// FeedTransaction is a display-formatted transaction from the live feed.
// The backend truncates hashes and addresses and formats gas as a string.
type FeedTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	CandidateID int    `json:"candidate_id"`
	GasUsed     string `json:"gas_used"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
}

// TransactionFeed is the /api/live/transactions response.
type TransactionFeed struct {
	Transactions []FeedTransaction `json:"transactions"`
	Count        int               `json:"count"`
	Network      string            `json:"network"`
	Contract     string            `json:"contract"`
}

// DemographicReport is the /api/analytics/demographics response.
type DemographicReport struct {
	Summary  json.RawMessage `json:"demographic_summary"`
	Insights []model.Insight `json:"demographic_insights"`
}

// CandidateProbability is one entry of the live prediction ranking.
type CandidateProbability struct {
	Name        string  `json:"name"`
	Probability float64 `json:"probability"`
}

// LivePredictions is the /api/ai/predictions/live response. Confidence is
// a percentage.
type LivePredictions struct {
	Predictions      []CandidateProbability `json:"predictions"`
	Confidence       float64                `json:"confidence"`
	LeadingCandidate string                 `json:"leading_candidate"`
}

// Health checks the backend.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getJSON(ctx, constants.PathHealth, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Analytics returns the raw current analytics snapshot. The payload shares
// its shape with the enhanced_voting_update push event and is validated by
// the live channel.
func (c *Client) Analytics(ctx context.Context) (json.RawMessage, error) {
	body, err := c.get(ctx, constants.PathAnalytics)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// AnalyticsOnce is Analytics without the client's retry loop. The fallback
// poller applies its own retry bound.
func (c *Client) AnalyticsOnce(ctx context.Context) (json.RawMessage, error) {
	body, err := c.fetch(ctx, constants.PathAnalytics, 0)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// Constituencies returns the sorted constituency names.
func (c *Client) Constituencies(ctx context.Context) ([]string, error) {
	var resp struct {
		Constituencies []string `json:"constituencies"`
	}
	if err := c.getJSON(ctx, constants.PathConstituencies, &resp); err != nil {
		return nil, err
	}
	if resp.Constituencies == nil {
		return []string{}, nil
	}
	return resp.Constituencies, nil
}

// ConstituencyAnalysis returns the report for one constituency. The
// backend matches the name case-insensitively.
func (c *Client) ConstituencyAnalysis(ctx context.Context, name string) (*ConstituencyReport, error) {
	if name == "" {
		return nil, fmt.Errorf("constituency name is empty")
	}
	var report ConstituencyReport
	if err := c.getJSON(ctx, constants.PathConstituencyAnalysis+url.PathEscape(name), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Transactions returns the most recent entries of the transaction feed.
func (c *Client) Transactions(ctx context.Context) (*TransactionFeed, error) {
	var feed TransactionFeed
	if err := c.getJSON(ctx, constants.PathTransactions, &feed); err != nil {
		return nil, err
	}
	if feed.Transactions == nil {
		feed.Transactions = []FeedTransaction{}
	}
	return &feed, nil
}

// HistoricalVotes returns the per-year vote totals.
func (c *Client) HistoricalVotes(ctx context.Context) (*model.HistoricalSeries, error) {
	var series model.HistoricalSeries
	if err := c.getJSON(ctx, constants.PathHistoricalVotes, &series); err != nil {
		return nil, err
	}
	if len(series.Labels) != len(series.Data) {
		return nil, fmt.Errorf("historical votes: %d labels but %d values", len(series.Labels), len(series.Data))
	}
	return &series, nil
}

// Demographics returns the demographic analysis report.
func (c *Client) Demographics(ctx context.Context) (*DemographicReport, error) {
	var report DemographicReport
	if err := c.getJSON(ctx, constants.PathDemographics, &report); err != nil {
		return nil, err
	}
	if report.Insights == nil {
		report.Insights = []model.Insight{}
	}
	return &report, nil
}

// LivePredictions returns the live win-probability ranking.
func (c *Client) LivePredictions(ctx context.Context) (*LivePredictions, error) {
	var p LivePredictions
	if err := c.getJSON(ctx, constants.PathLivePredictions, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
