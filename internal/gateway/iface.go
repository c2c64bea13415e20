package gateway

import (
	"context"
	"encoding/json"

	"github.com/Guliveer/election-monitor-go/internal/model"
)

// API is the interface for all backend request/response operations.
// *Client satisfies this interface.
type API interface {
	Health(ctx context.Context) (*Health, error)
	Analytics(ctx context.Context) (json.RawMessage, error)
	AnalyticsOnce(ctx context.Context) (json.RawMessage, error)
	Constituencies(ctx context.Context) ([]string, error)
	ConstituencyAnalysis(ctx context.Context, name string) (*ConstituencyReport, error)
	Transactions(ctx context.Context) (*TransactionFeed, error)
	HistoricalVotes(ctx context.Context) (*model.HistoricalSeries, error)
	Demographics(ctx context.Context) (*DemographicReport, error)
	LivePredictions(ctx context.Context) (*LivePredictions, error)
}

var _ API = (*Client)(nil)
