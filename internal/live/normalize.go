package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/jsonutil"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/utils"
)

// ErrMalformedPayload marks a push or poll payload that failed validation.
var ErrMalformedPayload = errors.New("malformed payload")

func malformed(event, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedPayload, event, fmt.Sprintf(format, args...))
}

// votingPayload covers both the enhanced_voting_update push event and the
// /api/analytics/enhanced response. Analytics arrive as "analytics" on push
// and "live_analytics" on the REST endpoint.
type votingPayload struct {
	ElectionData    *model.ElectionTotals `json:"election_data"`
	Transactions    json.RawMessage       `json:"blockchain_transactions"`
	Insights        json.RawMessage       `json:"ai_insights"`
	Predictions     json.RawMessage       `json:"ai_predictions"`
	Analytics       map[string]any        `json:"analytics"`
	LiveAnalytics   map[string]any        `json:"live_analytics"`
	AvalancheStats  *model.NetworkStats   `json:"avalanche_stats"`
	BlockchainStats *model.NetworkStats   `json:"blockchain_stats"`
	Error           string                `json:"error"`
}

type insightPayload struct {
	Insights json.RawMessage `json:"insights"`
}

type transactionEvent struct {
	Transaction *model.Transaction `json:"transaction"`
}

type visualizationPayload struct {
	Constituencies []struct {
		Name      string  `json:"name"`
		City      string  `json:"city"`
		Votes     int     `json:"votes"`
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
		Intensity float64 `json:"intensity"`
	} `json:"constituencies"`
}

// Normalize validates a named server payload and converts it into an
// Update. Informational events (connection status, server errors, unknown
// names) yield a nil Update and a nil error. Payloads that fail validation
// return an error wrapping ErrMalformedPayload.
func Normalize(event string, payload json.RawMessage, source model.Source, now time.Time) (*model.Update, error) {
	var (
		u   *model.Update
		err error
	)

	switch event {
	case constants.EventVotingUpdate:
		u, err = normalizeVoting(payload)
	case constants.EventInsightUpdate:
		u, err = normalizeInsights(payload)
	case constants.EventPredictionUpdate:
		u, err = normalizePrediction(payload)
	case constants.EventTransaction:
		u, err = normalizeTransaction(payload)
	case constants.EventVisualization:
		u, err = normalizeVisualization(payload)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u.Source = source
	u.ReceivedAt = now
	return u, nil
}

func normalizeVoting(payload json.RawMessage) (*model.Update, error) {
	event := constants.EventVotingUpdate

	var p votingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, malformed(event, "decoding: %v", err)
	}
	if p.Error != "" && p.ElectionData == nil {
		return nil, malformed(event, "server reported %q", p.Error)
	}
	if p.ElectionData == nil || p.ElectionData.Candidates == nil {
		return nil, malformed(event, "missing election_data.candidates")
	}

	election := *p.ElectionData
	if err := checkCandidates(event, election.Candidates); err != nil {
		return nil, err
	}
	fillPercentages(&election)

	u := &model.Update{Kind: model.UpdateVotes, Election: &election}

	analytics := p.Analytics
	if analytics == nil {
		analytics = p.LiveAnalytics
	}

	insights, err := decodeInsights(event, p.Insights)
	if err != nil {
		return nil, err
	}
	if insights == nil && analytics != nil {
		if nested, ok := analytics["ai_insights"]; ok {
			raw, _ := json.Marshal(nested)
			if insights, err = decodeInsights(event, raw); err != nil {
				return nil, err
			}
		}
	}
	u.Insights = insights

	if analytics != nil {
		u.Demographics = demographicsFrom(analytics)
	}

	predictions := p.Predictions
	if len(predictions) == 0 && analytics != nil {
		if nested, ok := analytics["ai_predictions"]; ok {
			predictions, _ = json.Marshal(nested)
		}
	}
	if len(predictions) > 0 && string(predictions) != "null" {
		pred, err := decodePrediction(event, predictions)
		if err != nil {
			return nil, err
		}
		u.Prediction = pred
	}

	txs, err := decodeTransactions(event, p.Transactions)
	if err != nil {
		return nil, err
	}
	u.Transactions = txs

	switch {
	case p.AvalancheStats != nil:
		u.Network = p.AvalancheStats
	case p.BlockchainStats != nil:
		u.Network = p.BlockchainStats
	}

	return u, nil
}

func normalizeInsights(payload json.RawMessage) (*model.Update, error) {
	event := constants.EventInsightUpdate

	var p insightPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, malformed(event, "decoding: %v", err)
	}
	insights, err := decodeInsights(event, p.Insights)
	if err != nil {
		return nil, err
	}
	if insights == nil {
		return nil, malformed(event, "missing insights")
	}
	return &model.Update{Kind: model.UpdateInsights, Insights: insights}, nil
}

func normalizePrediction(payload json.RawMessage) (*model.Update, error) {
	pred, err := decodePrediction(constants.EventPredictionUpdate, payload)
	if err != nil {
		return nil, err
	}
	return &model.Update{Kind: model.UpdatePrediction, Prediction: pred}, nil
}

func normalizeTransaction(payload json.RawMessage) (*model.Update, error) {
	event := constants.EventTransaction

	var p transactionEvent
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, malformed(event, "decoding: %v", err)
	}
	if p.Transaction == nil || p.Transaction.Hash == "" {
		return nil, malformed(event, "missing transaction.tx_hash")
	}
	return &model.Update{
		Kind:         model.UpdateTransaction,
		Transactions: []model.Transaction{*p.Transaction},
	}, nil
}

func normalizeVisualization(payload json.RawMessage) (*model.Update, error) {
	event := constants.EventVisualization

	var p visualizationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, malformed(event, "decoding: %v", err)
	}
	if p.Constituencies == nil {
		return nil, malformed(event, "missing constituencies")
	}

	points := make([]model.VisualizationPoint, 0, len(p.Constituencies))
	for i, c := range p.Constituencies {
		name := c.Name
		if name == "" {
			name = c.City
		}
		if name == "" {
			return nil, malformed(event, "constituency %d has no name", i)
		}
		points = append(points, model.VisualizationPoint{
			Name:      name,
			Votes:     c.Votes,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Intensity: c.Intensity,
		})
	}
	return &model.Update{Kind: model.UpdateVisualization, Visualization: points}, nil
}

func checkCandidates(event string, candidates []model.Candidate) error {
	for i, c := range candidates {
		if c.Name == "" {
			return malformed(event, "candidate %d has no name", i)
		}
		if c.Votes < 0 {
			return malformed(event, "candidate %q has negative votes", c.Name)
		}
	}
	return nil
}

// fillPercentages derives vote shares when the server left them out.
func fillPercentages(e *model.ElectionTotals) {
	total := e.TotalVotes()
	if total == 0 {
		return
	}
	candidates := make([]model.Candidate, len(e.Candidates))
	copy(candidates, e.Candidates)
	for i := range candidates {
		if candidates[i].Percentage == 0 && candidates[i].Votes > 0 {
			candidates[i].Percentage = utils.VoteShare(candidates[i].Votes, total)
		}
	}
	e.Candidates = candidates
}

// decodeInsights accepts either insight records or the older bare-string
// list. It returns nil when the field is absent.
func decodeInsights(event string, raw json.RawMessage) ([]model.Insight, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var records []model.Insight
	if err := json.Unmarshal(raw, &records); err != nil {
		var titles []string
		if err2 := json.Unmarshal(raw, &titles); err2 != nil {
			return nil, malformed(event, "insights are neither records nor strings: %v", err)
		}
		records = make([]model.Insight, 0, len(titles))
		for _, title := range titles {
			records = append(records, model.Insight{Type: "summary", Title: title, Confidence: 1})
		}
	}
	if records == nil {
		records = []model.Insight{}
	}

	for i, in := range records {
		if in.Title == "" {
			return nil, malformed(event, "insight %d has no title", i)
		}
		if in.Confidence < 0 || in.Confidence > 1 {
			return nil, malformed(event, "insight %q confidence %v outside [0,1]", in.Title, in.Confidence)
		}
		if in.Importance < 0 || in.Importance > 10 {
			return nil, malformed(event, "insight %q importance %d outside [0,10]", in.Title, in.Importance)
		}
	}
	return records, nil
}

// decodePrediction accepts the analytics shape (likely_winner, confidence in
// [0,1]) and the live predictions shape (leading_candidate, confidence in
// percent).
func decodePrediction(event string, raw json.RawMessage) (*model.Prediction, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, malformed(event, "decoding prediction: %v", err)
	}

	pred := &model.Prediction{KeyFactors: []string{}}
	switch {
	case jsonutil.StringFromMap(m, "likely_winner") != "":
		pred.LikelyWinner = jsonutil.StringFromMap(m, "likely_winner")
		pred.Confidence = jsonutil.FloatFromAny(m["confidence"])
	case jsonutil.StringFromMap(m, "leading_candidate") != "":
		pred.LikelyWinner = jsonutil.StringFromMap(m, "leading_candidate")
		pred.Confidence = jsonutil.FloatFromAny(m["confidence"]) / 100
	default:
		return nil, malformed(event, "prediction names no winner")
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		return nil, malformed(event, "prediction confidence %v outside [0,1]", pred.Confidence)
	}

	pred.UpsetProbability = jsonutil.FloatFromAny(m["upset_probability"])
	if factors, ok := m["key_factors"].([]any); ok {
		for _, f := range factors {
			if s := jsonutil.StringFromAny(f); s != "" {
				pred.KeyFactors = append(pred.KeyFactors, s)
			}
		}
	}
	return pred, nil
}

// decodeTransactions accepts both wrapped feed events ({"transaction": {...}})
// and bare transactions. Returns nil when the field is absent.
func decodeTransactions(event string, raw json.RawMessage) ([]model.Transaction, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, malformed(event, "blockchain_transactions is not a list: %v", err)
	}

	txs := make([]model.Transaction, 0, len(items))
	for i, item := range items {
		var wrapped transactionEvent
		if err := json.Unmarshal(item, &wrapped); err != nil {
			return nil, malformed(event, "transaction %d: %v", i, err)
		}
		tx := wrapped.Transaction
		if tx == nil {
			tx = &model.Transaction{}
			if err := json.Unmarshal(item, tx); err != nil {
				return nil, malformed(event, "transaction %d: %v", i, err)
			}
		}
		if tx.Hash == "" {
			return nil, malformed(event, "transaction %d has no tx_hash", i)
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

// demographicsFrom reads analytics.demographics. Returns nil when absent.
func demographicsFrom(analytics map[string]any) *model.Demographics {
	demo := jsonutil.MapAt(analytics, "demographics")
	if demo == nil {
		return nil
	}

	d := &model.Demographics{
		AgeGroups: bucket(demo, "age_groups", "counts"),
		Gender:    bucket(demo, "gender", "counts"),
		Locations: bucket(demo, "locations", "top_10_counts"),
	}
	if len(d.Locations) == 0 {
		d.Locations = bucket(demo, "locations", "counts")
	}
	return d
}

func bucket(demo map[string]any, group, key string) map[string]int {
	v, _ := jsonutil.Lookup(demo, group, key)
	counts := jsonutil.CountsFromAny(v)
	if counts == nil {
		return map[string]int{}
	}
	return counts
}
