package model

import "time"

// Source identifies where an accepted update came from.
type Source string

const (
	SourceNone Source = ""
	SourcePush Source = "push"
	SourcePoll Source = "poll"
)

// Snapshot is the latest known full state. A stored Snapshot is never
// mutated; the store swaps in a new value for every accepted update.
type Snapshot struct {
	Election      ElectionTotals       `json:"election"`
	Insights      []Insight            `json:"insights"`
	Demographics  Demographics         `json:"demographics"`
	Transactions  []Transaction        `json:"transactions"`
	Prediction    Prediction           `json:"prediction"`
	Visualization []VisualizationPoint `json:"visualization"`
	Network       NetworkStats         `json:"network"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Source    Source    `json:"source,omitempty"`
}

// EmptySnapshot returns the default snapshot served before any update has
// been accepted. Collections are empty rather than nil.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Election: ElectionTotals{Candidates: []Candidate{}},
		Insights: []Insight{},
		Demographics: Demographics{
			AgeGroups: map[string]int{},
			Gender:    map[string]int{},
			Locations: map[string]int{},
		},
		Transactions:  []Transaction{},
		Prediction:    Prediction{KeyFactors: []string{}},
		Visualization: []VisualizationPoint{},
	}
}

// IsEmpty reports whether no update has been applied to the snapshot yet.
func (s *Snapshot) IsEmpty() bool {
	return s.UpdatedAt.IsZero()
}

// UpdateKind names the push event family an Update was normalised from.
type UpdateKind string

const (
	UpdateVotes         UpdateKind = "votes"
	UpdateInsights      UpdateKind = "insights"
	UpdatePrediction    UpdateKind = "prediction"
	UpdateTransaction   UpdateKind = "transaction"
	UpdateVisualization UpdateKind = "visualization"
)

// Update is a normalised, validated server update. A nil field means the
// sub-tree was absent from the payload; a non-nil field replaces the
// corresponding snapshot sub-tree wholesale.
type Update struct {
	Kind   UpdateKind `json:"kind"`
	Source Source     `json:"source"`

	Election      *ElectionTotals      `json:"election,omitempty"`
	Insights      []Insight            `json:"insights,omitempty"`
	Demographics  *Demographics        `json:"demographics,omitempty"`
	Transactions  []Transaction        `json:"transactions,omitempty"`
	Prediction    *Prediction          `json:"prediction,omitempty"`
	Visualization []VisualizationPoint `json:"visualization,omitempty"`
	Network       *NetworkStats        `json:"network,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}
