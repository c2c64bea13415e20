// Package model defines the election data types shared by the live update
// channel, the snapshot store, the backend gateway client and the renderers.
package model

// Candidate is a single candidate's standing in the running tally.
type Candidate struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Party      string  `json:"party,omitempty"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
	Verified   bool    `json:"blockchain_verified,omitempty"`
}

// ElectionTotals is the vote tally sub-tree of a snapshot.
type ElectionTotals struct {
	ElectionID        string      `json:"election_id,omitempty"`
	ElectionName      string      `json:"election_name,omitempty"`
	Status            string      `json:"status,omitempty"`
	Candidates        []Candidate `json:"candidates"`
	TotalEligible     int         `json:"total_eligible_voters"`
	CurrentTurnout    int         `json:"current_turnout"`
	TurnoutPercentage float64     `json:"turnout_percentage"`
	LastUpdated       string      `json:"last_updated,omitempty"`
}

// TotalVotes returns the sum of all candidate votes.
func (e *ElectionTotals) TotalVotes() int {
	total := 0
	for _, c := range e.Candidates {
		total += c.Votes
	}
	return total
}

// Leader returns the candidate with the most votes. Ties go to the first
// candidate in list order. ok is false when there are no candidates.
func (e *ElectionTotals) Leader() (leader Candidate, ok bool) {
	for i, c := range e.Candidates {
		if i == 0 || c.Votes > leader.Votes {
			leader = c
			ok = true
		}
	}
	return leader, ok
}

// Insight is one AI-generated insight record.
type Insight struct {
	Type        string  `json:"type,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence"`
	Importance  int     `json:"importance"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// Demographics holds the bucketed voter counts.
type Demographics struct {
	AgeGroups map[string]int `json:"age_groups"`
	Gender    map[string]int `json:"gender"`
	Locations map[string]int `json:"locations"`
}

// Transaction is a vote transaction from the blockchain feed.
type Transaction struct {
	Hash        string `json:"tx_hash"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	CandidateID int    `json:"candidate_id"`
	GasUsed     int    `json:"gas_used,omitempty"`
	BlockNumber int    `json:"block_number,omitempty"`
	Status      string `json:"status,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Prediction is the latest AI outcome prediction.
type Prediction struct {
	LikelyWinner     string   `json:"likely_winner"`
	Confidence       float64  `json:"confidence"`
	UpsetProbability float64  `json:"upset_probability,omitempty"`
	KeyFactors       []string `json:"key_factors,omitempty"`
}

// VisualizationPoint is one located vote cluster for the 3D globe.
type VisualizationPoint struct {
	Name      string  `json:"name"`
	Votes     int     `json:"votes"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Intensity float64 `json:"intensity,omitempty"`
}

// NetworkStats describes the chain the votes are recorded on.
type NetworkStats struct {
	Network          string  `json:"network,omitempty"`
	ChainID          int     `json:"chain_id,omitempty"`
	CurrentBlock     int     `json:"current_block,omitempty"`
	TPS              float64 `json:"tps,omitempty"`
	OnlineValidators int     `json:"online_validators,omitempty"`
	TotalValidators  int     `json:"total_validators,omitempty"`
}

// HistoricalSeries is the per-year total vote series.
type HistoricalSeries struct {
	Labels []int `json:"labels"`
	Data   []int `json:"data"`
}
