package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/Guliveer/election-monitor-go/internal/constants"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/utils"
)

// alerter turns accepted updates into notification events. The first
// leader seen is recorded without an alert.
type alerter struct {
	log *logger.Logger

	mu       sync.Mutex
	leader   string
	insights map[string]struct{}
}

func newAlerter(log *logger.Logger) *alerter {
	return &alerter{log: log, insights: make(map[string]struct{})}
}

func (a *alerter) check(next *model.Snapshot, u model.Update) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if u.Election != nil {
		a.checkLeader(next)
	}
	if u.Insights != nil {
		a.checkInsights(next.Insights)
	}
}

func (a *alerter) checkLeader(next *model.Snapshot) {
	leader, ok := next.Election.Leader()
	if !ok {
		return
	}
	if a.leader == "" {
		a.leader = leader.Name
		return
	}
	if leader.Name == a.leader {
		return
	}

	previous := a.leader
	a.leader = leader.Name

	total := next.Election.TotalVotes()
	msg := fmt.Sprintf("%s overtakes %s with %s votes (%.1f%%)",
		leader.Name, previous,
		humanize.Comma(int64(leader.Votes)),
		utils.VoteShare(leader.Votes, total),
	)
	a.log.Event(context.Background(), model.EventLeaderChanged, msg,
		"leader", leader.Name,
		"previous", previous,
		"votes", leader.Votes,
	)
}

// checkInsights alerts on high-importance insights whose title was not in
// the previous insight set.
func (a *alerter) checkInsights(insights []model.Insight) {
	seen := make(map[string]struct{}, len(insights))
	for _, in := range insights {
		seen[in.Title] = struct{}{}
		if in.Importance < constants.HighImportanceThreshold {
			continue
		}
		if _, ok := a.insights[in.Title]; ok {
			continue
		}
		msg := fmt.Sprintf("%s (importance %d/10, %s confidence)",
			in.Title, in.Importance, humanize.FtoaWithDigits(in.Confidence*100, 1)+"%")
		a.log.Event(context.Background(), model.EventHighImportanceInsight, msg,
			"title", in.Title,
			"type", in.Type,
			"importance", in.Importance,
		)
	}
	a.insights = seen
}
