// Package store holds the latest known election snapshot and decouples the
// cadence of incoming updates from the cadence of the readers that render it.
package store

import (
	"sync"

	"github.com/Guliveer/election-monitor-go/internal/model"
)

// Store is the single source of truth for the latest snapshot. Apply is the
// only mutation point; readers receive immutable snapshots.
type Store struct {
	mu       sync.RWMutex
	current  *model.Snapshot
	version  uint64
	watchers []chan struct{}
}

// New creates a Store holding the empty default snapshot.
func New() *Store {
	return &Store{current: model.EmptySnapshot()}
}

// Current returns the latest snapshot. Before any update it returns the
// empty default snapshot, never nil. Callers must not modify it.
func (s *Store) Current() *model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Version returns the number of updates applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Apply swaps in a new snapshot built from the current one and the update.
// Every sub-tree present in the update replaces its prior value wholesale;
// absent sub-trees are carried over unchanged.
func (s *Store) Apply(u model.Update) *model.Snapshot {
	s.mu.Lock()

	next := *s.current
	if u.Election != nil {
		e := *u.Election
		e.Candidates = cloneSlice(u.Election.Candidates)
		next.Election = e
	}
	if u.Insights != nil {
		next.Insights = cloneSlice(u.Insights)
	}
	if u.Demographics != nil {
		next.Demographics = model.Demographics{
			AgeGroups: cloneCounts(u.Demographics.AgeGroups),
			Gender:    cloneCounts(u.Demographics.Gender),
			Locations: cloneCounts(u.Demographics.Locations),
		}
	}
	if u.Transactions != nil {
		next.Transactions = cloneSlice(u.Transactions)
	}
	if u.Prediction != nil {
		p := *u.Prediction
		p.KeyFactors = cloneSlice(u.Prediction.KeyFactors)
		next.Prediction = p
	}
	if u.Visualization != nil {
		next.Visualization = cloneSlice(u.Visualization)
	}
	if u.Network != nil {
		next.Network = *u.Network
	}
	next.UpdatedAt = u.ReceivedAt
	next.Source = u.Source

	s.current = &next
	s.version++
	watchers := s.watchers
	s.watchers = nil
	s.mu.Unlock()

	for _, ch := range watchers {
		close(ch)
	}
	return &next
}

// Watch returns a channel that is closed after the next Apply.
func (s *Store) Watch() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.watchers = append(s.watchers, ch)
	return ch
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
