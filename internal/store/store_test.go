package store

import (
	"sync"
	"testing"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/model"
)

func TestStore_CurrentBeforeAnyUpdate(t *testing.T) {
	s := New()
	snap := s.Current()
	if snap == nil {
		t.Fatal("Current returned nil before any update")
	}
	if !snap.IsEmpty() {
		t.Error("initial snapshot should be empty")
	}
	if snap.Election.Candidates == nil || snap.Insights == nil || snap.Demographics.Gender == nil {
		t.Error("initial snapshot collections must be non-nil")
	}
	if s.Version() != 0 {
		t.Errorf("version = %d, want 0", s.Version())
	}
}

func TestStore_AbsentSubtreeIsKept(t *testing.T) {
	s := New()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	s.Apply(model.Update{
		Kind:       model.UpdateVotes,
		Source:     model.SourcePush,
		Election:   &model.ElectionTotals{Candidates: []model.Candidate{{ID: 1, Name: "A", Votes: 10}}},
		Insights:   []model.Insight{{Title: "first", Confidence: 0.9, Importance: 7}},
		ReceivedAt: t0,
	})
	s.Apply(model.Update{
		Kind:       model.UpdateVotes,
		Source:     model.SourcePush,
		Election:   &model.ElectionTotals{Candidates: []model.Candidate{{ID: 1, Name: "A", Votes: 25}}},
		ReceivedAt: t0.Add(time.Second),
	})

	snap := s.Current()
	if len(snap.Insights) != 1 || snap.Insights[0].Title != "first" {
		t.Errorf("insights = %+v, want first message's insights kept", snap.Insights)
	}
	if snap.Election.Candidates[0].Votes != 25 {
		t.Errorf("votes = %d, want 25 from second message", snap.Election.Candidates[0].Votes)
	}
	if !snap.UpdatedAt.Equal(t0.Add(time.Second)) {
		t.Errorf("updated at = %v", snap.UpdatedAt)
	}
	if s.Version() != 2 {
		t.Errorf("version = %d, want 2", s.Version())
	}
}

func TestStore_PresentSubtreeReplacesWithoutMerging(t *testing.T) {
	s := New()
	s.Apply(model.Update{Demographics: &model.Demographics{
		AgeGroups: map[string]int{"18-25": 4, "26-35": 6},
		Gender:    map[string]int{"F": 5},
	}})
	s.Apply(model.Update{Demographics: &model.Demographics{
		AgeGroups: map[string]int{"50+": 2},
	}})

	d := s.Current().Demographics
	if len(d.AgeGroups) != 1 || d.AgeGroups["50+"] != 2 {
		t.Errorf("age groups = %v, want only the second payload's buckets", d.AgeGroups)
	}
	if len(d.Gender) != 0 {
		t.Errorf("gender = %v, want replaced with empty", d.Gender)
	}
}

func TestStore_SnapshotsAreImmutable(t *testing.T) {
	s := New()
	cands := []model.Candidate{{Name: "A", Votes: 1}}
	s.Apply(model.Update{Election: &model.ElectionTotals{Candidates: cands}})
	before := s.Current()

	cands[0].Votes = 99
	s.Apply(model.Update{Insights: []model.Insight{{Title: "x"}}})

	if before.Election.Candidates[0].Votes != 1 {
		t.Error("stored snapshot aliased the caller's slice")
	}
	if len(before.Insights) != 0 {
		t.Error("earlier snapshot was mutated by a later Apply")
	}
}

func TestStore_WatchFiresOnApply(t *testing.T) {
	s := New()
	ch := s.Watch()

	select {
	case <-ch:
		t.Fatal("watch fired before Apply")
	default:
	}

	s.Apply(model.Update{Insights: []model.Insight{}})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("watch did not fire after Apply")
	}
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if s.Current() == nil {
					t.Error("nil snapshot")
					return
				}
			}
		}()
	}
	for i := 0; i < 100; i++ {
		s.Apply(model.Update{Election: &model.ElectionTotals{CurrentTurnout: i}})
	}
	wg.Wait()

	if s.Current().Election.CurrentTurnout != 99 {
		t.Errorf("turnout = %d", s.Current().Election.CurrentTurnout)
	}
}
