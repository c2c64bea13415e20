package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/gateway"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/search"
	"github.com/Guliveer/election-monitor-go/internal/store"
)

type fakeSource struct {
	historicalErr error
	slowDemo      bool
}

func (f *fakeSource) Constituencies(context.Context) ([]string, error) {
	return []string{"Pune", "Baramati"}, nil
}

func (f *fakeSource) HistoricalVotes(context.Context) (*model.HistoricalSeries, error) {
	if f.historicalErr != nil {
		return nil, f.historicalErr
	}
	return &model.HistoricalSeries{Labels: []int{2014, 2019}, Data: []int{10, 20}}, nil
}

func (f *fakeSource) Transactions(context.Context) (*gateway.TransactionFeed, error) {
	return &gateway.TransactionFeed{Transactions: []gateway.FeedTransaction{{Hash: "0x1"}}, Count: 1}, nil
}

func (f *fakeSource) Demographics(ctx context.Context) (*gateway.DemographicReport, error) {
	if f.slowDemo {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &gateway.DemographicReport{Insights: []model.Insight{}}, nil
}

func votesUpdate() model.Update {
	return model.Update{
		Kind:       model.UpdateVotes,
		Source:     model.SourcePush,
		Election:   &model.ElectionTotals{Candidates: []model.Candidate{{ID: 1, Name: "Asha Rao", Votes: 3}}},
		ReceivedAt: time.Now(),
	}
}

func TestLoader_SnapshotArrivesAndPanelsIsolated(t *testing.T) {
	st := store.New()
	ix := search.NewIndex(nil)
	src := &fakeSource{historicalErr: errors.New("upstream 500")}
	l := New(src, st, ix, time.Second, logger.Discard())

	go func() {
		time.Sleep(20 * time.Millisecond)
		st.Apply(votesUpdate())
	}()

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if l.Notice() != nil {
		t.Error("no notice expected after success")
	}

	panels := l.Panels()
	if panels[PanelHistorical].Loaded || panels[PanelHistorical].Error == "" {
		t.Errorf("historical = %+v, want recorded failure", panels[PanelHistorical])
	}
	for _, p := range []Panel{PanelConstituencies, PanelTransactions, PanelDemographics} {
		if !panels[p].Loaded {
			t.Errorf("panel %s not loaded: %+v", p, panels[p])
		}
	}
	if ix.Len() != 2 {
		t.Errorf("index has %d names", ix.Len())
	}
	if l.TransactionFeed() == nil || l.DemographicReport() == nil || l.Historical() != nil {
		t.Error("panel data mismatch")
	}
}

func TestLoader_TimeoutRaisesDismissableNotice(t *testing.T) {
	st := store.New()
	log := logger.Discard()

	var mu sync.Mutex
	var events []model.Event
	log.SetNotifyFunc(func(_ context.Context, _ string, ev model.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	l := New(&fakeSource{slowDemo: true}, st, search.NewIndex(nil), 30*time.Millisecond, log)

	start := time.Now()
	err := l.Run(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Run did not respect its bound")
	}

	n := l.Notice()
	if n == nil || !n.Retryable || n.ID == "" {
		t.Fatalf("notice = %+v", n)
	}
	if l.Panels()[PanelDemographics].Loaded {
		t.Error("slow panel should not be loaded")
	}

	mu.Lock()
	if len(events) != 1 || events[0] != model.EventBootstrapFailed {
		t.Errorf("events = %v", events)
	}
	mu.Unlock()

	if l.Dismiss("other-id") {
		t.Error("dismissed with the wrong id")
	}
	if !l.Dismiss(n.ID) || l.Notice() != nil {
		t.Error("notice not dismissed")
	}
}

func TestLoader_RetryAfterTimeout(t *testing.T) {
	st := store.New()
	l := New(&fakeSource{}, st, search.NewIndex(nil), 30*time.Millisecond, logger.Discard())

	if err := l.Run(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("first run err = %v", err)
	}
	if l.Notice() == nil {
		t.Fatal("expected notice")
	}

	st.Apply(votesUpdate())

	if err := l.Retry(context.Background()); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if l.Notice() != nil {
		t.Error("notice should clear after a successful retry")
	}
}

func TestLoader_AlreadyHasSnapshot(t *testing.T) {
	st := store.New()
	st.Apply(votesUpdate())
	l := New(&fakeSource{}, st, search.NewIndex(nil), time.Second, logger.Discard())

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
