package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/backoff"
	"github.com/Guliveer/election-monitor-go/internal/gateway"
	"github.com/Guliveer/election-monitor-go/internal/logger"
	"github.com/Guliveer/election-monitor-go/internal/model"
	"github.com/Guliveer/election-monitor-go/internal/store"
	"github.com/Guliveer/election-monitor-go/internal/transport"
)

// fakeClock fires the first `fire` waits immediately and records every
// requested delay. Later waits never fire.
type fakeClock struct {
	mu     sync.Mutex
	delays []time.Duration
	fire   int
}

func (c *fakeClock) Now() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays = append(c.delays, d)
	if len(c.delays) > c.fire {
		return nil
	}
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.delays))
	copy(out, c.delays)
	return out
}

// fakeConn delivers its frames, then blocks until ctx ends or drop closes.
type fakeConn struct {
	mu      sync.Mutex
	emitted []string
	frames  []transport.Frame
	drop    chan struct{}
}

func newFakeConn(frames ...transport.Frame) *fakeConn {
	return &fakeConn{frames: frames, drop: make(chan struct{})}
}

func (f *fakeConn) Emit(event string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emitted = append(f.emitted, event)
	return nil
}

func (f *fakeConn) Run(ctx context.Context, handle transport.FrameHandler) error {
	for _, fr := range f.frames {
		handle(fr.Event, fr.Data)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.drop:
		return errors.New("connection reset")
	}
}

func (f *fakeConn) Close() {}

func (f *fakeConn) emittedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.emitted...)
}

// scriptedDialer fails the first `failures` dials, then returns conn.
type scriptedDialer struct {
	calls    atomic.Int32
	failures int32
	conn     *fakeConn
}

func (d *scriptedDialer) Dial(context.Context) (PushConn, error) {
	n := d.calls.Add(1)
	if d.conn == nil || n <= d.failures {
		return nil, errors.New("connection refused")
	}
	return d.conn, nil
}

type fakePoller struct {
	calls    atomic.Int32
	failures int32
	payload  string
}

func (p *fakePoller) Analytics(context.Context) (json.RawMessage, error) {
	n := p.calls.Add(1)
	if n <= p.failures {
		return nil, errors.New("503 service unavailable")
	}
	return json.RawMessage(p.payload), nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testOptions(clock Clock) Options {
	return Options{
		Reconnect:      backoff.Policy{Base: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 5},
		PollRetry:      backoff.Policy{Base: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 3},
		ConnectTimeout: time.Second,
		PollInterval:   10 * time.Second,
		Clock:          clock,
	}
}

const pollPayload = `{
	"election_data": {"candidates": [{"id": 1, "name": "Asha Rao", "votes": 120}, {"id": 2, "name": "Vikram Sen", "votes": 80}]},
	"live_analytics": {"ai_insights": ["Turnout above forecast"]}
}`

func TestChannel_BackoffThenPollingFallback(t *testing.T) {
	clock := &fakeClock{fire: 7}
	dialer := &scriptedDialer{}
	poller := &fakePoller{payload: pollPayload}
	st := store.New()

	ch := New(dialer, poller, testOptions(clock), logger.Discard())
	ch.Subscribe(func(u model.Update) { st.Apply(u) })

	var transitions []model.ConnectionState
	var tmu sync.Mutex
	ch.OnStateChange(func(_, to model.ConnectionState) {
		tmu.Lock()
		transitions = append(transitions, to)
		tmu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	waitFor(t, "three polls", func() bool { return poller.calls.Load() >= 3 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}

	if got := dialer.calls.Load(); got != 6 {
		t.Errorf("dials = %d, want 6 (initial + 5 reconnects)", got)
	}
	if ch.State() != model.StatePollingFallback {
		t.Errorf("state = %v, want polling_fallback", ch.State())
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second, 10 * time.Second, 10 * time.Second}
	got := clock.recorded()
	if len(got) < len(want) {
		t.Fatalf("delays = %v, want prefix %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, got[i], want[i])
		}
	}

	snap := st.Current()
	if snap.Source != model.SourcePoll {
		t.Errorf("snapshot source = %q, want poll", snap.Source)
	}
	if len(snap.Election.Candidates) != 2 || len(snap.Insights) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	tmu.Lock()
	last := transitions[len(transitions)-1]
	tmu.Unlock()
	if last != model.StatePollingFallback {
		t.Errorf("last transition = %v", last)
	}
}

func TestChannel_NoDialAfterFallback(t *testing.T) {
	clock := &fakeClock{fire: 100}
	dialer := &scriptedDialer{}
	poller := &fakePoller{payload: pollPayload}

	ch := New(dialer, poller, testOptions(clock), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	waitFor(t, "polling", func() bool { return poller.calls.Load() >= 20 })
	cancel()
	<-done

	if got := dialer.calls.Load(); got != 6 {
		t.Errorf("dials = %d after fallback, want 6", got)
	}
}

func TestChannel_SuccessResetsAttempts(t *testing.T) {
	clock := &fakeClock{fire: 10}
	conn := newFakeConn()
	dialer := &scriptedDialer{failures: 3, conn: conn}

	ch := New(dialer, &fakePoller{}, testOptions(clock), logger.Discard())

	var attemptAtConnect atomic.Int32
	attemptAtConnect.Store(-1)
	ch.OnStateChange(func(_, to model.ConnectionState) {
		if to == model.StateConnected {
			attemptAtConnect.Store(int32(ch.Attempt()))
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx) //nolint:errcheck

	waitFor(t, "connected", func() bool { return ch.State() == model.StateConnected })

	if got := attemptAtConnect.Load(); got != 0 {
		t.Errorf("attempt at connect = %d, want 0", got)
	}
	delays := clock.recorded()
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}

	waitFor(t, "connect requests", func() bool { return len(conn.emittedEvents()) == 2 })
	events := conn.emittedEvents()
	if events[0] != "request_live_data" || events[1] != "request_3d_data" {
		t.Errorf("emitted = %v", events)
	}

	// A drop after success starts again from the first delay.
	close(conn.drop)
	waitFor(t, "reconnect scheduled", func() bool { return len(clock.recorded()) >= 4 })
	if d := clock.recorded()[3]; d != 2*time.Second {
		t.Errorf("delay after drop = %v, want 2s", d)
	}
}

func TestChannel_PushFramesReachSubscribers(t *testing.T) {
	clock := &fakeClock{}
	conn := newFakeConn(
		transport.Frame{Event: "connection_status", Data: json.RawMessage(`{"status":"connected"}`)},
		transport.Frame{Event: "enhanced_voting_update", Data: json.RawMessage(`{"election_data":{"candidates":[{"id":1,"name":"Asha Rao","votes":10}]}}`)},
		transport.Frame{Event: "new_transaction", Data: json.RawMessage(`{"transaction":{"tx_hash":"0xabc","candidate_id":1}}`)},
	)
	dialer := &scriptedDialer{conn: conn}
	st := store.New()

	ch := New(dialer, &fakePoller{}, testOptions(clock), logger.Discard())
	ch.Subscribe(func(u model.Update) { st.Apply(u) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx) //nolint:errcheck

	waitFor(t, "two updates", func() bool { return st.Version() == 2 })

	snap := st.Current()
	if snap.Source != model.SourcePush {
		t.Errorf("source = %q", snap.Source)
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].Hash != "0xabc" {
		t.Errorf("transactions = %+v", snap.Transactions)
	}
	if snap.Election.Candidates[0].Votes != 10 {
		t.Errorf("candidates = %+v", snap.Election.Candidates)
	}
}

func TestChannel_PollRetriesThenDrops(t *testing.T) {
	clock := &fakeClock{fire: 100}
	poller := &fakePoller{failures: 100}
	ch := New(&scriptedDialer{}, poller, testOptions(clock), logger.Discard())

	var updates atomic.Int32
	ch.Subscribe(func(model.Update) { updates.Add(1) })

	ch.setState(model.StatePollingFallback)
	ch.pollOnce(context.Background())

	if got := poller.calls.Load(); got != 4 {
		t.Errorf("poll calls = %d, want 1 + 3 retries", got)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	got := clock.recorded()
	if len(got) != len(want) {
		t.Fatalf("retry delays = %v, want %v", got, want)
	}
	if updates.Load() != 0 {
		t.Error("failed poll must not dispatch an update")
	}
}

func TestChannel_PollAgainstGatewayHonoursRetryBound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := gateway.NewClient(srv.URL, time.Second,
		backoff.Policy{Base: time.Millisecond, MaxDelay: 4 * time.Millisecond, MaxAttempts: 3},
		logger.Discard())

	clock := &fakeClock{fire: 100}
	ch := New(&scriptedDialer{}, PollerFunc(client.AnalyticsOnce), testOptions(clock), logger.Discard())
	ch.pollOnce(context.Background())

	if got := hits.Load(); got != 4 {
		t.Errorf("one failing pull sent %d requests, want 1 + 3 retries", got)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if got := clock.recorded(); !slices.Equal(got, want) {
		t.Errorf("retry delays = %v, want %v", got, want)
	}
}

func TestChannel_HangingDialTimesOut(t *testing.T) {
	var sawDeadline atomic.Bool
	dialer := DialerFunc(func(ctx context.Context) (PushConn, error) {
		if _, ok := ctx.Deadline(); ok {
			sawDeadline.Store(true)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	clock := &fakeClock{fire: 0}
	opts := testOptions(clock)
	opts.ConnectTimeout = 20 * time.Millisecond
	ch := New(dialer, &fakePoller{}, opts, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()

	waitFor(t, "backoff after the hanging dial", func() bool { return len(clock.recorded()) == 1 })

	if !sawDeadline.Load() {
		t.Error("dial context carried no deadline")
	}
	if ch.Attempt() != 1 || ch.State() != model.StateDisconnected {
		t.Errorf("attempt=%d state=%s, want 1 disconnected", ch.Attempt(), ch.State())
	}
	if got := clock.recorded()[0]; got != 2*time.Second {
		t.Errorf("delay = %v, want 2s", got)
	}
	if !errors.Is(ch.LastError(), context.DeadlineExceeded) {
		t.Errorf("last error = %v, want deadline exceeded", ch.LastError())
	}

	cancel()
	<-done
}

func TestChannel_StalePollResultDiscarded(t *testing.T) {
	poller := &fakePoller{payload: pollPayload}
	ch := New(&scriptedDialer{}, poller, testOptions(&fakeClock{}), logger.Discard())

	var updates atomic.Int32
	ch.Subscribe(func(model.Update) { updates.Add(1) })

	// Still Connecting: a poll result has nowhere to go.
	ch.pollOnce(context.Background())
	if updates.Load() != 0 {
		t.Error("poll result applied outside polling fallback")
	}
}

func TestChannel_MalformedPayloadLeavesStoreAlone(t *testing.T) {
	st := store.New()
	ch := New(&scriptedDialer{}, &fakePoller{}, testOptions(&fakeClock{}), logger.Discard())
	ch.Subscribe(func(u model.Update) { st.Apply(u) })

	if err := ch.HandleMessage("enhanced_voting_update", json.RawMessage(`{"election_data":{"candidates":[{"name":"A","votes":5}]}}`)); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	before := st.Current()

	bad := []string{
		`{"election_data":{}}`,
		`{"election_data":{"candidates":[{"name":"A","votes":-1}]}}`,
		`{"election_data":{"candidates":[]},"ai_insights":[{"title":"x","confidence":1.5}]}`,
		`not json`,
	}
	for _, payload := range bad {
		err := ch.HandleMessage("enhanced_voting_update", json.RawMessage(payload))
		if !errors.Is(err, ErrMalformedPayload) {
			t.Errorf("payload %s: err = %v, want ErrMalformedPayload", payload, err)
		}
	}

	if st.Current() != before || st.Version() != 1 {
		t.Error("malformed payload altered the store")
	}
}

func TestChannel_BackToBackUpdatesKeepAbsentInsights(t *testing.T) {
	st := store.New()
	ch := New(&scriptedDialer{}, &fakePoller{}, testOptions(&fakeClock{}), logger.Discard())
	ch.Subscribe(func(u model.Update) { st.Apply(u) })

	first := `{
		"election_data": {"candidates": [{"id": 1, "name": "Asha Rao", "votes": 100}], "current_turnout": 100},
		"ai_insights": [{"type": "trend", "title": "Early lead", "confidence": 0.8, "importance": 6}]
	}`
	second := `{
		"election_data": {"candidates": [{"id": 1, "name": "Asha Rao", "votes": 140}], "current_turnout": 140}
	}`

	if err := ch.HandleMessage("enhanced_voting_update", json.RawMessage(first)); err != nil {
		t.Fatal(err)
	}
	if err := ch.HandleMessage("enhanced_voting_update", json.RawMessage(second)); err != nil {
		t.Fatal(err)
	}

	snap := st.Current()
	if len(snap.Insights) != 1 || snap.Insights[0].Title != "Early lead" {
		t.Errorf("insights = %+v, want first message's", snap.Insights)
	}
	if snap.Election.Candidates[0].Votes != 140 || snap.Election.CurrentTurnout != 140 {
		t.Errorf("election = %+v, want second message's", snap.Election)
	}
}

func TestChannel_InformationalEventsIgnored(t *testing.T) {
	ch := New(&scriptedDialer{}, &fakePoller{}, testOptions(&fakeClock{}), logger.Discard())
	var updates atomic.Int32
	ch.Subscribe(func(model.Update) { updates.Add(1) })

	for _, ev := range []string{"connection_status", "error", "some_future_event"} {
		if err := ch.HandleMessage(ev, json.RawMessage(`{"message":"hi"}`)); err != nil {
			t.Errorf("%s: %v", ev, err)
		}
	}
	if updates.Load() != 0 {
		t.Errorf("informational events produced %d updates", updates.Load())
	}
}
