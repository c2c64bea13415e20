// Package search implements constituency search over the client-held
// constituency list: case-insensitive substring matching and a debouncer
// that coalesces rapid query updates.
package search

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/constants"
)

// Index holds the constituency names in sorted order.
type Index struct {
	mu    sync.RWMutex
	names []string
	lower []string
}

// NewIndex builds an index over names.
func NewIndex(names []string) *Index {
	ix := &Index{}
	ix.Replace(names)
	return ix
}

// Replace swaps the indexed names. Duplicates and blank names are dropped.
func (ix *Index) Replace(names []string) {
	sorted := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			sorted = append(sorted, n)
		}
	}
	slices.SortFunc(sorted, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	sorted = slices.Compact(sorted)

	lower := make([]string, len(sorted))
	for i, n := range sorted {
		lower[i] = strings.ToLower(n)
	}

	ix.mu.Lock()
	ix.names = sorted
	ix.lower = lower
	ix.mu.Unlock()
}

// Len returns the number of indexed names.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.names)
}

// Filter returns up to limit names containing query, case-insensitively, in
// alphabetical order. An empty query matches everything. limit <= 0 means
// the default limit.
func (ix *Index) Filter(query string, limit int) []string {
	if limit <= 0 {
		limit = constants.DefaultSearchLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]string, 0, min(limit, len(ix.names)))
	for i, l := range ix.lower {
		if strings.Contains(l, q) {
			out = append(out, ix.names[i])
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Debouncer runs only the last function triggered within a quiet period.
type Debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	timer *time.Timer
	seq   uint64
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = constants.DefaultSearchDebounce
	}
	return &Debouncer{wait: wait}
}

// Trigger schedules fn after the quiet period, cancelling any function
// scheduled earlier that has not yet run.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		current := seq == d.seq
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Stop cancels any pending function.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Result is the outcome of a debounced query.
type Result struct {
	Query   string    `json:"query"`
	Matches []string  `json:"matches"`
	RanAt   time.Time `json:"ran_at,omitzero"`
}

// Searcher runs debounced queries against an Index and keeps the latest
// result for readers.
type Searcher struct {
	index    *Index
	debounce *Debouncer
	limit    int

	mu     sync.RWMutex
	latest Result
}

// NewSearcher creates a Searcher over index.
func NewSearcher(index *Index, debounce time.Duration, limit int) *Searcher {
	return &Searcher{
		index:    index,
		debounce: NewDebouncer(debounce),
		limit:    limit,
		latest:   Result{Matches: []string{}},
	}
}

// Submit records a query update. Only the last query of a burst runs.
func (s *Searcher) Submit(query string) {
	s.debounce.Trigger(func() {
		res := Result{Query: query, Matches: s.index.Filter(query, s.limit), RanAt: time.Now()}
		s.mu.Lock()
		s.latest = res
		s.mu.Unlock()
	})
}

// Latest returns the result of the most recent query that ran.
func (s *Searcher) Latest() Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Close cancels any pending query.
func (s *Searcher) Close() {
	s.debounce.Stop()
}
