package search

import (
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

var names = []string{"Pune", "Baramati", "Nagpur South", "Nagpur North", "pimpri", "Pune", " ", "Thane"}

func TestIndex_Filter(t *testing.T) {
	ix := NewIndex(names)

	if ix.Len() != 6 {
		t.Errorf("Len = %d, want 6 after dropping duplicates and blanks", ix.Len())
	}

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"nagpur", 0, []string{"Nagpur North", "Nagpur South"}},
		{"PI", 0, []string{"pimpri"}},
		{"pur", 0, []string{"Nagpur North", "Nagpur South"}},
		{"  PUNE ", 0, []string{"Pune"}},
		{"", 3, []string{"Baramati", "Nagpur North", "Nagpur South"}},
		{"zzz", 0, []string{}},
	}
	for _, tt := range tests {
		got := ix.Filter(tt.query, tt.limit)
		if !slices.Equal(got, tt.want) {
			t.Errorf("Filter(%q, %d) = %v, want %v", tt.query, tt.limit, got, tt.want)
		}
	}
}

func TestIndex_Replace(t *testing.T) {
	ix := NewIndex(nil)
	if got := ix.Filter("", 0); len(got) != 0 || got == nil {
		t.Errorf("empty index Filter = %#v, want empty non-nil", got)
	}
	ix.Replace([]string{"Kothrud"})
	if got := ix.Filter("kot", 0); !slices.Equal(got, []string{"Kothrud"}) {
		t.Errorf("after Replace = %v", got)
	}
}

func TestIndex_ReplaceDropsDuplicatesAcrossCaseVariants(t *testing.T) {
	ix := NewIndex([]string{"Pune", "pune", "Pune", "PUNE", "pune", "Pune"})
	got := ix.Filter("", 0)
	if want := []string{"PUNE", "Pune", "pune"}; !slices.Equal(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}

func TestDebouncer_RunsOnlyLast(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var ran atomic.Int32
	var last atomic.Value

	for _, q := range []string{"n", "na", "nag"} {
		q := q
		d.Trigger(func() {
			ran.Add(1)
			last.Store(q)
		})
	}

	time.Sleep(80 * time.Millisecond)
	if ran.Load() != 1 || last.Load() != "nag" {
		t.Errorf("ran %d times, last %v", ran.Load(), last.Load())
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var ran atomic.Bool
	d.Trigger(func() { ran.Store(true) })
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	if ran.Load() {
		t.Error("stopped debouncer still ran")
	}
}

func TestSearcher_Latest(t *testing.T) {
	s := NewSearcher(NewIndex(names), 10*time.Millisecond, 5)
	defer s.Close()

	if got := s.Latest(); got.Query != "" || got.Matches == nil {
		t.Errorf("initial result = %+v", got)
	}

	s.Submit("th")
	s.Submit("tha")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && s.Latest().Query == "" {
		time.Sleep(5 * time.Millisecond)
	}
	got := s.Latest()
	if got.Query != "tha" || !slices.Equal(got.Matches, []string{"Thane"}) {
		t.Errorf("Latest = %+v", got)
	}
}
