package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	c := NewCounter("test_total", "test counter", nil)
	c.Inc()
	c.Add(4)
	if got := c.Value(); got != 5 {
		t.Errorf("Value() = %d, want 5", got)
	}
}

func TestGauge(t *testing.T) {
	g := NewGauge("test_gauge", "test gauge", nil)
	g.Set(10)
	g.Inc()
	g.Dec()
	g.Add(-3)
	if got := g.Value(); got != 7 {
		t.Errorf("Value() = %d, want 7", got)
	}
}

func TestHistogramObserve(t *testing.T) {
	h := NewHistogram("test_seconds", "test histogram", nil, []float64{0.01, 0.1, 1})
	h.Observe(0.005)
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	if got := h.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
	if got := h.Sum(); got != 5.555 {
		t.Errorf("Sum() = %g, want 5.555", got)
	}
}

func TestRegistryDeduplicates(t *testing.T) {
	r := NewRegistry("expandd")
	a := r.RegisterCounter("expansions_total", "help", nil)
	b := r.RegisterCounter("expansions_total", "other help", nil)
	if a != b {
		t.Error("registering the same counter name twice should return the same counter")
	}
	if a.Name() != "expandd_expansions_total" {
		t.Errorf("Name() = %q, want namespace prefix", a.Name())
	}
}

func TestWritePrometheus(t *testing.T) {
	r := NewRegistry("expandd")
	c := r.RegisterCounter("expansions_total", "Total expansions", nil)
	c.Add(3)
	g := r.RegisterGauge("active_snippets", "Active snippets", nil)
	g.Set(12)
	h := r.RegisterHistogram("expansion_duration_seconds", "Expansion duration", nil, []float64{0.01, 0.1})
	h.Observe(0.005)
	h.Observe(0.05)

	var sb strings.Builder
	if err := r.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		"# TYPE expandd_expansions_total counter",
		"expandd_expansions_total 3",
		"expandd_active_snippets 12",
		`expandd_expansion_duration_seconds_bucket{le="0.01"} 1`,
		`expandd_expansion_duration_seconds_bucket{le="0.1"} 2`,
		`expandd_expansion_duration_seconds_bucket{le="+Inf"} 2`,
		"expandd_expansion_duration_seconds_count 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLabelsString(t *testing.T) {
	l := Labels{"b": "2", "a": "1"}
	if got := l.String(); got != `{a="1",b="2"}` {
		t.Errorf("String() = %q", got)
	}
	if got := Labels(nil).String(); got != "" {
		t.Errorf("nil labels String() = %q, want empty", got)
	}
}

func TestExpanddMetrics(t *testing.T) {
	r := NewRegistry("expandd")
	m := NewExpanddMetrics(r)

	m.RecordEvent()
	m.RecordMatch()
	m.RecordExpansion(2*time.Millisecond, true)
	m.RecordExpansion(1*time.Millisecond, false)
	m.RecordExpansionFailure()
	m.RecordPublish(8, 1)
	m.SetEnabled(true)

	if got := m.ExpansionsTotal.Value(); got != 2 {
		t.Errorf("ExpansionsTotal = %d, want 2", got)
	}
	if got := m.ClipboardFallbacks.Value(); got != 1 {
		t.Errorf("ClipboardFallbacks = %d, want 1", got)
	}
	if got := m.ExpansionsFailed.Value(); got != 1 {
		t.Errorf("ExpansionsFailed = %d, want 1", got)
	}
	if got := m.ActiveSnippets.Value(); got != 8 {
		t.Errorf("ActiveSnippets = %d, want 8", got)
	}
	if got := m.SnapshotVersion.Value(); got != 1 {
		t.Errorf("SnapshotVersion = %d, want 1", got)
	}
	if got := m.EngineEnabled.Value(); got != 1 {
		t.Errorf("EngineEnabled = %d, want 1", got)
	}

	snap := m.Snapshot()
	if snap["expansions_total"].(uint64) != 2 {
		t.Error("Snapshot missing expansions_total")
	}
}
