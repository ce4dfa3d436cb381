package metrics

import (
	"time"
)

// ExpanddMetrics holds all expandd-specific metrics.
type ExpanddMetrics struct {
	registry *Registry

	// Counters
	EventsTotal          *Counter
	EventsDropped        *Counter
	MatchesTotal         *Counter
	ExpansionsTotal      *Counter
	ExpansionsFailed     *Counter
	ClipboardFallbacks   *Counter
	PlaceholderFailures  *Counter
	AmbiguousTriggers    *Counter
	SnapshotPublishTotal *Counter
	ErrorsTotal          *Counter

	// Gauges
	ActiveSnippets  *Gauge
	SnapshotVersion *Gauge
	ActiveContexts  *Gauge
	EngineEnabled   *Gauge
	UptimeSeconds   *Gauge

	// Histograms
	ExpansionDuration *Histogram
	ResolveDuration   *Histogram
	JournalDuration   *Histogram
}

// startTime records when metrics were initialized.
var startTime = time.Now()

// NewExpanddMetrics creates and registers all expandd metrics.
func NewExpanddMetrics(registry *Registry) *ExpanddMetrics {
	if registry == nil {
		registry = Default()
	}

	m := &ExpanddMetrics{
		registry: registry,

		EventsTotal: registry.RegisterCounter(
			"events_total",
			"Total number of keyboard events observed",
			nil,
		),
		EventsDropped: registry.RegisterCounter(
			"events_dropped_total",
			"Total number of keyboard events dropped due to queue overflow",
			nil,
		),
		MatchesTotal: registry.RegisterCounter(
			"matches_total",
			"Total number of trigger matches detected",
			nil,
		),
		ExpansionsTotal: registry.RegisterCounter(
			"expansions_total",
			"Total number of expansions delivered",
			nil,
		),
		ExpansionsFailed: registry.RegisterCounter(
			"expansions_failed_total",
			"Total number of expansion deliveries that failed",
			nil,
		),
		ClipboardFallbacks: registry.RegisterCounter(
			"clipboard_fallbacks_total",
			"Total number of expansions delivered via clipboard paste",
			nil,
		),
		PlaceholderFailures: registry.RegisterCounter(
			"placeholder_failures_total",
			"Total number of placeholders left literal after a resolver failure",
			nil,
		),
		AmbiguousTriggers: registry.RegisterCounter(
			"ambiguous_triggers_total",
			"Total number of triggers excluded from a snapshot as ambiguous",
			nil,
		),
		SnapshotPublishTotal: registry.RegisterCounter(
			"snapshot_publish_total",
			"Total number of trigger snapshot publications",
			nil,
		),
		ErrorsTotal: registry.RegisterCounter(
			"errors_total",
			"Total number of errors",
			nil,
		),

		ActiveSnippets: registry.RegisterGauge(
			"active_snippets",
			"Number of enabled snippets in the current snapshot",
			nil,
		),
		SnapshotVersion: registry.RegisterGauge(
			"snapshot_version",
			"Monotonic version of the published trigger snapshot",
			nil,
		),
		ActiveContexts: registry.RegisterGauge(
			"active_contexts",
			"Number of input contexts with a live match buffer",
			nil,
		),
		EngineEnabled: registry.RegisterGauge(
			"engine_enabled",
			"Whether expansion is currently enabled (1) or suspended (0)",
			nil,
		),
		UptimeSeconds: registry.RegisterGauge(
			"uptime_seconds",
			"Number of seconds the daemon has been running",
			nil,
		),

		ExpansionDuration: registry.RegisterHistogram(
			"expansion_duration_seconds",
			"Duration of expansion delivery in seconds",
			nil,
			DurationBuckets,
		),
		ResolveDuration: registry.RegisterHistogram(
			"resolve_duration_seconds",
			"Duration of template resolution in seconds",
			nil,
			DurationBuckets,
		),
		JournalDuration: registry.RegisterHistogram(
			"journal_duration_seconds",
			"Duration of journal writes in seconds",
			nil,
			DurationBuckets,
		),
	}

	return m
}

// RecordEvent records an observed keyboard event.
func (m *ExpanddMetrics) RecordEvent() {
	m.EventsTotal.Inc()
}

// RecordDropped records keyboard events lost to queue overflow.
func (m *ExpanddMetrics) RecordDropped(n uint64) {
	m.EventsDropped.Add(n)
}

// RecordMatch records a detected trigger match.
func (m *ExpanddMetrics) RecordMatch() {
	m.MatchesTotal.Inc()
}

// RecordExpansion records a delivered expansion.
func (m *ExpanddMetrics) RecordExpansion(duration time.Duration, pasted bool) {
	m.ExpansionsTotal.Inc()
	m.ExpansionDuration.ObserveDuration(duration)
	if pasted {
		m.ClipboardFallbacks.Inc()
	}
}

// RecordExpansionFailure records a failed expansion delivery.
func (m *ExpanddMetrics) RecordExpansionFailure() {
	m.ExpansionsFailed.Inc()
	m.ErrorsTotal.Inc()
}

// RecordPlaceholderFailure records a placeholder left literal.
func (m *ExpanddMetrics) RecordPlaceholderFailure() {
	m.PlaceholderFailures.Inc()
}

// RecordPublish records a snapshot publication.
func (m *ExpanddMetrics) RecordPublish(activeSnippets, ambiguous int) {
	m.SnapshotPublishTotal.Inc()
	m.SnapshotVersion.Inc()
	m.ActiveSnippets.Set(int64(activeSnippets))
	m.AmbiguousTriggers.Add(uint64(ambiguous))
}

// StartResolveTimer returns a timer for template resolution.
func (m *ExpanddMetrics) StartResolveTimer() *HistogramTimer {
	return m.ResolveDuration.Timer()
}

// StartJournalTimer returns a timer for journal writes.
func (m *ExpanddMetrics) StartJournalTimer() *HistogramTimer {
	return m.JournalDuration.Timer()
}

// SetEnabled records whether expansion is enabled.
func (m *ExpanddMetrics) SetEnabled(enabled bool) {
	if enabled {
		m.EngineEnabled.Set(1)
	} else {
		m.EngineEnabled.Set(0)
	}
}

// SetActiveContexts records the number of live match buffers.
func (m *ExpanddMetrics) SetActiveContexts(n int) {
	m.ActiveContexts.Set(int64(n))
}

// UpdateUptime updates the uptime metric.
func (m *ExpanddMetrics) UpdateUptime() {
	m.UptimeSeconds.Set(int64(time.Since(startTime).Seconds()))
}

// Snapshot returns the key metrics for the status command.
func (m *ExpanddMetrics) Snapshot() map[string]interface{} {
	m.UpdateUptime()
	return map[string]interface{}{
		"events_total":              m.EventsTotal.Value(),
		"events_dropped_total":      m.EventsDropped.Value(),
		"matches_total":             m.MatchesTotal.Value(),
		"expansions_total":          m.ExpansionsTotal.Value(),
		"expansions_failed_total":   m.ExpansionsFailed.Value(),
		"clipboard_fallbacks_total": m.ClipboardFallbacks.Value(),
		"active_snippets":           m.ActiveSnippets.Value(),
		"snapshot_version":          m.SnapshotVersion.Value(),
		"engine_enabled":            m.EngineEnabled.Value(),
		"uptime_seconds":            m.UptimeSeconds.Value(),
		"expansion_avg_seconds":     m.ExpansionDuration.Mean(),
	}
}

// Global expandd metrics instance.
var defaultExpanddMetrics *ExpanddMetrics

// GetMetrics returns the global expandd metrics instance.
func GetMetrics() *ExpanddMetrics {
	if defaultExpanddMetrics == nil {
		defaultExpanddMetrics = NewExpanddMetrics(Default())
	}
	return defaultExpanddMetrics
}

// InitMetrics initializes the global expandd metrics with a custom registry.
func InitMetrics(registry *Registry) *ExpanddMetrics {
	defaultExpanddMetrics = NewExpanddMetrics(registry)
	return defaultExpanddMetrics
}
