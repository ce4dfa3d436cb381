// Package engine runs the expansion pipeline: keyboard events from the
// hook feed the matcher against the published trigger snapshot, and a
// confirmed match is resolved and handed to the injector.
//
// The pipeline is a single goroutine. Snapshot publication happens on
// other goroutines through an atomic pointer swap, so a reload never
// blocks or tears a match in progress: every event sees exactly one
// snapshot, either the old or the new.
package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"expandd/internal/hook"
	"expandd/internal/inject"
	"expandd/internal/logging"
	"expandd/internal/matcher"
	"expandd/internal/metrics"
	"expandd/internal/resolver"
	"expandd/internal/trigger"
)

// Journal persists a record of each attempted expansion. Records carry
// lengths and names, never the expanded text itself.
type Journal interface {
	Record(ctx context.Context, rec Record) error
}

// Record describes one attempted expansion.
type Record struct {
	Timestamp   time.Time
	SnippetName string
	Trigger     string
	DeleteCount int
	TextLen     int
	Pasted      bool
	Err         string
}

// Config wires the engine's collaborators. Hook and Injector are
// required; nil Resolver, Metrics, or Logger get defaults, and a nil
// Journal disables journaling.
type Config struct {
	Hook     hook.Hook
	Injector inject.Injector
	Resolver *resolver.Resolver
	Journal  Journal
	Metrics  *metrics.ExpanddMetrics
	Logger   *logging.Logger

	// ApplyTimeout bounds a single delivery. Zero means 5 seconds.
	ApplyTimeout time.Duration
}

// Engine is the expansion pipeline.
type Engine struct {
	hk       hook.Hook
	injector inject.Injector
	resolver *resolver.Resolver
	journal  Journal
	met      *metrics.ExpanddMetrics
	log      *logging.Logger
	timeout  time.Duration

	matcher  *matcher.Matcher
	snapshot atomic.Pointer[trigger.Snapshot]
	enabled  atomic.Bool
	running  atomic.Bool

	expansions  atomic.Uint64
	failures    atomic.Uint64
	lastDropped atomic.Uint64
}

var errHookRequired = errors.New("engine: hook and injector are required")

// New creates an engine with an empty trigger snapshot. Expansion
// starts enabled.
func New(cfg Config) (*Engine, error) {
	if cfg.Hook == nil || cfg.Injector == nil {
		return nil, errHookRequired
	}
	if cfg.Resolver == nil {
		cfg.Resolver = resolver.New(nil, resolver.Env{})
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.GetMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.ApplyTimeout <= 0 {
		cfg.ApplyTimeout = 5 * time.Second
	}

	e := &Engine{
		hk:       cfg.Hook,
		injector: cfg.Injector,
		resolver: cfg.Resolver,
		journal:  cfg.Journal,
		met:      cfg.Metrics,
		log:      cfg.Logger.WithComponent("engine"),
		timeout:  cfg.ApplyTimeout,
		matcher:  matcher.New(),
	}
	e.snapshot.Store(trigger.NewEmpty())
	e.enabled.Store(true)
	e.met.SetEnabled(true)
	return e, nil
}

// Publish atomically replaces the trigger snapshot. Warnings from the
// build are logged and returned; the previous snapshot serves matching
// until the swap completes.
func (e *Engine) Publish(snippets []trigger.Snippet, opts trigger.Options) []trigger.Warning {
	snap, warnings := trigger.Build(snippets, opts)
	e.snapshot.Store(snap)

	for _, w := range warnings {
		e.log.Warn("trigger excluded from snapshot",
			"triggers", w.Triggers,
			"reason", w.Reason)
	}
	e.met.RecordPublish(snap.Len(), len(warnings))
	e.log.Info("snapshot published",
		"snippets", snap.Len(),
		"excluded", len(warnings))
	return warnings
}

// Snapshot returns the currently published snapshot.
func (e *Engine) Snapshot() *trigger.Snapshot {
	return e.snapshot.Load()
}

// SetEnabled toggles expansion. Disabling clears every match buffer so
// a half-typed trigger cannot fire after re-enabling.
func (e *Engine) SetEnabled(enabled bool) {
	if e.enabled.Swap(enabled) == enabled {
		return
	}
	if !enabled {
		e.matcher.ResetAll()
	}
	e.met.SetEnabled(enabled)
	e.log.Info("expansion toggled", "enabled", enabled)
}

// Enabled reports whether expansion is active.
func (e *Engine) Enabled() bool {
	return e.enabled.Load()
}

// Stats is a point-in-time view for the status command.
type Stats struct {
	Enabled        bool   `json:"enabled"`
	ActiveSnippets int    `json:"active_snippets"`
	Expansions     uint64 `json:"expansions"`
	Failures       uint64 `json:"failures"`
	EventsDropped  uint64 `json:"events_dropped"`
}

// Stats returns current pipeline counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Enabled:        e.enabled.Load(),
		ActiveSnippets: e.snapshot.Load().Len(),
		Expansions:     e.expansions.Load(),
		Failures:       e.failures.Load(),
		EventsDropped:  e.hk.Dropped(),
	}
}

// Run starts the hook and processes events until ctx is cancelled or
// the hook's event channel closes. It blocks; callers run it in a
// goroutine.
func (e *Engine) Run(ctx context.Context) error {
	if e.running.Swap(true) {
		return errors.New("engine: already running")
	}
	defer e.running.Store(false)

	if err := e.hk.Start(ctx); err != nil {
		return err
	}
	defer e.hk.Stop()

	e.log.Info("pipeline started")

	events := e.hk.Events()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("pipeline stopped", "reason", "context cancelled")
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				e.log.Info("pipeline stopped", "reason", "hook closed")
				return nil
			}
			e.observe(ctx, ev)
		}
	}
}

func (e *Engine) observe(ctx context.Context, ev hook.Event) {
	e.met.RecordEvent()
	e.reportDropped()

	snap := e.snapshot.Load()

	if !e.enabled.Load() {
		// Keep buffers empty while suspended.
		e.matcher.Reset(ev.Context)
		return
	}

	res, ok := e.matcher.Observe(snap, ev)
	if !ok {
		return
	}
	e.met.RecordMatch()
	e.expand(ctx, ev.Context, res)
}

// reportDropped surfaces hook queue overflow. Dropped events mean the
// rolling buffers may be missing characters, so every context is reset
// rather than risking a match against a stale sequence.
func (e *Engine) reportDropped() {
	total := e.hk.Dropped()
	last := e.lastDropped.Load()
	if total == last {
		return
	}
	if e.lastDropped.CompareAndSwap(last, total) {
		delta := total - last
		e.met.RecordDropped(delta)
		e.log.Warn("input events dropped", "count", delta)
		e.matcher.ResetAll()
	}
}

func (e *Engine) expand(ctx context.Context, id hook.ContextID, res trigger.Result) {
	start := time.Now()

	resolveTimer := e.met.StartResolveTimer()
	req, warnings := e.resolver.Resolve(res.Snippet, res.MatchedLen)
	resolveTimer.Stop()

	if res.Delimiter != 0 {
		// The deletion span swallowed the typed delimiter; give it
		// back after the expansion.
		req.Text += string(res.Delimiter)
	}

	for _, w := range warnings {
		e.met.RecordPlaceholderFailure()
		e.log.Warn("placeholder left literal",
			"placeholder", w.Placeholder,
			"snippet", res.Snippet.Name)
	}

	applyCtx, cancel := context.WithTimeout(ctx, e.timeout)
	pasted, err := e.injector.Apply(applyCtx, req)
	cancel()

	duration := time.Since(start)

	if err != nil {
		// No retry: the characters on screen are in an unknown state
		// and a second delete pass could eat the user's own text.
		e.failures.Add(1)
		e.met.RecordExpansionFailure()

		var derr *inject.DeliveryError
		if errors.As(err, &derr) {
			e.log.Error("expansion delivery failed",
				"snippet", res.Snippet.Name,
				"stage", string(derr.Stage),
				"deleted", derr.Deleted,
				"error", derr.Err)
		} else {
			e.log.Error("expansion delivery failed",
				"snippet", res.Snippet.Name,
				"error", err)
		}
	} else {
		e.expansions.Add(1)
		e.met.RecordExpansion(duration, pasted)
		e.log.Debug("expansion delivered",
			"snippet", res.Snippet.Name,
			"deleted", req.DeleteCount,
			"runes", len([]rune(req.Text)),
			"pasted", pasted,
			"duration", duration)
	}

	if e.journal != nil {
		rec := Record{
			Timestamp:   start,
			SnippetName: res.Snippet.Name,
			Trigger:     res.Snippet.Trigger,
			DeleteCount: req.DeleteCount,
			TextLen:     len([]rune(req.Text)),
			Pasted:      pasted,
		}
		if err != nil {
			rec.Err = err.Error()
		}
		journalTimer := e.met.StartJournalTimer()
		if jerr := e.journal.Record(ctx, rec); jerr != nil {
			e.log.Error("journal write failed", "error", jerr)
		}
		journalTimer.Stop()
	}
}
