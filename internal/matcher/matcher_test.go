package matcher

import (
	"testing"

	"expandd/internal/hook"
	"expandd/internal/trigger"
)

func buildSnap(t *testing.T, snippets []trigger.Snippet, opts trigger.Options) *trigger.Snapshot {
	t.Helper()
	snap, warnings := trigger.Build(snippets, opts)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return snap
}

func defaultSnap(t *testing.T) *trigger.Snapshot {
	return buildSnap(t, []trigger.Snippet{
		{Trigger: "btw", Template: "by the way", Enabled: true},
		{Trigger: "dt", Template: "{{date}}", Enabled: true},
		{Trigger: ";dt", Template: "{{datetime}}", Enabled: true},
	}, trigger.DefaultOptions())
}

func typeString(m *Matcher, snap *trigger.Snapshot, ctx hook.ContextID, s string) []trigger.Result {
	var results []trigger.Result
	for _, r := range s {
		if res, ok := m.Observe(snap, hook.Event{Context: ctx, Kind: hook.KindCharacter, Rune: r}); ok {
			results = append(results, res)
		}
	}
	return results
}

func TestObserveMatchesTrigger(t *testing.T) {
	snap := defaultSnap(t)
	m := New()

	results := typeString(m, snap, 1, "hello btw")
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].Snippet.Trigger != "btw" || results[0].MatchedLen != 3 {
		t.Errorf("got %+v", results[0])
	}
	if m.Buffer(1) != "" {
		t.Errorf("buffer should clear after a match, got %q", m.Buffer(1))
	}
}

func TestObserveNoFalsePositives(t *testing.T) {
	snap := defaultSnap(t)
	m := New()

	// None of these sequences ever has a trigger as a suffix.
	for _, s := range []string{"hello world", "bt", "bwt", "d t", "xbtx"} {
		if results := typeString(New(), snap, 1, s); len(results) != 0 {
			t.Errorf("typing %q produced matches: %+v", s, results)
		}
	}
	_ = m
}

func TestObserveLongestTriggerWins(t *testing.T) {
	snap := defaultSnap(t)
	results := typeString(New(), snap, 1, ";dt")
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].Snippet.Trigger != ";dt" {
		t.Errorf("expected ;dt to win, got %q", results[0].Snippet.Trigger)
	}
}

func TestObserveMatchIndependentOfPrefix(t *testing.T) {
	snap := defaultSnap(t)
	for _, prefix := range []string{"", "x", "some longer text before "} {
		results := typeString(New(), snap, 1, prefix+"btw")
		if len(results) != 1 || results[0].MatchedLen != 3 {
			t.Errorf("prefix %q: got %+v", prefix, results)
		}
	}
}

func TestObserveContextIsolation(t *testing.T) {
	snap := defaultSnap(t)
	m := New()

	// Interleave two contexts; each carries half a trigger.
	interleaved := []struct {
		ctx hook.ContextID
		r   rune
	}{
		{1, 'b'}, {2, 'd'}, {1, 't'}, {2, 'x'}, {1, 'w'},
	}
	var matched []trigger.Result
	for _, step := range interleaved {
		if res, ok := m.Observe(snap, hook.Event{Context: step.ctx, Kind: hook.KindCharacter, Rune: step.r}); ok {
			matched = append(matched, res)
		}
	}
	if len(matched) != 1 || matched[0].Snippet.Trigger != "btw" {
		t.Fatalf("context A should match btw despite B's keystrokes, got %+v", matched)
	}
	if m.Buffer(2) != "dx" {
		t.Errorf("context B buffer disturbed: %q", m.Buffer(2))
	}
}

func TestObserveControlClearsBuffer(t *testing.T) {
	snap := defaultSnap(t)
	m := New()

	typeString(m, snap, 1, "bt")
	m.Observe(snap, hook.Event{Context: 1, Kind: hook.KindControl})
	if results := typeString(m, snap, 1, "w"); len(results) != 0 {
		t.Errorf("control key must cancel the run, got %+v", results)
	}
}

func TestObserveBackspaceTrimsOne(t *testing.T) {
	snap := defaultSnap(t)
	m := New()

	typeString(m, snap, 1, "btx")
	m.Observe(snap, hook.Event{Context: 1, Kind: hook.KindBackspace})
	// After erasing the x, typing w completes btw.
	results := typeString(m, snap, 1, "w")
	if len(results) != 1 || results[0].Snippet.Trigger != "btw" {
		t.Errorf("expected btw after backspace correction, got %+v", results)
	}
}

func TestObserveDelimiterPolicy(t *testing.T) {
	requireDelim := true
	snap := buildSnap(t, []trigger.Snippet{
		{Trigger: "addr", Template: "1 Main St", Enabled: true, RequireDelimiter: &requireDelim},
	}, trigger.DefaultOptions())
	m := New()

	// Bare trigger does not fire.
	if results := typeString(m, snap, 1, "addr"); len(results) != 0 {
		t.Fatalf("delimited trigger fired early: %+v", results)
	}
	// The following space completes it, and the span includes it.
	results := typeString(m, snap, 1, " ")
	if len(results) != 1 {
		t.Fatalf("expected match on delimiter, got %d", len(results))
	}
	if results[0].MatchedLen != 5 {
		t.Errorf("expected matched len 5, got %d", results[0].MatchedLen)
	}
	if results[0].Delimiter != ' ' {
		t.Errorf("expected the typed space carried in the result, got %q", results[0].Delimiter)
	}
	if m.Buffer(1) != "" {
		t.Errorf("buffer should clear, got %q", m.Buffer(1))
	}
}

func TestObserveImmediateMatchCarriesNoDelimiter(t *testing.T) {
	snap := defaultSnap(t)
	m := New()

	results := typeString(m, snap, 1, "btw")
	if len(results) != 1 {
		t.Fatalf("expected match, got %d", len(results))
	}
	if results[0].Delimiter != 0 {
		t.Errorf("immediate match must not carry a delimiter, got %q", results[0].Delimiter)
	}
}

func TestObserveBufferBoundedEviction(t *testing.T) {
	snap := defaultSnap(t) // longest trigger is 3
	m := New()

	typeString(m, snap, 1, "abcdefg")
	if got := m.Buffer(1); got != "efg" {
		t.Errorf("buffer should keep only the last 3 runes, got %q", got)
	}
}

func TestObserveSnapshotSwapMidSequence(t *testing.T) {
	old := defaultSnap(t)
	m := New()

	typeString(m, old, 1, "bt")

	// A new snapshot replaces btw with a different trigger set.
	next := buildSnap(t, []trigger.Snippet{
		{Trigger: "tw", Template: "swapped", Enabled: true},
	}, trigger.DefaultOptions())

	// The buffered "bt" survives the swap; the next character matches
	// against the new snapshot only.
	results := typeString(m, next, 1, "w")
	if len(results) != 1 || results[0].Snippet.Trigger != "tw" {
		t.Errorf("expected tw from the new snapshot, got %+v", results)
	}
}

func TestObserveBoundGrowsOnReset(t *testing.T) {
	small := defaultSnap(t)
	m := New()
	typeString(m, small, 1, "xy")

	big := buildSnap(t, []trigger.Snippet{
		{Trigger: "longtrigger", Template: "x", Enabled: true},
	}, trigger.DefaultOptions())

	// The existing context keeps its old bound until reset.
	typeString(m, big, 1, "abcd")
	if got := m.Buffer(1); len([]rune(got)) != 3 {
		t.Errorf("pre-reset bound should still be 3, buffer %q", got)
	}

	m.Reset(1)
	typeString(m, big, 1, "longtrigge")
	if got := m.Buffer(1); got != "longtrigge" {
		t.Errorf("post-reset bound should fit the new longest trigger, got %q", got)
	}
	results := typeString(m, big, 1, "r")
	if len(results) != 1 {
		t.Errorf("expected the long trigger to match after reset, got %+v", results)
	}
}

func TestContextEviction(t *testing.T) {
	snap := defaultSnap(t)
	m := New()

	for i := 0; i < maxContexts+8; i++ {
		typeString(m, snap, hook.ContextID(i+1), "ab")
	}
	if len(m.contexts) > maxContexts {
		t.Errorf("context map exceeded cap: %d", len(m.contexts))
	}
}
