package trigger

import (
	"sort"
	"strings"
)

// Result is a confirmed trigger match. MatchedLen counts the
// characters already delivered to the host application that the
// synthesizer must delete; it exceeds the trigger's rune count by one
// when the match consumed a trailing delimiter. Delimiter is that
// consumed boundary rune, zero for immediate matches; the deletion
// span covers it, so the pipeline appends it back after the
// expansion text.
type Result struct {
	Snippet    *Snippet
	MatchedLen int
	Delimiter  rune
}

// Warning records a configuration problem found while building a
// snapshot. The affected triggers are excluded from matching but the
// rest of the snapshot stays usable.
type Warning struct {
	Triggers []string
	Reason   string
}

type entry struct {
	snippet      *Snippet
	requireDelim bool
}

// Snapshot is an immutable view of the full trigger set. Readers may
// share a snapshot freely across goroutines; all fields are written
// only during Build.
type Snapshot struct {
	opts    Options
	byKey   map[string]*entry
	folded  map[string]*entry
	lengths []int // distinct trigger rune lengths, descending
	maxLen  int
}

// Build constructs a snapshot from a full snippet set. Disabled and
// invalid snippets are skipped; triggers that collide after case
// folding are ambiguous and excluded, reported through the returned
// warnings.
func Build(snippets []Snippet, opts Options) (*Snapshot, []Warning) {
	snap := &Snapshot{
		opts:   opts,
		byKey:  make(map[string]*entry, len(snippets)),
		folded: make(map[string]*entry),
	}
	var warnings []Warning

	ambiguous := make(map[string][]string)
	for i := range snippets {
		sn := &snippets[i]
		if !sn.Enabled {
			continue
		}
		if err := sn.Validate(); err != nil {
			warnings = append(warnings, Warning{
				Triggers: []string{sn.Trigger},
				Reason:   err.Error(),
			})
			continue
		}
		key := snap.canonical(sn.Trigger)
		if prev, ok := snap.byKey[key]; ok {
			if len(ambiguous[key]) == 0 {
				ambiguous[key] = append(ambiguous[key], prev.snippet.Trigger)
			}
			ambiguous[key] = append(ambiguous[key], sn.Trigger)
			continue
		}
		snap.byKey[key] = &entry{
			snippet:      sn,
			requireDelim: sn.requiresDelimiter(opts.RequireDelimiter),
		}
	}

	for key, triggers := range ambiguous {
		delete(snap.byKey, key)
		warnings = append(warnings, Warning{
			Triggers: triggers,
			Reason:   "ambiguous triggers resolve to the same key",
		})
	}

	if opts.NormalizeSymbols {
		warnings = append(warnings, snap.buildFolded()...)
	}

	seen := make(map[int]bool)
	for key := range snap.byKey {
		n := len([]rune(key))
		if n > snap.maxLen {
			snap.maxLen = n
		}
		if !seen[n] {
			seen[n] = true
			snap.lengths = append(snap.lengths, n)
		}
	}
	for key := range snap.folded {
		n := len([]rune(key))
		if n > snap.maxLen {
			snap.maxLen = n
		}
		if !seen[n] {
			seen[n] = true
			snap.lengths = append(snap.lengths, n)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(snap.lengths)))

	return snap, warnings
}

// buildFolded populates the symbol-folded lookup table. A folded key
// that already maps to a different snippet is ambiguous under
// normalization and only reachable through its exact spelling.
func (s *Snapshot) buildFolded() []Warning {
	var warnings []Warning
	dropped := make(map[string][]string)
	for key, e := range s.byKey {
		fk := foldSymbols(key)
		if fk == key {
			continue
		}
		if prev, ok := s.folded[fk]; ok {
			dropped[fk] = append(dropped[fk], prev.snippet.Trigger, e.snippet.Trigger)
			continue
		}
		if _, exact := s.byKey[fk]; exact {
			// Exact spelling wins over a folded alias.
			continue
		}
		s.folded[fk] = e
	}
	for fk, triggers := range dropped {
		delete(s.folded, fk)
		warnings = append(warnings, Warning{
			Triggers: triggers,
			Reason:   "triggers collide after symbol normalization; folded matching disabled for them",
		})
	}
	return warnings
}

// NewEmpty returns a snapshot with no triggers. The engine starts on
// it until the first publish.
func NewEmpty() *Snapshot {
	snap, _ := Build(nil, DefaultOptions())
	return snap
}

// canonical maps a trigger or buffer suffix to its lookup key.
func (s *Snapshot) canonical(t string) string {
	if s.opts.CaseSensitive {
		return t
	}
	return strings.ToLower(t)
}

// MaxTriggerLen is the rune length of the longest indexed trigger; the
// matcher bounds its rolling buffers to it.
func (s *Snapshot) MaxTriggerLen() int {
	return s.maxLen
}

// Len reports how many triggers the snapshot can match directly.
func (s *Snapshot) Len() int {
	return len(s.byKey)
}

// Match checks whether buf ends with a trigger that fires immediately
// on its last character. Longest trigger wins.
func (s *Snapshot) Match(buf []rune) (Result, bool) {
	return s.match(buf, false)
}

// MatchDelimited checks whether buf ends with a delimiter-requiring
// trigger. The caller invokes it when a delimiter was just typed,
// before appending the delimiter to the buffer; MatchedLen includes
// the delimiter so the synthesizer deletes it along with the trigger.
func (s *Snapshot) MatchDelimited(buf []rune) (Result, bool) {
	res, ok := s.match(buf, true)
	if ok {
		res.MatchedLen++
	}
	return res, ok
}

func (s *Snapshot) match(buf []rune, delimited bool) (Result, bool) {
	for _, n := range s.lengths {
		if n > len(buf) {
			continue
		}
		suffix := s.canonical(string(buf[len(buf)-n:]))
		e, ok := s.byKey[suffix]
		if !ok && s.opts.NormalizeSymbols {
			e, ok = s.folded[foldSymbols(suffix)]
		}
		if !ok || e.requireDelim != delimited {
			continue
		}
		return Result{Snippet: e.snippet, MatchedLen: n}, true
	}
	return Result{}, false
}

// HasDelimited reports whether any indexed trigger waits for a
// boundary character. The matcher skips the delimiter probe entirely
// when none do.
func (s *Snapshot) HasDelimited() bool {
	for _, e := range s.byKey {
		if e.requireDelim {
			return true
		}
	}
	return false
}
