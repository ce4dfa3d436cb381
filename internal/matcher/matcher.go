// Package matcher maintains per-context rolling keystroke buffers and
// drives trigger lookups against the active snapshot.
//
// A Matcher instance is owned by exactly one goroutine (the engine's
// processing worker); it does no locking of its own. The active
// snapshot arrives as an argument on every observation, so a snapshot
// swap mid-typing-sequence affects only matches attempted after the
// swap and never disturbs buffered state.
package matcher

import (
	"time"

	"expandd/internal/hook"
	"expandd/internal/trigger"
)

// maxContexts bounds how many input contexts are tracked at once.
// Contexts beyond the cap evict the least recently used one; a
// re-focused window simply starts with an empty buffer.
const maxContexts = 64

type contextBuf struct {
	runes    []rune
	bound    int // captured from the snapshot at creation or reset
	lastSeen time.Time
}

// Matcher tracks typing state per input context.
type Matcher struct {
	contexts map[hook.ContextID]*contextBuf
}

// New creates an empty matcher.
func New() *Matcher {
	return &Matcher{contexts: make(map[hook.ContextID]*contextBuf)}
}

// Observe feeds one key event through the buffer for its context and
// reports a completed trigger match, if any. snap is the snapshot the
// caller read for this event; it must not be nil.
func (m *Matcher) Observe(snap *trigger.Snapshot, ev hook.Event) (trigger.Result, bool) {
	switch ev.Kind {
	case hook.KindControl:
		// Navigation and editing keys invalidate the typed run.
		m.Reset(ev.Context)
		return trigger.Result{}, false

	case hook.KindBackspace:
		// The user erased one character; mirror it instead of
		// discarding the whole run.
		if buf, ok := m.contexts[ev.Context]; ok && len(buf.runes) > 0 {
			buf.runes = buf.runes[:len(buf.runes)-1]
			buf.lastSeen = ev.Timestamp
		}
		return trigger.Result{}, false

	case hook.KindCharacter:
		return m.observeChar(snap, ev)

	default:
		return trigger.Result{}, false
	}
}

func (m *Matcher) observeChar(snap *trigger.Snapshot, ev hook.Event) (trigger.Result, bool) {
	buf := m.context(snap, ev.Context)
	buf.lastSeen = ev.Timestamp

	// A delimiter keystroke first completes any trigger that was
	// waiting for a boundary; the delimiter itself is then part of
	// the matched span and never enters the buffer.
	if trigger.IsDelimiter(ev.Rune) && snap.HasDelimited() {
		if res, ok := snap.MatchDelimited(buf.runes); ok {
			res.Delimiter = ev.Rune
			m.resetBuf(snap, buf)
			return res, true
		}
	}

	buf.runes = append(buf.runes, ev.Rune)
	if buf.bound > 0 && len(buf.runes) > buf.bound {
		buf.runes = buf.runes[len(buf.runes)-buf.bound:]
	}
	if buf.bound == 0 {
		buf.runes = buf.runes[:0]
		return trigger.Result{}, false
	}

	if res, ok := snap.Match(buf.runes); ok {
		// Clearing here keeps the expansion's own injected
		// characters from immediately re-triggering.
		m.resetBuf(snap, buf)
		return res, true
	}
	return trigger.Result{}, false
}

// context fetches or creates the buffer for id, evicting the least
// recently used context when at capacity.
func (m *Matcher) context(snap *trigger.Snapshot, id hook.ContextID) *contextBuf {
	if buf, ok := m.contexts[id]; ok {
		return buf
	}
	if len(m.contexts) >= maxContexts {
		var oldest hook.ContextID
		var oldestSeen time.Time
		first := true
		for cid, buf := range m.contexts {
			if first || buf.lastSeen.Before(oldestSeen) {
				first = false
				oldest = cid
				oldestSeen = buf.lastSeen
			}
		}
		delete(m.contexts, oldest)
	}
	buf := &contextBuf{bound: snap.MaxTriggerLen()}
	m.contexts[id] = buf
	return buf
}

// resetBuf empties the buffer and re-reads the length bound so a grown
// trigger set takes effect from the next observation on.
func (m *Matcher) resetBuf(snap *trigger.Snapshot, buf *contextBuf) {
	buf.runes = buf.runes[:0]
	buf.bound = snap.MaxTriggerLen()
}

// Reset drops all typing state for one context, used on focus loss or
// an explicit cancel.
func (m *Matcher) Reset(id hook.ContextID) {
	delete(m.contexts, id)
}

// ResetAll drops every context, the safest recovery after an
// unexpected condition.
func (m *Matcher) ResetAll() {
	clear(m.contexts)
}

// Buffer exposes the current buffer content for a context. Diagnostic
// use only.
func (m *Matcher) Buffer(id hook.ContextID) string {
	if buf, ok := m.contexts[id]; ok {
		return string(buf.runes)
	}
	return ""
}
