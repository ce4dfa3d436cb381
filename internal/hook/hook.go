// Package hook owns the OS-level keyboard hook and is the single
// producer of key events into the expansion pipeline.
//
// The hook callback runs on an OS-scheduled thread with a strict time
// budget; it only classifies the event and performs a non-blocking
// enqueue. Synthetic events carry an origin marker (and on Windows the
// injected flag) and are dropped at this boundary so an expansion's
// own output never re-enters matching.
//
// Platform support:
//   - Windows: WH_KEYBOARD_LL low-level hook (no special privilege)
//   - Linux: /dev/input/event* readers (requires input group or root)
//   - elsewhere: unavailable, the engine degrades to inactive
package hook

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// InjectionMarker tags synthetic events produced by the inject
// package. On Windows it is carried in dwExtraInfo; the hook drops any
// event bearing it.
const InjectionMarker uintptr = 0x45585044 // "EXPD"

// Kind classifies a key event for the matcher.
type Kind int

const (
	KindUnknown Kind = iota
	KindCharacter
	KindBackspace
	KindControl // enter, tab, escape, navigation: cancels buffering
	KindIgnored // modifiers, function keys: no buffer effect
)

// ContextID identifies the input context a keystroke belongs to,
// opaque to the pipeline. On Windows it is the foreground window
// handle; platforms without focus tracking use a single context.
type ContextID uint64

// Event is one observed key-down, already classified and translated.
type Event struct {
	Context   ContextID
	Kind      Kind
	Rune      rune // valid when Kind == KindCharacter
	KeyCode   uint16
	Timestamp time.Time
}

// Hook captures keyboard input and delivers events on a channel.
type Hook interface {
	// Start installs the hook. It fails with ErrRegistrationFailed
	// when the OS rejects installation; the caller must not retry in
	// a loop.
	Start(ctx context.Context) error

	// Stop uninstalls the hook and closes the event channel.
	Stop() error

	// Events returns the bounded event stream. When the consumer
	// falls behind, the oldest unprocessed events are dropped and
	// counted, never blocking the callback.
	Events() <-chan Event

	// Dropped reports how many events were discarded to backpressure.
	Dropped() uint64

	// Available reports whether capture can work on this platform
	// with current permissions, with a human-readable reason.
	Available() (bool, string)
}

// ErrRegistrationFailed is returned when the OS refuses the hook.
var ErrRegistrationFailed = errors.New("keyboard hook registration failed")

// ErrAlreadyRunning is returned when Start is called twice.
var ErrAlreadyRunning = errors.New("keyboard hook already running")

// ErrNotAvailable is returned on platforms without capture support.
var ErrNotAvailable = errors.New("keyboard capture not available on this platform")

// Options configure hook construction.
type Options struct {
	// QueueSize bounds the event channel. Zero means DefaultQueueSize.
	QueueSize int
}

// DefaultQueueSize is generous for human typing rates; overflow only
// happens when the worker stalls.
const DefaultQueueSize = 256

// New creates the hook implementation for the current platform.
func New(opts Options) Hook {
	return newPlatformHook(opts)
}

// BaseHook carries the state all platform implementations share.
type BaseHook struct {
	mu      sync.Mutex
	events  chan Event
	running bool
	dropped atomic.Uint64
}

func (b *BaseHook) init(opts Options) {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	b.events = make(chan Event, size)
}

// Events returns the event channel.
func (b *BaseHook) Events() <-chan Event {
	return b.events
}

// Dropped returns the backpressure drop count.
func (b *BaseHook) Dropped() uint64 {
	return b.dropped.Load()
}

// Emit enqueues an event without ever blocking. On a full queue it
// evicts the oldest pending event so observation order within the
// surviving stream is preserved.
func (b *BaseHook) Emit(ev Event) {
	select {
	case b.events <- ev:
		return
	default:
	}
	select {
	case <-b.events:
		b.dropped.Add(1)
	default:
	}
	select {
	case b.events <- ev:
	default:
		b.dropped.Add(1)
	}
}

// SetRunning flips the running state, reporting the previous value.
func (b *BaseHook) SetRunning(running bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.running
	b.running = running
	return prev
}

// IsRunning reports the running state.
func (b *BaseHook) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// CloseEvents closes the event channel.
func (b *BaseHook) CloseEvents() {
	close(b.events)
}
