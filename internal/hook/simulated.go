package hook

import (
	"context"
	"time"
)

// SimulatedHook feeds scripted events through the same channel
// contract as the platform hooks. Tests drive the whole pipeline with
// it without touching the OS.
type SimulatedHook struct {
	BaseHook
}

// NewSimulated creates a simulated hook.
func NewSimulated(opts Options) *SimulatedHook {
	h := &SimulatedHook{}
	h.init(opts)
	return h
}

// Available always succeeds.
func (h *SimulatedHook) Available() (bool, string) {
	return true, "simulated hook (for testing)"
}

// Start marks the hook running.
func (h *SimulatedHook) Start(ctx context.Context) error {
	if h.SetRunning(true) {
		return ErrAlreadyRunning
	}
	return nil
}

// Stop closes the event channel.
func (h *SimulatedHook) Stop() error {
	if !h.SetRunning(false) {
		return nil
	}
	h.CloseEvents()
	return nil
}

// TypeRune emits one character keystroke in the given context.
func (h *SimulatedHook) TypeRune(ctx ContextID, r rune) {
	h.Emit(Event{Context: ctx, Kind: KindCharacter, Rune: r, Timestamp: time.Now()})
}

// TypeString emits every rune of s in order.
func (h *SimulatedHook) TypeString(ctx ContextID, s string) {
	for _, r := range s {
		h.TypeRune(ctx, r)
	}
}

// DropEvents raises the drop counter as if the queue had overflowed n
// times, letting pipeline tests exercise the overflow reaction without
// actually stalling the consumer.
func (h *SimulatedHook) DropEvents(n uint64) {
	h.dropped.Add(n)
}

// PressBackspace emits a backspace keystroke.
func (h *SimulatedHook) PressBackspace(ctx ContextID) {
	h.Emit(Event{Context: ctx, Kind: KindBackspace, KeyCode: vkBack, Timestamp: time.Now()})
}

// PressControl emits a buffer-cancelling key such as Escape or Enter.
func (h *SimulatedHook) PressControl(ctx ContextID, vk uint16) {
	h.Emit(Event{Context: ctx, Kind: KindControl, KeyCode: vk, Timestamp: time.Now()})
}

// PressEscape is shorthand for the most common cancel key.
func (h *SimulatedHook) PressEscape(ctx ContextID) {
	h.PressControl(ctx, vkEscape)
}

// PressEnter emits an Enter keystroke.
func (h *SimulatedHook) PressEnter(ctx ContextID) {
	h.PressControl(ctx, vkReturn)
}
