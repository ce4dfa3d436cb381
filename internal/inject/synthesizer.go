package inject

import (
	"context"

	"expandd/internal/resolver"
)

// Sender emits low-level synthetic input. Platform implementations
// tag everything they send with the injection marker.
type Sender interface {
	// Backspaces delivers n backspace key presses.
	Backspaces(ctx context.Context, n int) error

	// TypeText delivers text as individual character key events.
	TypeText(ctx context.Context, text string) error

	// Paste delivers the platform paste chord (Ctrl+V).
	Paste(ctx context.Context) error

	Available() (bool, string)
}

// Clipboard is read/write access to the system text clipboard. The
// resolver package reads through the same implementation for the
// {{clipboard}} placeholder.
type Clipboard interface {
	GetText() (string, error)
	SetText(text string) error
}

// Synthesizer applies expansion requests using a Sender and, for the
// paste fallback, the Clipboard.
type Synthesizer struct {
	sender    Sender
	clipboard Clipboard
	policy    Policy
	sleep     func(context.Context, Policy) // settle hook, overridable in tests
}

// New builds a synthesizer on the platform sender and clipboard.
func New(policy Policy) *Synthesizer {
	return NewSynthesizer(newPlatformSender(policy), NewPlatformClipboard(), policy)
}

// NewSynthesizer wires explicit collaborators, used by tests.
func NewSynthesizer(sender Sender, clipboard Clipboard, policy Policy) *Synthesizer {
	return &Synthesizer{
		sender:    sender,
		clipboard: clipboard,
		policy:    policy,
		sleep:     settle,
	}
}

// Available reports whether synthetic input can be delivered.
func (s *Synthesizer) Available() (bool, string) {
	return s.sender.Available()
}

// Apply erases the matched span and delivers the replacement. The
// deletion always runs first; insertion failures are reported with the
// deletion already applied. The returned flag says whether the
// replacement actually went through the clipboard.
func (s *Synthesizer) Apply(ctx context.Context, req resolver.Request) (bool, error) {
	if req.DeleteCount > 0 {
		if err := s.sender.Backspaces(ctx, req.DeleteCount); err != nil {
			return false, &DeliveryError{Stage: StageDelete, Err: err}
		}
	}
	if req.Text == "" {
		return false, nil
	}

	if !s.policy.NeedsPaste(req.Text) {
		if err := s.sender.TypeText(ctx, req.Text); err == nil {
			return false, nil
		}
		// Direct input failed; the clipboard path is the fallback for
		// characters the key-event route cannot carry.
	}
	if err := s.paste(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

// paste places the text on the clipboard, sends the paste chord and
// restores the previous clipboard content. Restoration is scoped:
// whatever was on the clipboard before goes back even when the paste
// chord fails.
func (s *Synthesizer) paste(ctx context.Context, req resolver.Request) error {
	previous, hadPrevious := "", false
	if prev, err := s.clipboard.GetText(); err == nil {
		previous, hadPrevious = prev, true
	}

	if err := s.clipboard.SetText(req.Text); err != nil {
		return &DeliveryError{Stage: StagePaste, Deleted: req.DeleteCount, Err: err}
	}
	defer func() {
		if hadPrevious {
			_ = s.clipboard.SetText(previous)
		}
	}()

	if err := s.sender.Paste(ctx); err != nil {
		return &DeliveryError{Stage: StagePaste, Deleted: req.DeleteCount, Err: err}
	}

	// Give the target application time to read the clipboard before
	// the deferred restore replaces it.
	s.sleep(ctx, s.policy)
	return nil
}

func settle(ctx context.Context, p Policy) {
	if p.PasteSettle <= 0 {
		return
	}
	t := timeAfter(p.PasteSettle)
	select {
	case <-ctx.Done():
	case <-t:
	}
}
