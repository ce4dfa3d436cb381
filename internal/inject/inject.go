// Package inject synthesizes keyboard input back into the OS: the
// backspaces that erase a matched trigger and the keystrokes (or
// clipboard paste) that deliver the expansion text.
//
// Every synthetic event carries the hook package's injection marker so
// the interceptor never feeds our own output back into matching.
//
// Delivery is deliberately not transactional: when the OS rejects
// input after the deletion step, the trigger is already erased and the
// replacement missing. That partial outcome is reported through a
// DeliveryError and never retried automatically.
package inject

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expandd/internal/resolver"
)

// Injector applies a resolved expansion to the focused application.
// Apply reports whether the text went through the clipboard-paste
// route, which can differ from the policy's preference when direct
// typing fails and the paste fallback takes over.
type Injector interface {
	Apply(ctx context.Context, req resolver.Request) (pasted bool, err error)
	Available() (bool, string)
}

// ErrRejected is wrapped into DeliveryError when the OS refuses
// synthetic input (elevated target process, revoked permission).
var ErrRejected = errors.New("synthetic input rejected")

// Stage identifies where delivery failed.
type Stage string

const (
	StageDelete Stage = "delete"
	StageInsert Stage = "insert"
	StagePaste  Stage = "paste"
)

// DeliveryError reports a failed or partially applied expansion.
// Deleted says how many backspaces had already been delivered; a
// non-zero value with a failed insert stage means the host application
// lost the trigger text without receiving the replacement.
type DeliveryError struct {
	Stage   Stage
	Deleted int
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("expansion delivery failed at %s stage (deleted %d): %v", e.Stage, e.Deleted, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Policy selects between direct synthetic keystrokes and the
// clipboard-paste fallback, and paces event delivery.
type Policy struct {
	// MaxDirectRunes is the longest text delivered as individual key
	// events; longer expansions go through the clipboard.
	MaxDirectRunes int

	// PasteNonBMP forces the clipboard path when the text contains
	// characters outside the Basic Multilingual Plane, which some
	// applications mishandle as surrogate key pairs.
	PasteNonBMP bool

	// InterKeyDelay spaces consecutive synthetic events so slow
	// applications keep up.
	InterKeyDelay time.Duration

	// PasteSettle is how long the pasted clipboard content stays in
	// place before the previous content is restored.
	PasteSettle time.Duration
}

// DefaultPolicy mirrors the pacing the desktop expanders this replaces
// settled on: short texts typed directly, everything else pasted.
func DefaultPolicy() Policy {
	return Policy{
		MaxDirectRunes: 50,
		PasteNonBMP:    true,
		InterKeyDelay:  10 * time.Millisecond,
		PasteSettle:    200 * time.Millisecond,
	}
}

func (p Policy) NeedsPaste(text string) bool {
	runes := 0
	for _, r := range text {
		runes++
		if p.PasteNonBMP && r > 0xFFFF {
			return true
		}
	}
	return runes > p.MaxDirectRunes
}
