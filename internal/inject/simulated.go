package inject

import (
	"context"
	"sync"

	"expandd/internal/resolver"
)

// Op records one action a fake sender performed.
type Op struct {
	Kind string // "backspace", "type", "paste"
	N    int
	Text string
}

// RecordingSender captures sent input instead of delivering it, with
// optional scripted failures per stage.
type RecordingSender struct {
	mu  sync.Mutex
	ops []Op

	FailBackspaceAfter int // fail on the (n+1)th backspace; -1 never
	FailType           error
	FailPaste          error
}

// NewRecordingSender creates a sender that never fails.
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{FailBackspaceAfter: -1}
}

func (r *RecordingSender) Available() (bool, string) { return true, "recording sender" }

func (r *RecordingSender) Backspaces(ctx context.Context, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailBackspaceAfter >= 0 && n > r.FailBackspaceAfter {
		r.ops = append(r.ops, Op{Kind: "backspace", N: r.FailBackspaceAfter})
		return ErrRejected
	}
	r.ops = append(r.ops, Op{Kind: "backspace", N: n})
	return nil
}

func (r *RecordingSender) TypeText(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailType != nil {
		return r.FailType
	}
	r.ops = append(r.ops, Op{Kind: "type", Text: text})
	return nil
}

func (r *RecordingSender) Paste(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailPaste != nil {
		return r.FailPaste
	}
	r.ops = append(r.ops, Op{Kind: "paste"})
	return nil
}

// Ops returns a copy of the recorded actions.
func (r *RecordingSender) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// MemClipboard is an in-memory Clipboard with a settable history.
type MemClipboard struct {
	mu      sync.Mutex
	text    string
	history []string

	FailSet error
	FailGet error
}

func (m *MemClipboard) GetText() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGet != nil {
		return "", m.FailGet
	}
	return m.text, nil
}

func (m *MemClipboard) SetText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSet != nil {
		return m.FailSet
	}
	m.text = text
	m.history = append(m.history, text)
	return nil
}

// Text returns the current content.
func (m *MemClipboard) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// History returns every value ever set.
func (m *MemClipboard) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// RecordingInjector implements Injector for engine-level tests,
// capturing applied requests whole.
type RecordingInjector struct {
	mu       sync.Mutex
	requests []resolver.Request

	Fail   error
	Pasted bool // route reported for successful applications
}

func (r *RecordingInjector) Available() (bool, string) { return true, "recording injector" }

func (r *RecordingInjector) Apply(ctx context.Context, req resolver.Request) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return false, r.Fail
	}
	r.requests = append(r.requests, req)
	return r.Pasted, nil
}

// Requests returns a copy of the applied requests.
func (r *RecordingInjector) Requests() []resolver.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]resolver.Request, len(r.requests))
	copy(out, r.requests)
	return out
}
