//go:build !windows && !linux

package hook

import "context"

// StubHook is used on platforms without keyboard capture support. The
// engine stays inactive and reports a single registration error.
type StubHook struct {
	BaseHook
}

func newPlatformHook(opts Options) Hook {
	h := &StubHook{}
	h.init(opts)
	return h
}

// Available reports that capture is unsupported here.
func (h *StubHook) Available() (bool, string) {
	return false, "keyboard capture not implemented on this platform"
}

// Start always fails.
func (h *StubHook) Start(ctx context.Context) error {
	return ErrNotAvailable
}

// Stop is a no-op.
func (h *StubHook) Stop() error {
	return nil
}
