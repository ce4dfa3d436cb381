//go:build !windows && !linux

package inject

import "context"

// stubSender is used on platforms without an output path.
type stubSender struct{}

func newPlatformSender(policy Policy) Sender {
	return stubSender{}
}

func (stubSender) Available() (bool, string) {
	return false, "synthetic input not implemented on this platform"
}

func (stubSender) Backspaces(ctx context.Context, n int) error { return ErrRejected }
func (stubSender) TypeText(ctx context.Context, text string) error {
	return ErrRejected
}
func (stubSender) Paste(ctx context.Context) error { return ErrRejected }
