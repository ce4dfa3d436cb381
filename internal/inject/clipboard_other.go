//go:build !windows && !linux && !darwin

package inject

import "errors"

type stubClipboard struct{}

// NewPlatformClipboard returns a clipboard that always fails; only the
// platforms with an input hook carry real clipboard access.
func NewPlatformClipboard() Clipboard {
	return stubClipboard{}
}

var errNoClipboard = errors.New("clipboard not available on this platform")

func (stubClipboard) GetText() (string, error) { return "", errNoClipboard }
func (stubClipboard) SetText(string) error     { return errNoClipboard }
