//go:build darwin

package inject

import (
	"os/exec"
	"strings"
)

// darwinClipboard uses pbpaste/pbcopy.
type darwinClipboard struct{}

// NewPlatformClipboard returns the macOS clipboard.
func NewPlatformClipboard() Clipboard {
	return &darwinClipboard{}
}

func (c *darwinClipboard) GetText() (string, error) {
	out, err := exec.Command("pbpaste").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c *darwinClipboard) SetText(text string) error {
	cmd := exec.Command("pbcopy")
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
