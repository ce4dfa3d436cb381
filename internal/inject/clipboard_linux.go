//go:build linux

package inject

import (
	"fmt"
	"os/exec"
	"strings"
)

// linuxClipboard shells out to xclip, xsel or the Wayland tools,
// whichever is present.
type linuxClipboard struct{}

// NewPlatformClipboard returns the Linux clipboard.
func NewPlatformClipboard() Clipboard {
	return &linuxClipboard{}
}

func (c *linuxClipboard) GetText() (string, error) {
	out, err := exec.Command("xclip", "-selection", "clipboard", "-o").Output()
	if err == nil {
		return string(out), nil
	}
	out, err = exec.Command("xsel", "--clipboard", "--output").Output()
	if err == nil {
		return string(out), nil
	}
	out, err = exec.Command("wl-paste", "--no-newline").Output()
	if err == nil {
		return string(out), nil
	}
	return "", fmt.Errorf("no clipboard tool available: %w", err)
}

func (c *linuxClipboard) SetText(text string) error {
	for _, argv := range [][]string{
		{"xclip", "-selection", "clipboard"},
		{"xsel", "--clipboard", "--input"},
		{"wl-copy"},
	} {
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no clipboard tool available (install xclip, xsel or wl-clipboard)")
}
