//go:build linux

package inject

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// linuxSender shells out to xdotool (X11) or wtype/ydotool (Wayland).
// XTEST-synthesized events never appear on /dev/input, so the evdev
// hook cannot loop on our own output here.
type linuxSender struct {
	policy Policy
}

func newPlatformSender(policy Policy) Sender {
	return &linuxSender{policy: policy}
}

func (s *linuxSender) Available() (bool, string) {
	for _, tool := range []string{"xdotool", "wtype"} {
		if _, err := exec.LookPath(tool); err == nil {
			return true, fmt.Sprintf("synthetic input via %s", tool)
		}
	}
	return false, "no synthetic input tool found (install xdotool or wtype)"
}

func (s *linuxSender) delayMs() string {
	return strconv.FormatInt(s.policy.InterKeyDelay.Milliseconds(), 10)
}

func (s *linuxSender) Backspaces(ctx context.Context, n int) error {
	if n == 0 {
		return nil
	}
	err := exec.CommandContext(ctx, "xdotool", "key", "--repeat", strconv.Itoa(n), "--delay", s.delayMs(), "BackSpace").Run()
	if err == nil {
		return nil
	}
	if werr := exec.CommandContext(ctx, "wtype", wtypeRepeatArgs(n)...).Run(); werr == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRejected, err)
}

func wtypeRepeatArgs(n int) []string {
	args := make([]string, 0, 2*n)
	for i := 0; i < n; i++ {
		args = append(args, "-k", "BackSpace")
	}
	return args
}

func (s *linuxSender) TypeText(ctx context.Context, text string) error {
	err := exec.CommandContext(ctx, "xdotool", "type", "--delay", s.delayMs(), "--", text).Run()
	if err == nil {
		return nil
	}
	if werr := exec.CommandContext(ctx, "wtype", "--", text).Run(); werr == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRejected, err)
}

func (s *linuxSender) Paste(ctx context.Context) error {
	err := exec.CommandContext(ctx, "xdotool", "key", "ctrl+v").Run()
	if err == nil {
		return nil
	}
	if werr := exec.CommandContext(ctx, "wtype", "-M", "ctrl", "v", "-m", "ctrl").Run(); werr == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRejected, err)
}
