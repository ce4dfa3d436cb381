//go:build windows

package inject

import (
	"context"
	"fmt"
	"time"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"

	"expandd/internal/hook"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputKeyboard = 1

	keyeventfKeyUp   = 0x0002
	keyeventfUnicode = 0x0004

	vkBack    = 0x08
	vkControl = 0x11
	vkV       = 0x56
)

// keybdInput mirrors KEYBDINPUT.
type keybdInput struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input mirrors INPUT with the keyboard arm of the union. The trailing
// padding brings the struct to the size of the mouse arm, which is the
// largest union member.
type input struct {
	Type uint32
	_    uint32
	Ki   keybdInput
	_    [8]byte
}

// windowsSender delivers input through SendInput, tagging every event
// with the injection marker in dwExtraInfo.
type windowsSender struct {
	policy Policy
}

func newPlatformSender(policy Policy) Sender {
	return &windowsSender{policy: policy}
}

func (s *windowsSender) Available() (bool, string) {
	return true, "SendInput available"
}

func keyPress(vk uint16) [2]input {
	down := input{Type: inputKeyboard, Ki: keybdInput{WVk: vk, DwExtraInfo: hook.InjectionMarker}}
	up := input{Type: inputKeyboard, Ki: keybdInput{WVk: vk, DwFlags: keyeventfKeyUp, DwExtraInfo: hook.InjectionMarker}}
	return [2]input{down, up}
}

func unicodePress(unit uint16) [2]input {
	down := input{Type: inputKeyboard, Ki: keybdInput{WScan: unit, DwFlags: keyeventfUnicode, DwExtraInfo: hook.InjectionMarker}}
	up := input{Type: inputKeyboard, Ki: keybdInput{WScan: unit, DwFlags: keyeventfUnicode | keyeventfKeyUp, DwExtraInfo: hook.InjectionMarker}}
	return [2]input{down, up}
}

// send submits a batch of events, failing when the OS accepts fewer
// than requested (UIPI blocks injection into elevated processes).
func send(events []input) error {
	if len(events) == 0 {
		return nil
	}
	n, _, callErr := procSendInput.Call(
		uintptr(len(events)),
		uintptr(unsafe.Pointer(&events[0])),
		unsafe.Sizeof(events[0]),
	)
	if int(n) != len(events) {
		return fmt.Errorf("%w: SendInput delivered %d of %d events: %v", ErrRejected, n, len(events), callErr)
	}
	return nil
}

func (s *windowsSender) pause(ctx context.Context) error {
	if s.policy.InterKeyDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.policy.InterKeyDelay):
		return nil
	}
}

// Backspaces sends each press individually with pacing; a single
// rejected event aborts the rest.
func (s *windowsSender) Backspaces(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		pair := keyPress(vkBack)
		if err := send(pair[:]); err != nil {
			return fmt.Errorf("backspace %d/%d: %w", i+1, n, err)
		}
		if err := s.pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TypeText delivers text as KEYEVENTF_UNICODE events, one UTF-16 unit
// at a time so surrogate pairs arrive in order.
func (s *windowsSender) TypeText(ctx context.Context, text string) error {
	for _, unit := range utf16.Encode([]rune(text)) {
		pair := unicodePress(unit)
		if err := send(pair[:]); err != nil {
			return err
		}
		if err := s.pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Paste sends Ctrl+V as one batch.
func (s *windowsSender) Paste(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctrlDown := input{Type: inputKeyboard, Ki: keybdInput{WVk: vkControl, DwExtraInfo: hook.InjectionMarker}}
	vDown := input{Type: inputKeyboard, Ki: keybdInput{WVk: vkV, DwExtraInfo: hook.InjectionMarker}}
	vUp := input{Type: inputKeyboard, Ki: keybdInput{WVk: vkV, DwFlags: keyeventfKeyUp, DwExtraInfo: hook.InjectionMarker}}
	ctrlUp := input{Type: inputKeyboard, Ki: keybdInput{WVk: vkControl, DwFlags: keyeventfKeyUp, DwExtraInfo: hook.InjectionMarker}}
	return send([]input{ctrlDown, vDown, vUp, ctrlUp})
}
