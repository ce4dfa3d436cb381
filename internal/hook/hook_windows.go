//go:build windows

package hook

import (
	"context"
	"fmt"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHook = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx    = user32.NewProc("CallNextHookEx")
	procGetMessageW       = user32.NewProc("GetMessageW")
	procPostThreadMessage = user32.NewProc("PostThreadMessageW")
	procGetForegroundWnd  = user32.NewProc("GetForegroundWindow")
)

const (
	whKeyboardLL = 13

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmQuit       = 0x0012

	llkhfInjected        = 0x10
	llkhfLowerILInjected = 0x02
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdllHookStruct struct {
	VKCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	HWnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// WindowsHook installs a WH_KEYBOARD_LL hook and pumps its message
// loop on a dedicated, locked OS thread.
type WindowsHook struct {
	BaseHook
	hookHandle uintptr
	threadID   uint32
	done       chan struct{}
	startErr   chan error
}

func newPlatformHook(opts Options) Hook {
	h := &WindowsHook{}
	h.init(opts)
	return h
}

// Available reports hook availability. Low-level keyboard hooks need
// no special privilege on Windows.
func (h *WindowsHook) Available() (bool, string) {
	return true, "WH_KEYBOARD_LL hook available"
}

// Start installs the hook on a dedicated message-loop thread.
func (h *WindowsHook) Start(ctx context.Context) error {
	if h.SetRunning(true) {
		return ErrAlreadyRunning
	}

	h.done = make(chan struct{})
	h.startErr = make(chan error, 1)

	go h.messageLoop()

	select {
	case err := <-h.startErr:
		if err != nil {
			h.SetRunning(false)
			return err
		}
	case <-time.After(5 * time.Second):
		h.SetRunning(false)
		return fmt.Errorf("%w: timeout waiting for hook thread", ErrRegistrationFailed)
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = h.Stop()
		case <-h.done:
		}
	}()

	return nil
}

// messageLoop runs on its own OS thread: low-level hooks deliver
// through the message queue of the installing thread.
func (h *WindowsHook) messageLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	h.threadID = windows.GetCurrentThreadId()

	callback := syscall.NewCallback(func(code int32, wparam uintptr, lparam uintptr) uintptr {
		if code >= 0 {
			h.onKey(wparam, (*kbdllHookStruct)(unsafe.Pointer(lparam)))
		}
		next, _, _ := procCallNextHookEx.Call(0, uintptr(code), wparam, lparam)
		return next
	})

	hook, _, err := procSetWindowsHookExW.Call(whKeyboardLL, callback, 0, 0)
	if hook == 0 {
		h.startErr <- fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
		return
	}
	h.hookHandle = hook
	h.startErr <- nil

	var m msg
	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if int32(ret) <= 0 {
			break
		}
	}

	procUnhookWindowsHook.Call(h.hookHandle)
	h.hookHandle = 0
}

// onKey runs inside the hook callback: classify, filter synthetic
// input, enqueue. Nothing here may block.
func (h *WindowsHook) onKey(wparam uintptr, kb *kbdllHookStruct) {
	if wparam != wmKeyDown && wparam != wmSysKeyDown {
		return
	}
	// Our own synthetic output, or anything injected via SendInput,
	// never re-enters the pipeline.
	if kb.Flags&(llkhfInjected|llkhfLowerILInjected) != 0 {
		return
	}
	if kb.DwExtraInfo == InjectionMarker {
		return
	}

	vk := uint16(kb.VKCode)
	kind := Classify(vk)
	if kind == KindIgnored {
		return
	}

	ev := Event{
		Context:   h.currentContext(),
		Kind:      kind,
		KeyCode:   vk,
		Timestamp: time.Now(),
	}
	if kind == KindCharacter {
		r, ok := VKToRune(vk)
		if !ok {
			return
		}
		ev.Rune = r
	}
	h.Emit(ev)
}

// currentContext uses the foreground window handle as the opaque
// input-context identifier.
func (h *WindowsHook) currentContext() ContextID {
	hwnd, _, _ := procGetForegroundWnd.Call()
	return ContextID(hwnd)
}

// Stop posts WM_QUIT to the message-loop thread and waits for it to
// unhook.
func (h *WindowsHook) Stop() error {
	if !h.SetRunning(false) {
		return nil
	}
	if h.threadID != 0 {
		procPostThreadMessage.Call(uintptr(h.threadID), wmQuit, 0, 0)
	}
	if h.done != nil {
		<-h.done
	}
	h.CloseEvents()
	return nil
}
