//go:build windows

package inject

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	clipUser32           = windows.NewLazySystemDLL("user32.dll")
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procOpenClipboard    = clipUser32.NewProc("OpenClipboard")
	procCloseClipboard   = clipUser32.NewProc("CloseClipboard")
	procEmptyClipboard   = clipUser32.NewProc("EmptyClipboard")
	procGetClipboardData = clipUser32.NewProc("GetClipboardData")
	procSetClipboardData = clipUser32.NewProc("SetClipboardData")
	procGlobalAlloc      = kernel32.NewProc("GlobalAlloc")
	procGlobalFree       = kernel32.NewProc("GlobalFree")
	procGlobalLock       = kernel32.NewProc("GlobalLock")
	procGlobalUnlock     = kernel32.NewProc("GlobalUnlock")
)

const (
	cfUnicodeText = 13
	gmemMoveable  = 0x0002
)

// windowsClipboard accesses the system clipboard through user32.
type windowsClipboard struct{}

// NewPlatformClipboard returns the Windows clipboard.
func NewPlatformClipboard() Clipboard {
	return &windowsClipboard{}
}

func (c *windowsClipboard) GetText() (string, error) {
	ret, _, err := procOpenClipboard.Call(0)
	if ret == 0 {
		return "", fmt.Errorf("open clipboard: %v", err)
	}
	defer procCloseClipboard.Call()

	handle, _, _ := procGetClipboardData.Call(cfUnicodeText)
	if handle == 0 {
		// No text on the clipboard is not an error.
		return "", nil
	}

	ptr, _, _ := procGlobalLock.Call(handle)
	if ptr == 0 {
		return "", fmt.Errorf("lock clipboard memory")
	}
	defer procGlobalUnlock.Call(handle)

	var units []uint16
	for i := 0; ; i++ {
		u := *(*uint16)(unsafe.Pointer(ptr + uintptr(i*2)))
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return windows.UTF16ToString(units), nil
}

func (c *windowsClipboard) SetText(text string) error {
	units, err := windows.UTF16FromString(text)
	if err != nil {
		return fmt.Errorf("encode clipboard text: %w", err)
	}

	size := uintptr(len(units) * 2)
	handle, _, callErr := procGlobalAlloc.Call(gmemMoveable, size)
	if handle == 0 {
		return fmt.Errorf("allocate clipboard memory: %v", callErr)
	}

	ptr, _, _ := procGlobalLock.Call(handle)
	if ptr == 0 {
		procGlobalFree.Call(handle)
		return fmt.Errorf("lock clipboard memory")
	}
	dst := unsafe.Slice((*uint16)(unsafe.Pointer(ptr)), len(units))
	copy(dst, units)
	procGlobalUnlock.Call(handle)

	ret, _, callErr := procOpenClipboard.Call(0)
	if ret == 0 {
		procGlobalFree.Call(handle)
		return fmt.Errorf("open clipboard: %v", callErr)
	}
	defer procCloseClipboard.Call()

	procEmptyClipboard.Call()
	ret, _, callErr = procSetClipboardData.Call(cfUnicodeText, handle)
	if ret == 0 {
		// Ownership stays with us on failure.
		procGlobalFree.Call(handle)
		return fmt.Errorf("set clipboard data: %v", callErr)
	}
	// On success the system owns the allocation.
	return nil
}
