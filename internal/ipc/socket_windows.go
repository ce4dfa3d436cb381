//go:build windows

package ipc

import (
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
	"unsafe"
)

const (
	pipeAccessDuplex       = 0x00000003
	pipeTypeByte           = 0x00000000
	pipeWait               = 0x00000000
	pipeUnlimitedInstances = 255
	pipeBufferSize         = 64 * 1024

	errPipeBusy      syscall.Errno = 231
	errPipeConnected syscall.Errno = 535
)

var (
	kernel32                = syscall.NewLazyDLL("kernel32.dll")
	procCreateNamedPipeW    = kernel32.NewProc("CreateNamedPipeW")
	procConnectNamedPipe    = kernel32.NewProc("ConnectNamedPipe")
	procDisconnectNamedPipe = kernel32.NewProc("DisconnectNamedPipe")
)

// pipePath normalizes a configured socket path to a named pipe name.
func pipePath(path string) string {
	if strings.HasPrefix(path, `\\.\pipe\`) {
		return path
	}
	return `\\.\pipe\expandd`
}

// listen returns a listener that serves connections over a named pipe.
func listen(path string) (net.Listener, error) {
	return &pipeListener{name: pipePath(path)}, nil
}

// cleanupSocket is a no-op: the system removes named pipes when the
// last handle closes.
func cleanupSocket(string) error { return nil }

// dial connects to the daemon's named pipe, retrying briefly if all
// pipe instances are busy.
func dial(path string, timeout time.Duration) (net.Conn, error) {
	name := pipePath(path)
	deadline := time.Now().Add(timeout)

	for {
		handle, err := syscall.CreateFile(
			syscall.StringToUTF16Ptr(name),
			syscall.GENERIC_READ|syscall.GENERIC_WRITE,
			0, nil, syscall.OPEN_EXISTING, 0, 0,
		)
		if err == nil {
			return &pipeConn{handle: handle, name: name}, nil
		}
		if errno, ok := err.(syscall.Errno); !ok || errno != errPipeBusy {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("pipe %s busy", name)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

type pipeListener struct {
	name   string
	closed bool
}

func (l *pipeListener) Accept() (net.Conn, error) {
	if l.closed {
		return nil, net.ErrClosed
	}

	namePtr, err := syscall.UTF16PtrFromString(l.name)
	if err != nil {
		return nil, err
	}

	handle, _, callErr := procCreateNamedPipeW.Call(
		uintptr(unsafe.Pointer(namePtr)),
		pipeAccessDuplex,
		pipeTypeByte|pipeWait,
		pipeUnlimitedInstances,
		pipeBufferSize,
		pipeBufferSize,
		0,
		0, // Default security: current user only
	)
	if handle == uintptr(syscall.InvalidHandle) {
		return nil, fmt.Errorf("create pipe: %w", callErr)
	}

	if r, _, err := procConnectNamedPipe.Call(handle, 0); r == 0 {
		if errno, ok := err.(syscall.Errno); !ok || errno != errPipeConnected {
			syscall.CloseHandle(syscall.Handle(handle))
			return nil, fmt.Errorf("connect pipe: %w", err)
		}
	}

	return &pipeConn{handle: syscall.Handle(handle), name: l.name}, nil
}

func (l *pipeListener) Close() error {
	l.closed = true
	return nil
}

func (l *pipeListener) Addr() net.Addr {
	return pipeAddr(l.name)
}

type pipeConn struct {
	handle syscall.Handle
	name   string
}

func (c *pipeConn) Read(b []byte) (int, error) {
	var n uint32
	err := syscall.ReadFile(c.handle, b, &n, nil)
	return int(n), err
}

func (c *pipeConn) Write(b []byte) (int, error) {
	var n uint32
	err := syscall.WriteFile(c.handle, b, &n, nil)
	return int(n), err
}

func (c *pipeConn) Close() error {
	procDisconnectNamedPipe.Call(uintptr(c.handle))
	return syscall.CloseHandle(c.handle)
}

func (c *pipeConn) LocalAddr() net.Addr  { return pipeAddr(c.name) }
func (c *pipeConn) RemoteAddr() net.Addr { return pipeAddr(c.name) }

// Named pipe deadlines would need overlapped I/O; requests are small
// and local, so these are no-ops.
func (c *pipeConn) SetDeadline(time.Time) error      { return nil }
func (c *pipeConn) SetReadDeadline(time.Time) error  { return nil }
func (c *pipeConn) SetWriteDeadline(time.Time) error { return nil }

type pipeAddr string

func (a pipeAddr) Network() string { return "pipe" }
func (a pipeAddr) String() string  { return string(a) }
