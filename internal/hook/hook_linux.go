//go:build linux

package hook

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// LinuxHook reads key events from /dev/input/event* devices. There is
// no per-window focus signal at this layer, so all keystrokes share a
// single input context; a focus-aware front end can still reset the
// matcher through the engine.
type LinuxHook struct {
	BaseHook
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	devices []string
}

func newPlatformHook(opts Options) Hook {
	h := &LinuxHook{}
	h.init(opts)
	return h
}

// linuxContext is the single context ID used on Linux.
const linuxContext ContextID = 1

// Available checks that at least one keyboard device is readable.
func (h *LinuxHook) Available() (bool, string) {
	devices, err := findKeyboardDevices()
	if err != nil {
		return false, fmt.Sprintf("cannot enumerate input devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}
	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, fmt.Sprintf("found keyboard device: %s", dev)
		}
	}
	return false, "cannot read keyboard devices (need 'input' group membership or root)"
}

// findKeyboardDevices parses /proc/bus/input/devices for handlers
// whose key bitmap looks like a full keyboard.
func findKeyboardDevices() ([]string, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var devices []string
	scanner := bufio.NewScanner(f)
	var currentHandler string

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "H: Handlers=") {
			currentHandler = ""
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					currentHandler = "/dev/input/" + part
				}
			}
		}
		if strings.HasPrefix(line, "B: KEY=") {
			// A real keyboard advertises most of the low key codes;
			// mice and buttons expose only a few bits.
			bitmap := strings.TrimPrefix(line, "B: KEY=")
			if currentHandler != "" && len(strings.Fields(bitmap)) >= 4 {
				devices = append(devices, currentHandler)
				currentHandler = ""
			}
		}
	}
	return devices, scanner.Err()
}

// Start opens every readable keyboard device and spawns a reader per
// device.
func (h *LinuxHook) Start(ctx context.Context) error {
	if h.SetRunning(true) {
		return ErrAlreadyRunning
	}

	devices, err := findKeyboardDevices()
	if err != nil || len(devices) == 0 {
		h.SetRunning(false)
		return fmt.Errorf("%w: no keyboard devices", ErrRegistrationFailed)
	}

	var opened []*os.File
	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err != nil {
			continue
		}
		opened = append(opened, f)
		h.devices = append(h.devices, dev)
	}
	if len(opened) == 0 {
		h.SetRunning(false)
		return fmt.Errorf("%w: permission denied reading input devices", ErrRegistrationFailed)
	}

	readCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	for _, f := range opened {
		h.wg.Add(1)
		go h.readDevice(readCtx, f)
	}
	return nil
}

// inputEvent mirrors struct input_event on 64-bit Linux.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

const (
	evKey         = 1
	keyPressValue = 1
)

func (h *LinuxHook) readDevice(ctx context.Context, f *os.File) {
	defer h.wg.Done()
	defer f.Close()

	go func() {
		<-ctx.Done()
		f.Close() // unblocks the Read below
	}()

	var ev inputEvent
	for {
		if err := binary.Read(f, binary.LittleEndian, &ev); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if ev.Type != evKey || ev.Value != keyPressValue {
			continue
		}
		vk, ok := evdevToVK(ev.Code)
		if !ok {
			continue
		}
		kind := Classify(vk)
		if kind == KindIgnored {
			continue
		}
		out := Event{
			Context:   linuxContext,
			Kind:      kind,
			KeyCode:   vk,
			Timestamp: time.Now(),
		}
		if kind == KindCharacter {
			r, ok := VKToRune(vk)
			if !ok {
				continue
			}
			out.Rune = r
		}
		h.Emit(out)
	}
}

// Stop cancels the readers and closes the event channel.
func (h *LinuxHook) Stop() error {
	if !h.SetRunning(false) {
		return nil
	}
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	h.CloseEvents()
	return nil
}

// evdevToVK translates an evdev key code to the package's canonical
// virtual-key vocabulary (US layout).
func evdevToVK(code uint16) (uint16, bool) {
	if vk, ok := evdevVK[code]; ok {
		return vk, true
	}
	return 0, false
}

var evdevVK = map[uint16]uint16{
	1:  vkEscape,
	14: vkBack,
	15: vkTab,
	28: vkReturn,
	57: vkSpace,
	// digit row
	2: '1', 3: '2', 4: '3', 5: '4', 6: '5',
	7: '6', 8: '7', 9: '8', 10: '9', 11: '0',
	12: 0xBD, // minus
	13: 0xBB, // equals
	// letters, QWERTY rows
	16: 'Q', 17: 'W', 18: 'E', 19: 'R', 20: 'T', 21: 'Y', 22: 'U', 23: 'I', 24: 'O', 25: 'P',
	30: 'A', 31: 'S', 32: 'D', 33: 'F', 34: 'G', 35: 'H', 36: 'J', 37: 'K', 38: 'L',
	44: 'Z', 45: 'X', 46: 'C', 47: 'V', 48: 'B', 49: 'N', 50: 'M',
	// punctuation
	26: 0xDB, // [
	27: 0xDD, // ]
	39: 0xBA, // ;
	40: 0xDE, // '
	43: 0xDC, // backslash
	51: 0xBC, // ,
	52: 0xBE, // .
	53: 0xBF, // /
	// navigation
	102: vkHome, 103: vkUp, 104: vkPrior, 105: vkLeft,
	106: vkRight, 107: vkEnd, 108: vkDown, 109: vkNext,
	111: vkDelete,
}
