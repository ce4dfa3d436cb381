package hook

// Virtual-key codes used across the package. The Windows VK set is the
// canonical vocabulary; the Linux reader translates evdev codes into
// it before classification.
const (
	vkBack    = 0x08
	vkTab     = 0x09
	vkReturn  = 0x0D
	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12 // Alt
	vkEscape  = 0x1B
	vkSpace   = 0x20
	vkPrior   = 0x21 // Page Up
	vkNext    = 0x22 // Page Down
	vkEnd     = 0x23
	vkHome    = 0x24
	vkLeft    = 0x25
	vkUp      = 0x26
	vkRight   = 0x27
	vkDown    = 0x28
	vkDelete  = 0x2E
	vkLWin    = 0x5B
	vkRWin    = 0x5C
)

// Classify maps a virtual-key code to the event kind the matcher
// cares about. Modifiers and function keys are ignored outright;
// navigation and editing keys cancel buffering.
func Classify(vk uint16) Kind {
	switch {
	case vk == vkBack:
		return KindBackspace
	case vk == vkTab, vk == vkReturn, vk == vkEscape, vk == vkDelete:
		return KindControl
	case vk >= vkPrior && vk <= vkDown:
		return KindControl
	case vk == vkShift, vk == vkControl, vk == vkMenu, vk == vkLWin, vk == vkRWin:
		return KindIgnored
	case vk >= 0xA0 && vk <= 0xA5: // L/R shift, control, alt
		return KindIgnored
	case vk >= 0x70 && vk <= 0x87: // F1-F24
		return KindIgnored
	default:
		if _, ok := VKToRune(vk); ok {
			return KindCharacter
		}
		return KindIgnored
	}
}

// VKToRune translates a virtual-key code to the character it produces
// on an unmodified US layout. Letters come out lowercase; the matcher
// handles case folding itself when configured. Keys with no printable
// meaning report ok == false.
func VKToRune(vk uint16) (rune, bool) {
	switch {
	case vk == vkSpace:
		return ' ', true
	case vk >= '0' && vk <= '9':
		return rune(vk), true
	case vk >= 'A' && vk <= 'Z':
		return rune(vk-'A') + 'a', true
	case vk >= 0x60 && vk <= 0x69: // numpad digits
		return rune(vk-0x60) + '0', true
	}

	switch vk {
	case 0x6A:
		return '*', true
	case 0x6B:
		return '+', true
	case 0x6D:
		return '-', true
	case 0x6E:
		return '.', true
	case 0x6F:
		return '/', true
	case 0xBA:
		return ';', true
	case 0xBB:
		return '=', true
	case 0xBC:
		return ',', true
	case 0xBD:
		return '-', true
	case 0xBE:
		return '.', true
	case 0xBF:
		return '/', true
	case 0xC0:
		return '@', true
	case 0xDB:
		return '[', true
	case 0xDC:
		return '\\', true
	case 0xDD:
		return ']', true
	case 0xDE:
		return '\'', true
	case 0xE2:
		return '_', true
	}

	return 0, false
}
