package keyboard

// Scancode set 1 make codes for the US 104-key layout. Break codes are the make
// code with bit 7 set.
const (
	scEscape     = 0x01
	scBackspace  = 0x0E
	scTab        = 0x0F
	scEnter      = 0x1C
	scLeftCtrl   = 0x1D
	scLeftShift  = 0x2A
	scRightShift = 0x36
	scLeftAlt    = 0x38
	scSpace      = 0x39
	scCapsLock   = 0x3A
	scNumLock    = 0x45
	scScrollLock = 0x46

	scExtended = 0xE0
	breakBit   = 0x80
)

var unshifted = [0x59]rune{
	0x01: 0x1b,
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=', 0x0E: '\b', 0x0F: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1A: '[', 0x1B: ']', 0x1C: '\n',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l',
	0x27: ';', 0x28: '\'', 0x29: '`', 0x2B: '\\',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm',
	0x33: ',', 0x34: '.', 0x35: '/',
	0x37: '*', 0x39: ' ',
	// keypad, num lock on
	0x47: '7', 0x48: '8', 0x49: '9', 0x4A: '-',
	0x4B: '4', 0x4C: '5', 0x4D: '6', 0x4E: '+',
	0x4F: '1', 0x50: '2', 0x51: '3', 0x52: '0', 0x53: '.',
}

var shifted = [0x59]rune{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x0C: '_', 0x0D: '+',
	0x1A: '{', 0x1B: '}',
	0x27: ':', 0x28: '"', 0x29: '~', 0x2B: '|',
	0x33: '<', 0x34: '>', 0x35: '?',
}

// KeyCode names keys that have no character.
type KeyCode uint8

const (
	KeyNone KeyCode = iota
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyNumLock
	KeyScrollLock
)

var keyNames = [...]string{
	KeyNone:       "None",
	KeyF1:         "F1",
	KeyF2:         "F2",
	KeyF3:         "F3",
	KeyF4:         "F4",
	KeyF5:         "F5",
	KeyF6:         "F6",
	KeyF7:         "F7",
	KeyF8:         "F8",
	KeyF9:         "F9",
	KeyF10:        "F10",
	KeyF11:        "F11",
	KeyF12:        "F12",
	KeyArrowUp:    "ArrowUp",
	KeyArrowDown:  "ArrowDown",
	KeyArrowLeft:  "ArrowLeft",
	KeyArrowRight: "ArrowRight",
	KeyHome:       "Home",
	KeyEnd:        "End",
	KeyPageUp:     "PageUp",
	KeyPageDown:   "PageDown",
	KeyInsert:     "Insert",
	KeyDelete:     "Delete",
	KeyNumLock:    "NumLock",
	KeyScrollLock: "ScrollLock",
}

func (k KeyCode) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "Unknown"
}

var extendedKeys = map[byte]KeyCode{
	0x48: KeyArrowUp,
	0x50: KeyArrowDown,
	0x4B: KeyArrowLeft,
	0x4D: KeyArrowRight,
	0x47: KeyHome,
	0x4F: KeyEnd,
	0x49: KeyPageUp,
	0x51: KeyPageDown,
	0x52: KeyInsert,
	0x53: KeyDelete,
}

func functionKey(code byte) (KeyCode, bool) {
	switch {
	case code >= 0x3B && code <= 0x44:
		return KeyF1 + KeyCode(code-0x3B), true
	case code == 0x57:
		return KeyF11, true
	case code == 0x58:
		return KeyF12, true
	}
	return KeyNone, false
}

type keyStroke struct {
	code  byte
	shift bool
}

var strokes = make(map[rune]keyStroke)

func init() {
	// main block only; the keypad duplicates would shadow the digit row
	for code := byte(0x01); code < 0x3A; code++ {
		if r := unshifted[code]; r != 0 {
			if _, seen := strokes[r]; !seen {
				strokes[r] = keyStroke{code: code}
			}
		}
		if r := shifted[code]; r != 0 {
			strokes[r] = keyStroke{code: code, shift: true}
		}
		if r := unshifted[code]; r >= 'a' && r <= 'z' {
			strokes[r-'a'+'A'] = keyStroke{code: code, shift: true}
		}
	}
	strokes['\r'] = keyStroke{code: scEnter}
	strokes[0x7f] = keyStroke{code: scBackspace}
}

// AppendScancodes appends the make and break codes that type r on a US
// keyboard, wrapped in a shift press when needed. ok is false when the layout
// has no key for r.
func AppendScancodes(dst []byte, r rune) (out []byte, ok bool) {
	s, ok := strokes[r]
	if !ok {
		return dst, false
	}
	if s.shift {
		dst = append(dst, scLeftShift)
	}
	dst = append(dst, s.code, s.code|breakBit)
	if s.shift {
		dst = append(dst, scLeftShift|breakBit)
	}
	return dst, true
}
