package keyboard

import "fmt"

// DecodedKey is either a character (Raw == KeyNone) or a key without one.
type DecodedKey struct {
	Rune rune
	Raw  KeyCode
}

// IsRune reports whether the key produced a character.
func (k DecodedKey) IsRune() bool { return k.Raw == KeyNone }

func (k DecodedKey) String() string {
	if k.IsRune() {
		return fmt.Sprintf("%q", k.Rune)
	}
	return k.Raw.String()
}

// Decoder is a scancode set 1 state machine for the US layout. Control
// combinations are not mapped: ctrl+c decodes as 'c'.
type Decoder struct {
	leftShift  bool
	rightShift bool
	capsLock   bool
	extended   bool
}

// AddByte feeds one scancode and returns the key it completes, if any.
func (d *Decoder) AddByte(b byte) (DecodedKey, bool) {
	if b == scExtended {
		d.extended = true
		return DecodedKey{}, false
	}
	release := b&breakBit != 0
	code := b &^ breakBit

	if d.extended {
		d.extended = false
		return d.extendedKey(code, release)
	}

	switch code {
	case scLeftShift:
		d.leftShift = !release
		return DecodedKey{}, false
	case scRightShift:
		d.rightShift = !release
		return DecodedKey{}, false
	case scCapsLock:
		if !release {
			d.capsLock = !d.capsLock
		}
		return DecodedKey{}, false
	case scLeftCtrl, scLeftAlt:
		return DecodedKey{}, false
	}
	if release {
		return DecodedKey{}, false
	}

	switch code {
	case scNumLock:
		return DecodedKey{Raw: KeyNumLock}, true
	case scScrollLock:
		return DecodedKey{Raw: KeyScrollLock}, true
	}
	if k, ok := functionKey(code); ok {
		return DecodedKey{Raw: k}, true
	}
	if int(code) >= len(unshifted) {
		return DecodedKey{}, false
	}

	r := unshifted[code]
	if r == 0 {
		return DecodedKey{}, false
	}
	shift := d.leftShift || d.rightShift
	switch {
	case r >= 'a' && r <= 'z':
		if shift != d.capsLock {
			r = r - 'a' + 'A'
		}
	case shift && shifted[code] != 0:
		r = shifted[code]
	}
	return DecodedKey{Rune: r}, true
}

func (d *Decoder) extendedKey(code byte, release bool) (DecodedKey, bool) {
	if release {
		return DecodedKey{}, false
	}
	switch code {
	case scEnter:
		return DecodedKey{Rune: '\n'}, true
	case 0x35:
		return DecodedKey{Rune: '/'}, true
	case scLeftCtrl, scLeftAlt:
		// right ctrl / right alt
		return DecodedKey{}, false
	}
	if k, ok := extendedKeys[code]; ok {
		return DecodedKey{Raw: k}, true
	}
	return DecodedKey{}, false
}
