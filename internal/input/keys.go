// Package input merges the physical button pad and the keyboard stream into a
// single ordered queue of key transitions, and discriminates power-button
// taps from holds.
package input

// KeyEvent is one key transition.
type KeyEvent struct {
	Code      uint8 `json:"code"`
	Modifiers uint8 `json:"modifiers"`
	Pressed   bool  `json:"pressed"`
}

// USB HID keyboard usage codes used by the UI.
const (
	KeyA         uint8 = 0x04
	KeyZ         uint8 = 0x1D
	Key1         uint8 = 0x1E
	Key0         uint8 = 0x27
	KeyEnter     uint8 = 0x28
	KeyEscape    uint8 = 0x29
	KeyBackspace uint8 = 0x2A
	KeyTab       uint8 = 0x2B
	KeySpace     uint8 = 0x2C
	KeyMinus     uint8 = 0x2D
	KeySlash     uint8 = 0x38
	KeyF2        uint8 = 0x3B
	KeyDelete    uint8 = 0x4C
	KeyRight     uint8 = 0x4F
	KeyLeft      uint8 = 0x50
	KeyDown      uint8 = 0x51
	KeyUp        uint8 = 0x52
)

// HID modifier bits.
const (
	ModLeftCtrl   uint8 = 0x01
	ModLeftShift  uint8 = 0x02
	ModLeftAlt    uint8 = 0x04
	ModLeftGUI    uint8 = 0x08
	ModRightCtrl  uint8 = 0x10
	ModRightShift uint8 = 0x20
	ModRightAlt   uint8 = 0x40
	ModRightGUI   uint8 = 0x80
)

// Ctrl reports whether either control key is held.
func Ctrl(mods uint8) bool { return mods&(ModLeftCtrl|ModRightCtrl) != 0 }

// Shift reports whether either shift key is held.
func Shift(mods uint8) bool { return mods&(ModLeftShift|ModRightShift) != 0 }

// Letter returns the usage code of an ASCII letter, either case.
func Letter(c byte) uint8 {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	if c < 'a' || c > 'z' {
		return 0
	}
	return KeyA + (c - 'a')
}

type pair struct{ plain, shifted byte }

// punctuation from KeySpace upward, US layout.
var punctuation = map[uint8]pair{
	KeySpace: {' ', ' '},
	0x2D:     {'-', '_'},
	0x2E:     {'=', '+'},
	0x2F:     {'[', '{'},
	0x30:     {']', '}'},
	0x31:     {'\\', '|'},
	0x33:     {';', ':'},
	0x34:     {'\'', '"'},
	0x35:     {'`', '~'},
	0x36:     {',', '<'},
	0x37:     {'.', '>'},
	0x38:     {'/', '?'},
}

const shiftedDigits = "!@#$%^&*()"

// HidToASCII translates a usage code to the printable character it produces
// on a US layout, or 0 when it produces none.
func HidToASCII(code, mods uint8) byte {
	shift := Shift(mods)
	switch {
	case code >= KeyA && code <= KeyZ:
		c := 'a' + (code - KeyA)
		if shift {
			c -= 'a' - 'A'
		}
		return c
	case code >= Key1 && code <= Key0:
		i := code - Key1
		if shift {
			return shiftedDigits[i]
		}
		if code == Key0 {
			return '0'
		}
		return '1' + i
	}
	if p, ok := punctuation[code]; ok {
		if shift {
			return p.shifted
		}
		return p.plain
	}
	return 0
}

// ASCIIToHid is the inverse of HidToASCII for the simulator's key injection.
// ok is false for characters no single key produces.
func ASCIIToHid(c byte) (code, mods uint8, ok bool) {
	switch {
	case c >= 'a' && c <= 'z':
		return Letter(c), 0, true
	case c >= 'A' && c <= 'Z':
		return Letter(c), ModLeftShift, true
	case c >= '1' && c <= '9':
		return Key1 + (c - '1'), 0, true
	case c == '0':
		return Key0, 0, true
	case c == '\n' || c == '\r':
		return KeyEnter, 0, true
	case c == '\t':
		return KeyTab, 0, true
	case c == 0x7f || c == '\b':
		return KeyBackspace, 0, true
	case c == 0x1b:
		return KeyEscape, 0, true
	}
	for i := 0; i < len(shiftedDigits); i++ {
		if shiftedDigits[i] == c {
			return Key1 + uint8(i), ModLeftShift, true
		}
	}
	for code, p := range punctuation {
		if p.plain == c {
			return code, 0, true
		}
		if p.shifted == c {
			return code, ModLeftShift, true
		}
	}
	return 0, 0, false
}
