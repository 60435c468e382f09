package alarm

// Key is one decoded keypad event.
//
// Digits are represented by their ASCII value so they can be appended to a
// session buffer as is; control keys live outside the digit range.
type Key byte

// Control keys of the 4x4 matrix keypad.
const (
	// KeyNone marks a raw code that decodes to nothing and must be ignored.
	KeyNone Key = 0
	// KeyArm arms the system from Disarmed ('*').
	KeyArm Key = 0x80 + iota
	// KeyMenu opens the password menu or starts disarming ('#').
	KeyMenu
	// KeyChange selects "change password" after verification ('A').
	KeyChange
	// KeyCancel leaves the password menu without changes ('B').
	KeyCancel
	// KeyBackspace removes the last entered digit ('C').
	KeyBackspace
	// KeySubmit submits the entered digits ('D').
	KeySubmit
)

// DigitKey returns the key for decimal digit d (0..9).
func DigitKey(d int) Key {
	return Key('0' + byte(d))
}

// IsDigit reports whether k is one of the ten digit keys.
func (k Key) IsDigit() bool {
	return IsDigit(byte(k))
}

// Char returns the ASCII digit of a digit key and 0 for anything else.
func (k Key) Char() byte {
	if !k.IsDigit() {
		return 0
	}

	return byte(k)
}

// String returns a short name suitable for logs.
func (k Key) String() string {
	if k.IsDigit() {
		return string(rune(k))
	}

	switch k {
	case KeyArm:
		return "arm"
	case KeyMenu:
		return "menu"
	case KeyChange:
		return "change"
	case KeyCancel:
		return "cancel"
	case KeyBackspace:
		return "backspace"
	case KeySubmit:
		return "submit"
	case KeyNone:
		return "none"
	default:
		return "unknown"
	}
}
