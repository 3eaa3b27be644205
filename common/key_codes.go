package common

// KeyCode is a platform-neutral key or mouse-button identifier delivered to window controllers.
// Printable keys use their ASCII value, matching GLFW key numbering.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
type KeyCode uint32

const (
	KeyUnknown KeyCode = 0

	KeySpace KeyCode = 32
	KeyMinus KeyCode = 45
	KeyPlus  KeyCode = 61 // the '=' / '+' key

	Key0 KeyCode = 48
	Key1 KeyCode = 49
	Key2 KeyCode = 50
	Key3 KeyCode = 51
	Key4 KeyCode = 52
	Key5 KeyCode = 53
	Key6 KeyCode = 54
	Key7 KeyCode = 55
	Key8 KeyCode = 56
	Key9 KeyCode = 57

	KeyA KeyCode = 65
	KeyB KeyCode = 66
	KeyC KeyCode = 67
	KeyD KeyCode = 68
	KeyE KeyCode = 69
	KeyF KeyCode = 70
	KeyG KeyCode = 71
	KeyH KeyCode = 72
	KeyI KeyCode = 73
	KeyJ KeyCode = 74
	KeyK KeyCode = 75
	KeyL KeyCode = 76
	KeyM KeyCode = 77
	KeyN KeyCode = 78
	KeyO KeyCode = 79
	KeyP KeyCode = 80
	KeyQ KeyCode = 81
	KeyR KeyCode = 82
	KeyS KeyCode = 83
	KeyT KeyCode = 84
	KeyU KeyCode = 85
	KeyV KeyCode = 86
	KeyW KeyCode = 87
	KeyX KeyCode = 88
	KeyY KeyCode = 89
	KeyZ KeyCode = 90

	KeyEscape      KeyCode = 256
	KeyEnter       KeyCode = 257
	KeyPrintScreen KeyCode = 283
	KeyKPSubtract  KeyCode = 333
	KeyKPAdd       KeyCode = 334

	// Mouse buttons share the key space above the GLFW key range.
	KeyMouseLeft   KeyCode = 1000
	KeyMouseRight  KeyCode = 1001
	KeyMouseMiddle KeyCode = 1002
)

// KeyCodeFromPlatform maps a raw GLFW key number to a KeyCode. Keys outside the supported
// set map to KeyUnknown; the keypad plus and minus keys fold onto KeyPlus and KeyMinus.
//
// Parameters:
//   - key: the GLFW key number
//
// Returns:
//   - KeyCode: the mapped key
func KeyCodeFromPlatform(key int) KeyCode {
	k := KeyCode(key)
	switch {
	case k >= KeyA && k <= KeyZ, k >= Key0 && k <= Key9:
		return k
	}
	switch k {
	case KeySpace, KeyMinus, KeyPlus, KeyEscape, KeyEnter, KeyPrintScreen:
		return k
	case KeyKPAdd:
		return KeyPlus
	case KeyKPSubtract:
		return KeyMinus
	}
	return KeyUnknown
}

// MouseButtonKeyCode maps a GLFW mouse button number (0 left, 1 right, 2 middle) to a KeyCode.
//
// Parameters:
//   - button: the GLFW mouse button number
//
// Returns:
//   - KeyCode: the mapped button, or KeyUnknown
func MouseButtonKeyCode(button int) KeyCode {
	switch button {
	case 0:
		return KeyMouseLeft
	case 1:
		return KeyMouseRight
	case 2:
		return KeyMouseMiddle
	}
	return KeyUnknown
}
