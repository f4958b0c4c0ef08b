// Package uinputdev implements the uinput-backed target family (C5): the
// generic virtual gamepad, mouse, keyboard, touchpad, and touchscreen. The
// gamepad, mouse, touchpad, and touchscreen declare an evdev capability
// bitmap at creation (spec §4.6) then write (type,code,value) frames through
// pkg/uinput; the keyboard is built on github.com/ThomasT75/uinput.
package uinputdev

// Linux evdev event codes this package emits (linux/input-event-codes.h).
// Only the subset the capability taxonomy in pkg/capability actually
// produces is declared; unlike the teacher's hidraw-facing const tables
// these are destinations, not parsed inputs.
const (
	btnSouth  = 0x130 // BTN_SOUTH / BTN_A
	btnEast   = 0x131 // BTN_EAST / BTN_B
	btnNorth  = 0x133 // BTN_NORTH / BTN_X
	btnWest   = 0x134 // BTN_WEST / BTN_Y
	btnTL     = 0x136
	btnTR     = 0x137
	btnTL2    = 0x138
	btnTR2    = 0x139
	btnSelect = 0x13a
	btnStart  = 0x13b
	btnMode   = 0x13c // Guide
	btnThumbL = 0x13d
	btnThumbR = 0x13e

	btnDPadUp    = 0x220
	btnDPadDown  = 0x221
	btnDPadLeft  = 0x222
	btnDPadRight = 0x223

	btnLeft   = 0x110 // BTN_LEFT (mouse)
	btnRight  = 0x111
	btnMiddle = 0x112

	absX     = 0x00
	absY     = 0x01
	absZ     = 0x02 // left trigger, when exposed as an axis
	absRX    = 0x03
	absRY    = 0x04
	absRZ    = 0x05 // right trigger
	absHat0X = 0x10
	absHat0Y = 0x11

	relX     = 0x00
	relY     = 0x01
	relWheel = 0x08

	axisRange = 32767 // symmetric signed range for sticks
)

// keyCodes maps the subset of keyboard.key.* capability names this codebase
// needs onto KEY_* codes (linux/input-event-codes.h). Lowercase letters and
// digits follow the US QWERTY layout; everything else is named explicitly,
// matching how a capability map's YAML would spell it.
var keyCodes = map[string]uint16{
	"a": 30, "b": 48, "c": 46, "d": 32, "e": 18, "f": 33, "g": 34, "h": 35,
	"i": 23, "j": 36, "k": 37, "l": 38, "m": 50, "n": 49, "o": 24, "p": 25,
	"q": 16, "r": 19, "s": 31, "t": 20, "u": 22, "v": 47, "w": 17, "x": 45,
	"y": 21, "z": 44,
	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6, "6": 7, "7": 8, "8": 9, "9": 10, "0": 11,
	"esc": 1, "f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
	"f17": 187,
	"minus": 12, "equal": 13, "backspace": 14, "tab": 15,
	"leftbrace": 26, "rightbrace": 27, "enter": 28, "leftctrl": 29,
	"semicolon": 39, "apostrophe": 40, "grave": 41, "leftshift": 42,
	"backslash": 43, "comma": 51, "dot": 52, "slash": 53, "rightshift": 54,
	"kpasterisk": 55, "leftalt": 56, "space": 57, "capslock": 58,
	"numlock": 69, "scrolllock": 70,
	"rightctrl": 97, "rightalt": 100, "home": 102, "up": 103, "pageup": 104,
	"left": 105, "right": 106, "end": 107, "down": 108, "pagedown": 109,
	"insert": 110, "delete": 111, "leftmeta": 125, "rightmeta": 126,
}

func keyCode(name string) (uint16, bool) {
	code, ok := keyCodes[name]
	return code, ok
}
