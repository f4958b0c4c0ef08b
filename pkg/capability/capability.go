// Package capability defines the canonical capability taxonomy and the
// normalized native/capability event types that flow through a composite
// device's pipeline.
package capability

import "fmt"

// Class groups capabilities by the physical input modality that produces them.
type Class string

const (
	ClassButton  Class = "button"
	ClassAxis    Class = "axis"
	ClassTrigger Class = "trigger"
	ClassTouch   Class = "touch"
	ClassMotion  Class = "motion" // second segment "motion", e.g. "pointer.motion"
	ClassKey     Class = "key"    // keyboard scancodes
	ClassPointer Class = "pointer"
	ClassDbus    Class = "dbus" // synthetic, bus-only capability
)

// Capability identifies one logical signal a source or target can carry,
// e.g. "gamepad.button.south" or "keyboard.key.a". Capability strings are
// opaque dotted identifiers; the taxonomy only constrains structure, not an
// exhaustive enum, so new device families can introduce new leaves without
// changing this package.
type Capability string

// Class derives the broad class of a capability from its second path
// segment, e.g. "gamepad.button.south" -> ClassButton.
func (c Capability) Class() Class {
	parts := splitDots(string(c))
	if len(parts) < 2 {
		return ""
	}
	if parts[0] == "dbus" {
		return ClassDbus
	}
	switch parts[1] {
	case "button":
		return ClassButton
	case "axis":
		return ClassAxis
	case "trigger":
		return ClassTrigger
	case "touch":
		return ClassTouch
	case "motion":
		return ClassMotion
	case "key":
		return ClassKey
	case "pointer":
		return ClassPointer
	default:
		return ""
	}
}

func splitDots(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// Well-known capability identifiers shared across source decoders, capability
// maps, profiles, and targets.
const (
	GamepadButtonSouth  Capability = "gamepad.button.south"
	GamepadButtonEast   Capability = "gamepad.button.east"
	GamepadButtonNorth  Capability = "gamepad.button.north"
	GamepadButtonWest   Capability = "gamepad.button.west"
	GamepadButtonL1     Capability = "gamepad.button.l1"
	GamepadButtonR1     Capability = "gamepad.button.r1"
	GamepadButtonL3     Capability = "gamepad.button.l3"
	GamepadButtonR3     Capability = "gamepad.button.r3"
	GamepadButtonStart  Capability = "gamepad.button.start"
	GamepadButtonSelect Capability = "gamepad.button.select"
	GamepadButtonGuide  Capability = "gamepad.button.guide"
	GamepadButtonQAM    Capability = "gamepad.button.qam" // quick-access-menu chord target

	GamepadDPadUp    Capability = "gamepad.button.dpad_up"
	GamepadDPadDown  Capability = "gamepad.button.dpad_down"
	GamepadDPadLeft  Capability = "gamepad.button.dpad_left"
	GamepadDPadRight Capability = "gamepad.button.dpad_right"

	GamepadAxisLeftX  Capability = "gamepad.axis.left_x"
	GamepadAxisLeftY  Capability = "gamepad.axis.left_y"
	GamepadAxisRightX Capability = "gamepad.axis.right_x"
	GamepadAxisRightY Capability = "gamepad.axis.right_y"

	GamepadTriggerL2 Capability = "gamepad.trigger.l2"
	GamepadTriggerR2 Capability = "gamepad.trigger.r2"

	TouchpadMotion Capability = "touch.touchpad.motion"
	TouchscreenTap Capability = "touch.touchscreen.motion"

	MotionAccelerometer Capability = "motion.accel"
	MotionGyroscope     Capability = "motion.gyro"

	PointerMotion Capability = "pointer.motion"
	PointerWheel  Capability = "pointer.wheel"

	MouseButtonLeft   Capability = "pointer.button.left"
	MouseButtonRight  Capability = "pointer.button.right"
	MouseButtonMiddle Capability = "pointer.button.middle"

	GamepadButtonQAM2     Capability = "gamepad.button.qam2"
	GamepadButtonLeftPaddle1  Capability = "gamepad.button.left_paddle1"
	GamepadButtonLeftPaddle2  Capability = "gamepad.button.left_paddle2"
	GamepadButtonRightPaddle1 Capability = "gamepad.button.right_paddle1"
	GamepadButtonRightPaddle2 Capability = "gamepad.button.right_paddle2"
	GamepadButtonLeftTop      Capability = "gamepad.button.left_top"
	GamepadButtonRightTop     Capability = "gamepad.button.right_top"
	GamepadButtonKeyboard     Capability = "gamepad.button.keyboard"

	GamepadTouchpadForceLeft  Capability = "gamepad.trigger.left_touchpad_force"
	GamepadTouchpadForceRight Capability = "gamepad.trigger.right_touchpad_force"
	GamepadStickForceLeft     Capability = "gamepad.trigger.left_stick_force"
	GamepadStickForceRight    Capability = "gamepad.trigger.right_stick_force"
)

// DbusCapability builds the capability identifier for a synthetic bus-only
// code, e.g. DbusCapability("menu") -> "dbus.code.menu". These never reach a
// kernel target; only the bus target (pkg/target/bustarget) accepts them.
func DbusCapability(code string) Capability {
	return Capability(fmt.Sprintf("dbus.code.%s", code))
}

// KeyboardKey builds the capability identifier for a named keyboard key,
// e.g. KeyboardKey("a") -> "keyboard.key.a".
func KeyboardKey(name string) Capability {
	return Capability(fmt.Sprintf("keyboard.key.%s", name))
}
