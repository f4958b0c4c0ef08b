package uinputdev

import (
	"testing"

	"github.com/inputmux/inputmuxd/pkg/capability"

	"github.com/stretchr/testify/assert"
)

func TestKeyCodeKnownKey(t *testing.T) {
	code, ok := keyCode("a")
	assert.True(t, ok)
	assert.Equal(t, uint16(30), code)
}

func TestKeyCodeUnknownKey(t *testing.T) {
	_, ok := keyCode("nonexistent-key")
	assert.False(t, ok)
}

func TestKeyCodesHaveNoDuplicateValues(t *testing.T) {
	seen := map[uint16]string{}
	for name, code := range keyCodes {
		if other, dup := seen[code]; dup {
			t.Fatalf("keys %q and %q share code %d", name, other, code)
		}
		seen[code] = name
	}
}

func TestButtonCodesCoverAllGenericGamepadButtons(t *testing.T) {
	want := []capability.Capability{
		capability.GamepadButtonSouth, capability.GamepadButtonEast,
		capability.GamepadButtonNorth, capability.GamepadButtonWest,
		capability.GamepadButtonL1, capability.GamepadButtonR1,
		capability.GamepadButtonL3, capability.GamepadButtonR3,
		capability.GamepadButtonStart, capability.GamepadButtonSelect,
		capability.GamepadButtonGuide,
		capability.GamepadDPadUp, capability.GamepadDPadDown,
		capability.GamepadDPadLeft, capability.GamepadDPadRight,
	}
	for _, c := range want {
		_, ok := buttonCodes[c]
		assert.Truef(t, ok, "missing evdev code for %s", c)
	}
}

func TestAxisAndTriggerCodesAreDisjointFromButtonCodes(t *testing.T) {
	for c := range axisCodes {
		_, ok := buttonCodes[c]
		assert.False(t, ok, "capability %s present in both axisCodes and buttonCodes", c)
	}
	for c := range triggerCodes {
		_, ok := buttonCodes[c]
		assert.False(t, ok, "capability %s present in both triggerCodes and buttonCodes", c)
	}
}
