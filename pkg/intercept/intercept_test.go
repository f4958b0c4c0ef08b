package intercept

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

func TestModeNoneRoutesTargetsOnly(t *testing.T) {
	g := New()
	ev := nativeevent.CapabilityEvent{Capability: capability.GamepadButtonSouth}
	assert.Equal(t, DestTargets, g.Route(ev))
}

func TestModePassRoutesNonGuideToTargetsOnly(t *testing.T) {
	g := New()
	g.SetMode(ModePass)
	ev := nativeevent.CapabilityEvent{Capability: capability.GamepadButtonSouth}
	assert.Equal(t, DestTargets, g.Route(ev))
	assert.Equal(t, ModePass, g.Mode())
}

func TestModePassGuideGoesToBusAndArmsModeAll(t *testing.T) {
	g := New()
	g.SetMode(ModePass)
	guide := nativeevent.CapabilityEvent{Capability: capability.GamepadButtonGuide}
	assert.Equal(t, DestBus, g.Route(guide))
	assert.Equal(t, ModeAll, g.Mode())

	south := nativeevent.CapabilityEvent{Capability: capability.GamepadButtonSouth}
	assert.Equal(t, DestBus, g.Route(south))
}

func TestModeAllRoutesBusOnly(t *testing.T) {
	g := New()
	g.SetMode(ModeAll)
	ev := nativeevent.CapabilityEvent{Capability: capability.KeyboardKey("a")}
	assert.Equal(t, DestBus, g.Route(ev))
}

func TestModeGamepadOnlyLeavesKeyboardAlone(t *testing.T) {
	g := New()
	g.SetMode(ModeGamepadOnly)
	gamepadEv := nativeevent.CapabilityEvent{Capability: capability.GamepadButtonSouth}
	keyEv := nativeevent.CapabilityEvent{Capability: capability.KeyboardKey("a")}
	assert.Equal(t, DestBus, g.Route(gamepadEv))
	assert.Equal(t, DestTargets, g.Route(keyEv))
}
