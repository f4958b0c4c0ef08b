package uinputdev

import (
	"fmt"
	"sync"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/target"
	"github.com/inputmux/inputmuxd/pkg/uinput"
)

func init() {
	target.Register("uinput.gamepad", newGamepad)
}

// buttonCodes maps the generic-gamepad-relevant capability identifiers onto
// evdev BTN_* codes.
var buttonCodes = map[capability.Capability]uint16{
	capability.GamepadButtonSouth:  btnSouth,
	capability.GamepadButtonEast:   btnEast,
	capability.GamepadButtonNorth:  btnNorth,
	capability.GamepadButtonWest:   btnWest,
	capability.GamepadButtonL1:     btnTL,
	capability.GamepadButtonR1:     btnTR,
	capability.GamepadButtonL3:     btnThumbL,
	capability.GamepadButtonR3:     btnThumbR,
	capability.GamepadButtonStart:  btnStart,
	capability.GamepadButtonSelect: btnSelect,
	capability.GamepadButtonGuide:  btnMode,
	capability.GamepadDPadUp:       btnDPadUp,
	capability.GamepadDPadDown:     btnDPadDown,
	capability.GamepadDPadLeft:     btnDPadLeft,
	capability.GamepadDPadRight:    btnDPadRight,
}

// axisCodes maps gamepad stick capabilities onto evdev ABS_* codes.
var axisCodes = map[capability.Capability]uint16{
	capability.GamepadAxisLeftX:  absX,
	capability.GamepadAxisLeftY:  absY,
	capability.GamepadAxisRightX: absRX,
	capability.GamepadAxisRightY: absRY,
}

var triggerCodes = map[capability.Capability]uint16{
	capability.GamepadTriggerL2: absZ,
	capability.GamepadTriggerR2: absRZ,
}

// Gamepad is the generic virtual gamepad uinput target ("uinput.gamepad"),
// the unbranded alternative to the HID emulations in pkg/target/hidtarget.
// A composite device writes to it only when its configuration lists it.
type Gamepad struct {
	name string
	dev  *uinput.Device
	mu   sync.Mutex
	caps []capability.Capability

	target.Lifecycle
}

func newGamepad(name string, _ map[string]any) (target.Target, error) {
	dev, err := uinput.Open()
	if err != nil {
		return nil, fmt.Errorf("uinput gamepad %s: %w", name, err)
	}
	if err := dev.EnableEventType(uinput.EvKey); err != nil {
		return nil, err
	}
	caps := make([]capability.Capability, 0, len(buttonCodes)+len(axisCodes)+len(triggerCodes))
	for c, code := range buttonCodes {
		if err := dev.EnableKey(code); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	if err := dev.EnableEventType(uinput.EvAbs); err != nil {
		return nil, err
	}
	for c, code := range axisCodes {
		if err := dev.EnableAbs(code, -axisRange, axisRange); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	for c, code := range triggerCodes {
		if err := dev.EnableAbs(code, 0, 255); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	if err := dev.EnableAbs(absHat0X, -1, 1); err != nil {
		return nil, err
	}
	if err := dev.EnableAbs(absHat0Y, -1, 1); err != nil {
		return nil, err
	}
	if err := dev.Create("inputmuxd virtual gamepad", 0x045e, 0x028e, 1); err != nil {
		return nil, err
	}
	g := &Gamepad{name: name, dev: dev, caps: caps}
	g.Set(target.StateRunning)
	return g, nil
}

func (g *Gamepad) Name() string                         { return g.name }
func (g *Gamepad) Capabilities() []capability.Capability { return g.caps }

func (g *Gamepad) Accept(ev nativeevent.CapabilityEvent) {
	if g.State() != target.StateRunning {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if code, ok := buttonCodes[ev.Capability]; ok {
		v := int32(0)
		if ev.Pressed || ev.Value != 0 {
			v = 1
		}
		_ = g.dev.WriteEvent(uinput.EvKey, code, v, true)
		return
	}
	if code, ok := axisCodes[ev.Capability]; ok {
		_ = g.dev.WriteEvent(uinput.EvAbs, code, int32(ev.Value*axisRange), true)
		return
	}
	if code, ok := triggerCodes[ev.Capability]; ok {
		_ = g.dev.WriteEvent(uinput.EvAbs, code, int32(ev.Value*255), true)
		return
	}
}

// Close drains to neutral state (every button released, every axis
// centered) before releasing the uinput handle, per spec §4.6's
// Draining state.
func (g *Gamepad) Close() error {
	if g.State() == target.StateClosed {
		return nil
	}
	g.Set(target.StateDraining)
	g.mu.Lock()
	for _, code := range buttonCodes {
		_ = g.dev.WriteEvent(uinput.EvKey, code, 0, true)
	}
	for _, code := range axisCodes {
		_ = g.dev.WriteEvent(uinput.EvAbs, code, 0, true)
	}
	for _, code := range triggerCodes {
		_ = g.dev.WriteEvent(uinput.EvAbs, code, 0, true)
	}
	_ = g.dev.WriteEvent(uinput.EvAbs, absHat0X, 0, true)
	_ = g.dev.WriteEvent(uinput.EvAbs, absHat0Y, 0, true)
	g.mu.Unlock()
	err := g.dev.Close()
	g.Set(target.StateClosed)
	return err
}
