package hidtarget

import (
	"fmt"
	"sync"

	"github.com/inputmux/inputmuxd/device/xbox360"
	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/target"
	"github.com/inputmux/inputmuxd/pkg/uhid"
)

func init() {
	target.Register("hid.xbox360", func(name string, opts map[string]any) (target.Target, error) {
		return newXbox360(name, opts, variantXbox360)
	})
	target.Register("hid.xboxone", func(name string, opts map[string]any) (target.Target, error) {
		return newXbox360(name, opts, variantXboxOne)
	})
	target.Register("hid.xboxelite", func(name string, opts map[string]any) (target.Target, error) {
		return newXbox360(name, opts, variantXboxElite)
	})
}

type xboxVariant int

const (
	variantXbox360 xboxVariant = iota
	variantXboxOne
	variantXboxElite
)

// xboxButtonBits maps capability identifiers onto xbox360.Button* bitmask
// values. Xbox One/Series and Xbox Elite controllers report the same
// wired-360 button layout over their own USB protocol in practice (the
// family this brand's HID emulation targets); Elite additionally uses the
// paddle bits spec §3 lists (LeftPaddle1/2, RightPaddle1/2), folded into the
// otherwise-unused high half of the 32-bit button field since the teacher's
// wire format only defines the low 16 bits for the wired-360 report.
var xboxButtonBits = map[capability.Capability]uint32{
	capability.GamepadButtonSouth:  xbox360.ButtonA,
	capability.GamepadButtonEast:   xbox360.ButtonB,
	capability.GamepadButtonWest:   xbox360.ButtonX,
	capability.GamepadButtonNorth:  xbox360.ButtonY,
	capability.GamepadDPadUp:       xbox360.ButtonDPadUp,
	capability.GamepadDPadDown:     xbox360.ButtonDPadDown,
	capability.GamepadDPadLeft:     xbox360.ButtonDPadLeft,
	capability.GamepadDPadRight:    xbox360.ButtonDPadRight,
	capability.GamepadButtonStart:  xbox360.ButtonStart,
	capability.GamepadButtonSelect: xbox360.ButtonBack,
	capability.GamepadButtonL3:     xbox360.ButtonLThumb,
	capability.GamepadButtonR3:     xbox360.ButtonRThumb,
	capability.GamepadButtonL1:     xbox360.ButtonLShoulder,
	capability.GamepadButtonR1:     xbox360.ButtonRShoulder,
	capability.GamepadButtonGuide:  xbox360.ButtonGuide,

	capability.GamepadButtonLeftPaddle1:  1 << 16,
	capability.GamepadButtonLeftPaddle2:  1 << 17,
	capability.GamepadButtonRightPaddle1: 1 << 18,
	capability.GamepadButtonRightPaddle2: 1 << 19,
}

// Xbox360 emulates a wired Xbox 360-family controller's input report over
// uhid, bit-exact with device/xbox360.InputState.BuildReport.
type Xbox360 struct {
	name    string
	variant xboxVariant
	dev     *uhid.Device
	mu      sync.Mutex
	state   xbox360.InputState
	caps    []capability.Capability

	target.Lifecycle
}

func newXbox360(name string, opts map[string]any, variant xboxVariant) (*Xbox360, error) {
	vendor, product, devName := uint32(0x045e), uint32(0x028e), "inputmuxd Xbox 360 Controller"
	switch variant {
	case variantXboxOne:
		vendor, product, devName = 0x045e, 0x02ea, "inputmuxd Xbox One Controller"
	case variantXboxElite:
		vendor, product, devName = 0x045e, 0x0b00, "inputmuxd Xbox Elite Controller"
	}
	if v, ok := opts["vendor_id"].(int); ok {
		vendor = uint32(v)
	}
	if v, ok := opts["product_id"].(int); ok {
		product = uint32(v)
	}

	desc := buildVendorDescriptor(0x00, 20, 8)
	dev, err := uhid.Open(uhid.CreateOptions{
		Name: devName, Phys: "inputmuxd/virtual", Bus: 0x03,
		Vendor: vendor, Product: product, Version: 0x0114,
		ReportDescriptor: desc,
	})
	if err != nil {
		return nil, fmt.Errorf("uhid %s: %w", devName, err)
	}

	caps := make([]capability.Capability, 0, len(xboxButtonBits)+4)
	for c := range xboxButtonBits {
		if variant != variantXboxElite {
			switch c {
			case capability.GamepadButtonLeftPaddle1, capability.GamepadButtonLeftPaddle2,
				capability.GamepadButtonRightPaddle1, capability.GamepadButtonRightPaddle2:
				continue
			}
		}
		caps = append(caps, c)
	}
	caps = append(caps, capability.GamepadAxisLeftX, capability.GamepadAxisLeftY,
		capability.GamepadAxisRightX, capability.GamepadAxisRightY,
		capability.GamepadTriggerL2, capability.GamepadTriggerR2)

	x := &Xbox360{name: name, variant: variant, dev: dev, caps: caps}
	x.Set(target.StateRunning)
	go x.readOutput()
	return x, nil
}

func (x *Xbox360) Name() string                         { return x.name }
func (x *Xbox360) Capabilities() []capability.Capability { return x.caps }

func (x *Xbox360) Accept(ev nativeevent.CapabilityEvent) {
	if x.State() != target.StateRunning {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if bit, ok := xboxButtonBits[ev.Capability]; ok {
		pressed := ev.Pressed || ev.Value != 0
		if pressed {
			x.state.Buttons |= bit
		} else {
			x.state.Buttons &^= bit
		}
		x.push()
		return
	}
	switch ev.Capability {
	case capability.GamepadAxisLeftX:
		x.state.LX = int16(ev.Value * 32767)
	case capability.GamepadAxisLeftY:
		x.state.LY = int16(-ev.Value * 32767)
	case capability.GamepadAxisRightX:
		x.state.RX = int16(ev.Value * 32767)
	case capability.GamepadAxisRightY:
		x.state.RY = int16(-ev.Value * 32767)
	case capability.GamepadTriggerL2:
		x.state.LT = uint8(ev.Value * 255)
	case capability.GamepadTriggerR2:
		x.state.RT = uint8(ev.Value * 255)
	default:
		return
	}
	x.push()
}

// push submits the current state as an input report. Caller holds x.mu.
func (x *Xbox360) push() {
	_ = x.dev.SendInput(x.state.BuildReport())
}

// readOutput consumes rumble/LED output reports from the kernel. Xbox
//360-family rumble is the 8-byte packet device/xbox360.InputState's sibling
// HandleTransfer documents: [1]=0x08 length, [3]=left motor, [4]=right motor.
func (x *Xbox360) readOutput() {
	for {
		out, ok, err := x.dev.ReadEvent()
		if err != nil {
			return
		}
		if !ok || out == nil {
			continue
		}
		if len(out.Data) >= 8 && out.Data[0] == 0x00 && out.Data[1] == 0x08 {
			// Rumble delivery has no source-capture feedback channel wired
			// in this build; the bytes are parsed and discarded rather than
			// silently ignored so a future source capture can plug in here.
			_ = out.Data[3] // left motor
			_ = out.Data[4] // right motor
		}
	}
}

func (x *Xbox360) Close() error {
	if x.State() == target.StateClosed {
		return nil
	}
	x.Set(target.StateDraining)
	x.mu.Lock()
	x.state = xbox360.InputState{}
	x.push()
	x.mu.Unlock()
	err := x.dev.Close()
	x.Set(target.StateClosed)
	return err
}
