package hidtarget

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/inputmux/inputmuxd/device/dualshock4"
	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/target"
	"github.com/inputmux/inputmuxd/pkg/uhid"
)

func init() {
	target.Register("hid.dualsense", func(name string, opts map[string]any) (target.Target, error) {
		return newDualShock4(name, opts, variantDualSense)
	})
	target.Register("hid.dualsenseedge", func(name string, opts map[string]any) (target.Target, error) {
		return newDualShock4(name, opts, variantDualSenseEdge)
	})
	target.Register("hid.dualshock4", func(name string, opts map[string]any) (target.Target, error) {
		return newDualShock4(name, opts, variantDualShock4)
	})
}

type ds4Variant int

const (
	variantDualShock4 ds4Variant = iota
	variantDualSense
	variantDualSenseEdge
)

var ds4ButtonBits = map[capability.Capability]uint16{
	capability.GamepadButtonWest:   dualshock4.ButtonSquare,
	capability.GamepadButtonSouth:  dualshock4.ButtonCross,
	capability.GamepadButtonEast:   dualshock4.ButtonCircle,
	capability.GamepadButtonNorth:  dualshock4.ButtonTriangle,
	capability.GamepadButtonL1:     dualshock4.ButtonL1,
	capability.GamepadButtonR1:     dualshock4.ButtonR1,
	capability.GamepadTriggerL2:    dualshock4.ButtonL2,
	capability.GamepadTriggerR2:    dualshock4.ButtonR2,
	capability.GamepadButtonSelect: dualshock4.ButtonShare,
	capability.GamepadButtonStart:  dualshock4.ButtonOptions,
	capability.GamepadButtonL3:     dualshock4.ButtonL3,
	capability.GamepadButtonR3:     dualshock4.ButtonR3,
	capability.GamepadButtonGuide:  dualshock4.ButtonPS,
}

// DualShock4 emulates a DualShock4/DualSense-family controller over uhid,
// bit-exact with device/dualshock4's report layout (the teacher's
// buildUSBInputReport, reproduced here against the exported InputState/
// constants instead of the private per-device-instance counters it used).
type DualShock4 struct {
	name    string
	variant ds4Variant
	dev     *uhid.Device
	mu      sync.Mutex
	state   dualshock4.InputState
	dpad    uint8
	caps    []capability.Capability

	packetCounter uint32
	reportTs      uint32

	target.Lifecycle
}

func newDualShock4(name string, opts map[string]any, variant ds4Variant) (*DualShock4, error) {
	vendor, product, devName := uint32(dualshock4.DefaultVID), uint32(dualshock4.DefaultPID), "inputmuxd DualShock 4"
	switch variant {
	case variantDualSense:
		vendor, product, devName = 0x054c, 0x0ce6, "inputmuxd DualSense"
	case variantDualSenseEdge:
		vendor, product, devName = 0x054c, 0x0df2, "inputmuxd DualSense Edge"
	}
	if v, ok := opts["vendor_id"].(int); ok {
		vendor = uint32(v)
	}
	if v, ok := opts["product_id"].(int); ok {
		product = uint32(v)
	}

	desc := buildVendorDescriptor(dualshock4.ReportIDInput, dualshock4.InputReportSize, dualshock4.OutputReportSize)
	dev, err := uhid.Open(uhid.CreateOptions{
		Name: devName, Phys: "inputmuxd/virtual", Bus: 0x03,
		Vendor: vendor, Product: product, Version: 0x0100,
		ReportDescriptor: desc,
	})
	if err != nil {
		return nil, fmt.Errorf("uhid %s: %w", devName, err)
	}

	caps := make([]capability.Capability, 0, len(ds4ButtonBits)+8)
	for c := range ds4ButtonBits {
		caps = append(caps, c)
	}
	caps = append(caps,
		capability.GamepadAxisLeftX, capability.GamepadAxisLeftY,
		capability.GamepadAxisRightX, capability.GamepadAxisRightY,
		capability.GamepadDPadUp, capability.GamepadDPadDown,
		capability.GamepadDPadLeft, capability.GamepadDPadRight,
		capability.MotionAccelerometer, capability.MotionGyroscope,
		capability.TouchpadMotion,
	)

	d := &DualShock4{
		name: name, variant: variant, dev: dev, caps: caps,
		state: dualshock4.InputState{AccelZ: dualshock4.DefaultAccelZRaw},
	}
	d.Set(target.StateRunning)
	go d.readOutput()
	return d, nil
}

func (d *DualShock4) Name() string                         { return d.name }
func (d *DualShock4) Capabilities() []capability.Capability { return d.caps }

func (d *DualShock4) Accept(ev nativeevent.CapabilityEvent) {
	if d.State() != target.StateRunning {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if bit, ok := ds4ButtonBits[ev.Capability]; ok {
		pressed := ev.Pressed || ev.Value != 0
		if pressed {
			d.state.Buttons |= bit
		} else {
			d.state.Buttons &^= bit
		}
		d.push()
		return
	}
	switch ev.Capability {
	case capability.GamepadDPadUp:
		d.setDPad(dualshock4.DPadUp, ev.Pressed)
	case capability.GamepadDPadDown:
		d.setDPad(dualshock4.DPadDown, ev.Pressed)
	case capability.GamepadDPadLeft:
		d.setDPad(dualshock4.DPadLeft, ev.Pressed)
	case capability.GamepadDPadRight:
		d.setDPad(dualshock4.DPadRight, ev.Pressed)
	case capability.GamepadAxisLeftX:
		d.state.LX = int8(ev.Value * 127)
	case capability.GamepadAxisLeftY:
		d.state.LY = int8(-ev.Value * 127)
	case capability.GamepadAxisRightX:
		d.state.RX = int8(ev.Value * 127)
	case capability.GamepadAxisRightY:
		d.state.RY = int8(-ev.Value * 127)
	case capability.GamepadTriggerL2:
		d.state.L2 = uint8(ev.Value * 255)
	case capability.GamepadTriggerR2:
		d.state.R2 = uint8(ev.Value * 255)
	case capability.MotionGyroscope:
		d.state.GyroX = dualshock4.GyroDpsToRaw(ev.MotionX)
		d.state.GyroY = dualshock4.GyroDpsToRaw(ev.MotionY)
		d.state.GyroZ = dualshock4.GyroDpsToRaw(ev.MotionZ)
	case capability.MotionAccelerometer:
		d.state.AccelX = dualshock4.AccelMS2ToRaw(ev.MotionX)
		d.state.AccelY = dualshock4.AccelMS2ToRaw(ev.MotionY)
		d.state.AccelZ = dualshock4.AccelMS2ToRaw(ev.MotionZ)
	case capability.TouchpadMotion:
		d.state.Touch1Active = ev.TouchActive
		d.state.Touch1X = uint16(ev.TouchX * float64(dualshock4.TouchpadMaxX))
		d.state.Touch1Y = uint16(ev.TouchY * float64(dualshock4.TouchpadMaxY))
	default:
		return
	}
	d.push()
}

func (d *DualShock4) setDPad(bit uint8, pressed bool) {
	if pressed {
		d.dpad |= bit
	} else {
		d.dpad &^= bit
	}
}

// push encodes the current state into the 64-byte DS4 USB input report,
// reproducing device/dualshock4's buildUSBInputReport layout bit-for-bit.
// Caller holds d.mu.
func (d *DualShock4) push() {
	b := make([]byte, dualshock4.InputReportSize)
	b[0] = dualshock4.ReportIDInput

	b[1] = uint8(int16(d.state.LX) + 128)
	b[2] = uint8(int16(d.state.LY) + 128)
	b[3] = uint8(int16(d.state.RX) + 128)
	b[4] = uint8(int16(d.state.RY) + 128)

	usbDPad := uint8(dualshock4.DPadUSBNeutral)
	switch {
	case d.dpad&dualshock4.DPadUp != 0 && d.dpad&dualshock4.DPadRight != 0:
		usbDPad = dualshock4.DPadUSBUpRight
	case d.dpad&dualshock4.DPadUp != 0 && d.dpad&dualshock4.DPadLeft != 0:
		usbDPad = dualshock4.DPadUSBUpLeft
	case d.dpad&dualshock4.DPadDown != 0 && d.dpad&dualshock4.DPadRight != 0:
		usbDPad = dualshock4.DPadUSBDownRight
	case d.dpad&dualshock4.DPadDown != 0 && d.dpad&dualshock4.DPadLeft != 0:
		usbDPad = dualshock4.DPadUSBDownLeft
	case d.dpad&dualshock4.DPadUp != 0:
		usbDPad = dualshock4.DPadUSBUp
	case d.dpad&dualshock4.DPadDown != 0:
		usbDPad = dualshock4.DPadUSBDown
	case d.dpad&dualshock4.DPadLeft != 0:
		usbDPad = dualshock4.DPadUSBLeft
	case d.dpad&dualshock4.DPadRight != 0:
		usbDPad = dualshock4.DPadUSBRight
	}

	b[5] = (usbDPad & dualshock4.DPadMask) | (uint8(d.state.Buttons) & 0xF0)
	b[6] = uint8(d.state.Buttons >> 8)

	counter := atomic.AddUint32(&d.packetCounter, 1) & 0x3F
	psTouch := uint8(0)
	if d.state.Buttons&dualshock4.ButtonPS != 0 {
		psTouch |= dualshock4.ButtonPSUSB
	}
	if d.state.Buttons&dualshock4.ButtonTouchpadClick != 0 {
		psTouch |= dualshock4.ButtonTouchpadClickUSB
	}
	b[7] = psTouch | uint8(counter<<dualshock4.CounterShift)

	b[8] = d.state.L2
	b[9] = d.state.R2

	ts := atomic.AddUint32(&d.reportTs, 1)
	binary.LittleEndian.PutUint16(b[10:12], uint16(ts))
	b[12] = 0x00

	binary.LittleEndian.PutUint16(b[13:15], uint16(d.state.GyroX))
	binary.LittleEndian.PutUint16(b[15:17], uint16(d.state.GyroY))
	binary.LittleEndian.PutUint16(b[17:19], uint16(d.state.GyroZ))
	binary.LittleEndian.PutUint16(b[19:21], uint16(d.state.AccelX))
	binary.LittleEndian.PutUint16(b[21:23], uint16(d.state.AccelY))
	binary.LittleEndian.PutUint16(b[23:25], uint16(d.state.AccelZ))

	b[30] = dualshock4.BatteryFullyCharged

	t1 := uint8(0)
	if !d.state.Touch1Active {
		t1 |= dualshock4.TouchInactiveMask
	}
	b[35] = t1
	encodeTouchCoords(b[36:39], d.state.Touch1X, d.state.Touch1Y)

	t2 := uint8(0)
	if !d.state.Touch2Active {
		t2 |= dualshock4.TouchInactiveMask
	}
	b[39] = t2
	encodeTouchCoords(b[40:43], d.state.Touch2X, d.state.Touch2Y)

	_ = d.dev.SendInput(b)
}

func encodeTouchCoords(b []byte, x, y uint16) {
	if x > dualshock4.TouchpadMaxX {
		x = dualshock4.TouchpadMaxX
	}
	if y > dualshock4.TouchpadMaxY {
		y = dualshock4.TouchpadMaxY
	}
	b[0] = uint8(x & 0xFF)
	b[1] = uint8((x>>8)&0x0F) | uint8((y&0x0F)<<4)
	b[2] = uint8(y >> 4)
}

// readOutput consumes rumble/LED output reports (device/dualshock4's
// OutputState layout at ReportIDOutput).
func (d *DualShock4) readOutput() {
	for {
		out, ok, err := d.dev.ReadEvent()
		if err != nil {
			return
		}
		if !ok || out == nil || len(out.Data) < 11 {
			continue
		}
		if out.Data[dualshock4.OutOffsetReportID] != dualshock4.ReportIDOutput {
			continue
		}
		// Output feedback has no source-capture channel wired in this
		// build; parsed to prove the wire shape round-trips, not applied.
		_ = out.Data[dualshock4.OutOffsetRumbleSmall]
		_ = out.Data[dualshock4.OutOffsetRumbleLarge]
	}
}

func (d *DualShock4) Close() error {
	if d.State() == target.StateClosed {
		return nil
	}
	d.Set(target.StateDraining)
	d.mu.Lock()
	d.state = dualshock4.InputState{}
	d.dpad = 0
	d.push()
	d.mu.Unlock()
	err := d.dev.Close()
	d.Set(target.StateClosed)
	return err
}
