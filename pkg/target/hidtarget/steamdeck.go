package hidtarget

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/inputmux/inputmuxd/device/steamdeck"
	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/target"
	"github.com/inputmux/inputmuxd/pkg/uhid"
)

func init() {
	target.Register("hid.steamdeck", newSteamDeck)
}

var steamdeckButtonBits = map[capability.Capability]uint64{
	capability.GamepadButtonSouth:  steamdeck.ButtonA,
	capability.GamepadButtonEast:   steamdeck.ButtonB,
	capability.GamepadButtonWest:   steamdeck.ButtonX,
	capability.GamepadButtonNorth:  steamdeck.ButtonY,
	capability.GamepadDPadUp:       steamdeck.ButtonDPadUp,
	capability.GamepadDPadDown:     steamdeck.ButtonDPadDown,
	capability.GamepadDPadLeft:     steamdeck.ButtonDPadLeft,
	capability.GamepadDPadRight:    steamdeck.ButtonDPadRight,
	capability.GamepadButtonL1:     steamdeck.ButtonLB,
	capability.GamepadButtonR1:     steamdeck.ButtonRB,
	capability.GamepadButtonL3:     steamdeck.ButtonL3,
	capability.GamepadButtonR3:     steamdeck.ButtonR3,
	capability.GamepadButtonSelect: steamdeck.ButtonView,
	capability.GamepadButtonStart:  steamdeck.ButtonMenu,
	capability.GamepadButtonGuide:  steamdeck.ButtonSteam,
	capability.GamepadButtonQAM:    steamdeck.ButtonQAM,

	capability.GamepadButtonLeftPaddle1:  steamdeck.ButtonL4,
	capability.GamepadButtonRightPaddle1: steamdeck.ButtonR4,
	capability.GamepadButtonLeftTop:      steamdeck.ButtonL5,
	capability.GamepadButtonRightTop:     steamdeck.ButtonR5,

	capability.GamepadTouchpadForceLeft:  steamdeck.ButtonLeftPadClick,
	capability.GamepadTouchpadForceRight: steamdeck.ButtonRightPadClick,
}

// SteamDeck emulates a Steam Deck (Jupiter/LCD) controller's interrupt IN
// report over uhid, reproducing device/steamdeck's ValveInReportHeader_t +
// InputState wire layout (buildInReport) since that packing function is
// private to the device/steamdeck package.
type SteamDeck struct {
	name string
	dev  *uhid.Device
	mu   sync.Mutex
	state steamdeck.InputState
	caps  []capability.Capability

	packetNum uint32

	target.Lifecycle
}

func newSteamDeck(name string, opts map[string]any) (target.Target, error) {
	vendor, product := uint32(steamdeck.ValveUSBVID), uint32(steamdeck.JupiterPID)
	if v, ok := opts["vendor_id"].(int); ok {
		vendor = uint32(v)
	}
	if v, ok := opts["product_id"].(int); ok {
		product = uint32(v)
	}

	desc := buildVendorDescriptor(0x00, 64, 64)
	dev, err := uhid.Open(uhid.CreateOptions{
		Name: "inputmuxd Steam Deck Controller", Phys: "inputmuxd/virtual", Bus: 0x03,
		Vendor: vendor, Product: product, Version: 0x0111,
		ReportDescriptor: desc,
	})
	if err != nil {
		return nil, fmt.Errorf("uhid steamdeck: %w", err)
	}

	caps := make([]capability.Capability, 0, len(steamdeckButtonBits)+10)
	for c := range steamdeckButtonBits {
		caps = append(caps, c)
	}
	caps = append(caps,
		capability.GamepadAxisLeftX, capability.GamepadAxisLeftY,
		capability.GamepadAxisRightX, capability.GamepadAxisRightY,
		capability.GamepadTriggerL2, capability.GamepadTriggerR2,
		capability.TouchpadMotion, capability.MotionAccelerometer, capability.MotionGyroscope,
	)

	s := &SteamDeck{name: name, dev: dev, caps: caps}
	s.Set(target.StateRunning)
	go s.readOutput()
	return s, nil
}

func (s *SteamDeck) Name() string                         { return s.name }
func (s *SteamDeck) Capabilities() []capability.Capability { return s.caps }

func (s *SteamDeck) Accept(ev nativeevent.CapabilityEvent) {
	if s.State() != target.StateRunning {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if bit, ok := steamdeckButtonBits[ev.Capability]; ok {
		pressed := ev.Pressed || ev.Value != 0
		if pressed {
			s.state.Buttons |= bit
		} else {
			s.state.Buttons &^= bit
		}
		s.push()
		return
	}
	switch ev.Capability {
	case capability.GamepadAxisLeftX:
		s.state.LeftStickX = int16(ev.Value * 32767)
	case capability.GamepadAxisLeftY:
		s.state.LeftStickY = int16(-ev.Value * 32767)
	case capability.GamepadAxisRightX:
		s.state.RightStickX = int16(ev.Value * 32767)
	case capability.GamepadAxisRightY:
		s.state.RightStickY = int16(-ev.Value * 32767)
	case capability.GamepadTriggerL2:
		s.state.TriggerRawL = uint16(ev.Value * 32767)
	case capability.GamepadTriggerR2:
		s.state.TriggerRawR = uint16(ev.Value * 32767)
	case capability.MotionGyroscope:
		s.state.GyroX = int16(ev.MotionX)
		s.state.GyroY = int16(ev.MotionY)
		s.state.GyroZ = int16(ev.MotionZ)
	case capability.MotionAccelerometer:
		s.state.AccelX = int16(ev.MotionX)
		s.state.AccelY = int16(ev.MotionY)
		s.state.AccelZ = int16(ev.MotionZ)
	case capability.TouchpadMotion:
		x := int16(ev.TouchX*65534 - 32767)
		y := int16(ev.TouchY*65534 - 32767)
		if ev.TouchSlot == 1 {
			s.state.RightPadX, s.state.RightPadY = x, y
			if ev.TouchActive {
				s.state.PressurePadRight = 1
			} else {
				s.state.PressurePadRight = 0
			}
		} else {
			s.state.LeftPadX, s.state.LeftPadY = x, y
			if ev.TouchActive {
				s.state.PressurePadLeft = 1
			} else {
				s.state.PressurePadLeft = 0
			}
		}
	default:
		return
	}
	s.push()
}

// push encodes the current state into the 64-byte Steam Deck interrupt IN
// report, reproducing device/steamdeck's buildInReport header framing
// around InputState's own (exported) MarshalBinary payload. Caller holds s.mu.
func (s *SteamDeck) push() {
	buf := make([]byte, 64)
	buf[0] = byte(steamdeck.ValveInReportMsgVersion)
	buf[1] = byte(steamdeck.ValveInReportMsgVersion >> 8)
	buf[2] = steamdeck.ValveInReportTypeControllerDeckState
	buf[3] = steamdeck.ValveInReportLength
	binary.LittleEndian.PutUint32(buf[4:8], atomic.AddUint32(&s.packetNum, 1))

	payload, _ := s.state.MarshalBinary()
	copy(buf[8:], payload)
	_ = s.dev.SendInput(buf)
}

// readOutput consumes rumble feature reports. device/steamdeck delivers
// these over the control endpoint (SET_REPORT/feature), not interrupt OUT;
// uhid's UHID_OUTPUT channel is this device's analog for that vendor
// feature-report path.
func (s *SteamDeck) readOutput() {
	for {
		_, ok, err := s.dev.ReadEvent()
		if err != nil {
			return
		}
		if !ok {
			continue
		}
		// Haptic feedback has no source-capture feedback channel wired in
		// this build; rumble feature reports are accepted and discarded.
	}
}

func (s *SteamDeck) Close() error {
	if s.State() == target.StateClosed {
		return nil
	}
	s.Set(target.StateDraining)
	s.mu.Lock()
	s.state = steamdeck.InputState{}
	s.push()
	s.mu.Unlock()
	err := s.dev.Close()
	s.Set(target.StateClosed)
	return err
}
