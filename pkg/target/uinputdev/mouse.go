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
	target.Register("uinput.mouse", newMouse)
}

var mouseButtonCodes = map[capability.Capability]uint16{
	capability.MouseButtonLeft:   btnLeft,
	capability.MouseButtonRight:  btnRight,
	capability.MouseButtonMiddle: btnMiddle,
}

// Mouse is the virtual relative-pointer uinput target. PointerMotion capability
// events (produced continuously by pkg/profile's stick-to-mouse producer, or
// any other analog source) carry fractional pixel deltas; REL_X/REL_Y only
// accept whole counts, so Mouse keeps a running sub-pixel remainder per axis
// and only emits the integer part each event, carrying the fraction forward
// rather than truncating it away (spec §4.6: "sub-pixel accumulators to
// smoothly reconstruct relative motion from speed-parameterized events").
type Mouse struct {
	name string
	dev  *uinput.Device
	mu   sync.Mutex
	remX, remY float64

	target.Lifecycle
}

func newMouse(name string, _ map[string]any) (target.Target, error) {
	dev, err := uinput.Open()
	if err != nil {
		return nil, fmt.Errorf("uinput mouse %s: %w", name, err)
	}
	if err := dev.EnableEventType(uinput.EvKey); err != nil {
		return nil, err
	}
	for _, code := range mouseButtonCodes {
		if err := dev.EnableKey(code); err != nil {
			return nil, err
		}
	}
	if err := dev.EnableEventType(uinput.EvRel); err != nil {
		return nil, err
	}
	for _, code := range []uint16{relX, relY, relWheel} {
		if err := dev.EnableRel(code); err != nil {
			return nil, err
		}
	}
	if err := dev.Create("inputmuxd virtual mouse", 0x2e8a, 0x0011, 1); err != nil {
		return nil, err
	}
	m := &Mouse{name: name, dev: dev}
	m.Set(target.StateRunning)
	return m, nil
}

func (m *Mouse) Name() string { return m.name }

func (m *Mouse) Capabilities() []capability.Capability {
	caps := []capability.Capability{capability.PointerMotion, capability.PointerWheel}
	for c := range mouseButtonCodes {
		caps = append(caps, c)
	}
	return caps
}

func (m *Mouse) Accept(ev nativeevent.CapabilityEvent) {
	if m.State() != target.StateRunning {
		return
	}
	if code, ok := mouseButtonCodes[ev.Capability]; ok {
		v := int32(0)
		if ev.Pressed {
			v = 1
		}
		_ = m.dev.WriteEvent(uinput.EvKey, code, v, true)
		return
	}
	switch ev.Capability {
	case capability.PointerMotion:
		m.emitMotion(ev.MotionX, ev.MotionY)
	case capability.PointerWheel:
		_ = m.dev.WriteEvent(uinput.EvRel, relWheel, int32(ev.Value), true)
	}
}

func (m *Mouse) emitMotion(dx, dy float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remX += dx
	m.remY += dy
	ix := int32(m.remX)
	iy := int32(m.remY)
	m.remX -= float64(ix)
	m.remY -= float64(iy)
	if ix == 0 && iy == 0 {
		return
	}
	if ix != 0 {
		_ = m.dev.WriteEvent(uinput.EvRel, relX, ix, iy == 0)
	}
	if iy != 0 {
		_ = m.dev.WriteEvent(uinput.EvRel, relY, iy, true)
	}
}

func (m *Mouse) Close() error {
	if m.State() == target.StateClosed {
		return nil
	}
	m.Set(target.StateDraining)
	m.mu.Lock()
	for _, code := range mouseButtonCodes {
		_ = m.dev.WriteEvent(uinput.EvKey, code, 0, true)
	}
	m.mu.Unlock()
	err := m.dev.Close()
	m.Set(target.StateClosed)
	return err
}
