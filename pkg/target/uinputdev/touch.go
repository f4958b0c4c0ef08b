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
	target.Register("uinput.touchpad", newTouchpad)
	target.Register("uinput.touchscreen", newTouchscreen)
}

const touchCoordMax = 4095

// touch is the shared multitouch uinput target behind both Touchpad and
// Touchscreen: they differ only in which capability class they accept and
// the default device name/product ID, per spec §4.6.
type touch struct {
	name        string
	cap         capability.Capability
	dev         *uinput.Device
	orientation string // "", "left", "right" — spec §9c: 90/270 clockwise
	mu          sync.Mutex
	slotActive  bool

	target.Lifecycle
}

func newTouchLike(name string, cap capability.Capability, vendor, product uint16, devName string, opts map[string]any) (target.Target, error) {
	dev, err := uinput.Open()
	if err != nil {
		return nil, fmt.Errorf("uinput %s: %w", devName, err)
	}
	if err := dev.EnableEventType(uinput.EvAbs); err != nil {
		return nil, err
	}
	for _, code := range []uint16{uinput.AbsMtSlot, uinput.AbsMtTrackingID} {
		if err := dev.EnableAbs(code, 0, 9); err != nil {
			return nil, err
		}
	}
	if err := dev.EnableAbs(uinput.AbsMtPositionX, 0, touchCoordMax); err != nil {
		return nil, err
	}
	if err := dev.EnableAbs(uinput.AbsMtPositionY, 0, touchCoordMax); err != nil {
		return nil, err
	}
	if err := dev.Create(devName, vendor, product, 1); err != nil {
		return nil, err
	}
	orientation, _ := opts["orientation"].(string)
	t := &touch{name: name, cap: cap, dev: dev, orientation: orientation}
	t.Set(target.StateRunning)
	return t, nil
}

func newTouchpad(name string, opts map[string]any) (target.Target, error) {
	return newTouchLike(name, capability.TouchpadMotion, 0x2e8a, 0x0012, "inputmuxd virtual touchpad", opts)
}

func newTouchscreen(name string, opts map[string]any) (target.Target, error) {
	return newTouchLike(name, capability.TouchscreenTap, 0x2e8a, 0x0013, "inputmuxd virtual touchscreen", opts)
}

func (t *touch) Name() string                         { return t.name }
func (t *touch) Capabilities() []capability.Capability { return []capability.Capability{t.cap} }

// rotate applies the configured panel orientation: "left" is a 90 degree
// clockwise rotation, "right" is 270 degrees, matching SPEC_FULL's resolution
// of spec §9c's open question.
func (t *touch) rotate(x, y float64) (float64, float64) {
	switch t.orientation {
	case "left":
		return y, 1 - x
	case "right":
		return 1 - y, x
	default:
		return x, y
	}
}

func (t *touch) Accept(ev nativeevent.CapabilityEvent) {
	if t.State() != target.StateRunning || ev.Capability != t.cap {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	x, y := t.rotate(ev.TouchX, ev.TouchY)
	slot := int32(ev.TouchSlot)
	_ = t.dev.WriteEvent(uinput.EvAbs, uinput.AbsMtSlot, slot, false)
	if !ev.TouchActive {
		_ = t.dev.WriteEvent(uinput.EvAbs, uinput.AbsMtTrackingID, -1, true)
		t.slotActive = false
		return
	}
	if !t.slotActive {
		_ = t.dev.WriteEvent(uinput.EvAbs, uinput.AbsMtTrackingID, slot, false)
		t.slotActive = true
	}
	_ = t.dev.WriteEvent(uinput.EvAbs, uinput.AbsMtPositionX, int32(x*touchCoordMax), false)
	_ = t.dev.WriteEvent(uinput.EvAbs, uinput.AbsMtPositionY, int32(y*touchCoordMax), true)
}

func (t *touch) Close() error {
	if t.State() == target.StateClosed {
		return nil
	}
	t.Set(target.StateDraining)
	t.mu.Lock()
	if t.slotActive {
		_ = t.dev.WriteEvent(uinput.EvAbs, uinput.AbsMtTrackingID, -1, true)
	}
	t.mu.Unlock()
	err := t.dev.Close()
	t.Set(target.StateClosed)
	return err
}
