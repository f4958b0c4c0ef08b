package uinputdev

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ThomasT75/uinput"
	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/target"
)

func init() {
	target.Register("uinput.keyboard", newKeyboard)
}

// Keyboard is the virtual keyboard uinput target. Its capability set is the
// keyCodes table; unlike the HID keyboard the teacher emulated for a real
// USB host, capability events arrive pre-decoded so there is no modifier
// bitmap or N-key-rollover bookkeeping to reconstruct here — one KEY_* bit
// per incoming capability event. Built on github.com/ThomasT75/uinput's
// Keyboard, whose KeyDown/KeyUp take raw KEY_* codes directly, which is all
// this target ever needed from /dev/uinput.
type Keyboard struct {
	name string
	dev  uinput.Keyboard
	mu   sync.Mutex
	down map[uint16]bool

	target.Lifecycle
}

func newKeyboard(name string, _ map[string]any) (target.Target, error) {
	dev, err := uinput.CreateKeyboard("/dev/uinput", []byte("inputmuxd virtual keyboard"))
	if err != nil {
		return nil, fmt.Errorf("uinput keyboard %s: %w", name, err)
	}
	k := &Keyboard{name: name, dev: dev, down: map[uint16]bool{}}
	k.Set(target.StateRunning)
	return k, nil
}

func (k *Keyboard) Name() string { return k.name }

func (k *Keyboard) Capabilities() []capability.Capability {
	caps := make([]capability.Capability, 0, len(keyCodes))
	for name := range keyCodes {
		caps = append(caps, capability.KeyboardKey(name))
	}
	return caps
}

// SendKey mirrors the bus' Target.Keyboard.SendKey(code, pressed) method
// (spec §6): an explicit injection entry point distinct from Accept, for a
// bus client driving the keyboard directly rather than through a composite
// device's pipeline.
func (k *Keyboard) SendKey(code string, pressed bool) error {
	c, ok := keyCode(strings.ToLower(code))
	if !ok {
		return fmt.Errorf("uinput keyboard: unknown key %q", code)
	}
	return k.write(c, pressed)
}

func (k *Keyboard) Accept(ev nativeevent.CapabilityEvent) {
	if k.State() != target.StateRunning {
		return
	}
	name, ok := strings.CutPrefix(string(ev.Capability), "keyboard.key.")
	if !ok {
		return
	}
	code, ok := keyCode(name)
	if !ok {
		return
	}
	_ = k.write(code, ev.Pressed || ev.Value != 0)
}

func (k *Keyboard) write(code uint16, pressed bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.down[code] = pressed
	if pressed {
		return k.dev.KeyDown(int(code))
	}
	return k.dev.KeyUp(int(code))
}

func (k *Keyboard) Close() error {
	if k.State() == target.StateClosed {
		return nil
	}
	k.Set(target.StateDraining)
	k.mu.Lock()
	for code, pressed := range k.down {
		if pressed {
			_ = k.dev.KeyUp(int(code))
		}
	}
	k.mu.Unlock()
	err := k.dev.Close()
	k.Set(target.StateClosed)
	return err
}
