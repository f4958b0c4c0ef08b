// Package evdevsrc captures keyboard, mouse, and gamepad events from Linux
// evdev character devices (/dev/input/event*) via github.com/gvalkov/golang-evdev,
// the same evdev binding the capture/grab pattern in this codebase's pack is
// grounded on.
package evdevsrc

import (
	"context"
	"fmt"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/source"
)

func init() {
	source.Register("evdev", New)
}

// axisCodes is the set of EV_ABS codes decode forwards as axis events; every
// other EV_ABS code is dropped.
var axisCodes = map[uint16]bool{
	evdev.ABS_X: true, evdev.ABS_Y: true,
	evdev.ABS_RX: true, evdev.ABS_RY: true,
	evdev.ABS_Z: true, evdev.ABS_RZ: true,
	evdev.ABS_HAT0X: true, evdev.ABS_HAT0Y: true,
}

// Decoder captures one evdev device node.
type Decoder struct {
	dev  *evdev.InputDevice
	desc source.Descriptor
}

// New opens devicePath; Run then grabs exclusive access to it for as long as
// it captures, so that native events never also leak through to other
// userspace consumers while a composite device owns this source (spec invariant: each source feeds
// exactly one composite device at a time).
func New(devicePath string) (source.Source, error) {
	dev, err := evdev.Open(devicePath)
	if err != nil {
		return nil, fmt.Errorf("evdev open %s: %w", devicePath, err)
	}
	desc := source.Descriptor{
		ID:            devicePath,
		Name:          dev.Name,
		VendorProduct: fmt.Sprintf("%04x:%04x", dev.Vendor, dev.Product),
		PhysPath:      dev.Phys,
	}
	return &Decoder{dev: dev, desc: desc}, nil
}

func (d *Decoder) Descriptor() source.Descriptor { return d.desc }

// Run grabs the device exclusively, reads raw evdev events until ctx is
// canceled, and emits a NativeEvent per EV_KEY/EV_ABS/EV_REL event. EV_SYN
// is a pure frame delimiter in evdev and carries no capability of its own,
// so it is dropped here.
func (d *Decoder) Run(ctx context.Context, out chan<- nativeevent.NativeEvent) error {
	if err := d.dev.Grab(); err != nil {
		return fmt.Errorf("grab %s: %w", d.desc.ID, err)
	}
	defer d.dev.Release()

	done := make(chan struct{})
	defer close(done)
	errCh := make(chan error, 1)

	go func() {
		for {
			events, err := d.dev.Read()
			if err != nil {
				errCh <- err
				return
			}
			for _, ev := range events {
				ne, ok := decode(d.desc.ID, ev)
				if !ok {
					continue
				}
				select {
				case out <- ne:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (d *Decoder) Close() error {
	return d.dev.File.Close()
}

func decode(sourceID string, ev evdev.InputEvent) (nativeevent.NativeEvent, bool) {
	ts := ev.Time.Sec*1e9 + ev.Time.Usec*1e3
	switch ev.Type {
	case evdev.EV_KEY:
		return nativeevent.NativeEvent{
			SourceID:       sourceID,
			Kind:           nativeevent.KindButton,
			Code:           evdev.KEY[int(ev.Code)],
			Pressed:        ev.Value != 0,
			TimestampNanos: ts,
		}, true
	case evdev.EV_ABS:
		if axisCodes[ev.Code] {
			return nativeevent.NativeEvent{
				SourceID:       sourceID,
				Kind:           nativeevent.KindAxis,
				Code:           evdev.ABS[int(ev.Code)],
				Value:          float64(ev.Value),
				TimestampNanos: ts,
			}, true
		}
		return nativeevent.NativeEvent{}, false
	case evdev.EV_REL:
		return nativeevent.NativeEvent{
			SourceID:       sourceID,
			Kind:           nativeevent.KindAxis,
			Code:           evdev.REL[int(ev.Code)],
			Value:          float64(ev.Value),
			TimestampNanos: ts,
		}, true
	default:
		return nativeevent.NativeEvent{}, false
	}
}
