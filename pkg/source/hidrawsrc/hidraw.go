// Package hidrawsrc captures input reports from raw HID interfaces
// (/dev/hidraw*) and decodes them against a declarative field schema, since
// unlike evdev, hidraw exposes nothing but opaque report bytes: the kernel
// does no field-level interpretation for us.
package hidrawsrc

import (
	"context"
	"fmt"
	"os"

	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/source"
)

func init() {
	source.Register("hidraw", New)
}

// FieldKind selects how a Field's bytes are interpreted.
type FieldKind int

const (
	FieldButton FieldKind = iota
	FieldAxisU8
	FieldAxisI8
	FieldAxisU16LE
)

// Field describes one capability packed into a fixed-offset input report.
type Field struct {
	Capability string
	Kind       FieldKind
	ByteOffset int
	BitOffset  int // FieldButton only
}

// Schema is the full set of fields a physical device's input report carries,
// plus the report's total size in bytes.
type Schema struct {
	ReportSize int
	Fields     []Field
}

// Decoder captures one hidraw device node against a fixed Schema.
type Decoder struct {
	f      *os.File
	desc   source.Descriptor
	schema Schema
	prev   []byte
}

// New opens devicePath for raw reads and returns a decoder with an empty
// schema, since the generic source.Constructor signature has no way to carry
// one. Until WithSchema attaches a schema, Run reads no reports and only
// blocks until ctx is done.
func New(devicePath string) (source.Source, error) {
	f, err := os.OpenFile(devicePath, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("hidraw open %s: %w", devicePath, err)
	}
	return &Decoder{
		f:    f,
		desc: source.Descriptor{ID: devicePath, Name: devicePath},
	}, nil
}

// WithSchema attaches the field schema used to decode reports from this
// device. Must be called before Run.
func (d *Decoder) WithSchema(s Schema) *Decoder {
	d.schema = s
	return d
}

func (d *Decoder) Descriptor() source.Descriptor { return d.desc }

func (d *Decoder) Run(ctx context.Context, out chan<- nativeevent.NativeEvent) error {
	if d.schema.ReportSize == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	buf := make([]byte, d.schema.ReportSize)
	errCh := make(chan error, 1)
	go func() {
		for {
			n, err := d.f.Read(buf)
			if err != nil {
				errCh <- err
				return
			}
			if n < d.schema.ReportSize {
				continue
			}
			for _, ev := range d.decode(buf) {
				select {
				case out <- ev:
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

func (d *Decoder) decode(report []byte) []nativeevent.NativeEvent {
	var out []nativeevent.NativeEvent
	for _, f := range d.schema.Fields {
		if f.ByteOffset >= len(report) {
			continue
		}
		switch f.Kind {
		case FieldButton:
			pressed := report[f.ByteOffset]&(1<<uint(f.BitOffset)) != 0
			out = append(out, nativeevent.NativeEvent{
				SourceID: d.desc.ID,
				Kind:     nativeevent.KindButton,
				Code:     f.Capability,
				Pressed:  pressed,
			})
		case FieldAxisU8:
			out = append(out, nativeevent.NativeEvent{
				SourceID: d.desc.ID,
				Kind:     nativeevent.KindAxis,
				Code:     f.Capability,
				Value:    float64(report[f.ByteOffset]),
			})
		case FieldAxisI8:
			out = append(out, nativeevent.NativeEvent{
				SourceID: d.desc.ID,
				Kind:     nativeevent.KindAxis,
				Code:     f.Capability,
				Value:    float64(int8(report[f.ByteOffset])),
			})
		case FieldAxisU16LE:
			if f.ByteOffset+1 >= len(report) {
				continue
			}
			v := uint16(report[f.ByteOffset]) | uint16(report[f.ByteOffset+1])<<8
			out = append(out, nativeevent.NativeEvent{
				SourceID: d.desc.ID,
				Kind:     nativeevent.KindAxis,
				Code:     f.Capability,
				Value:    float64(v),
			})
		}
	}
	return out
}

func (d *Decoder) Close() error {
	return d.f.Close()
}
