// Package uhid speaks the kernel's /dev/uhid protocol to create virtual raw
// HID devices that present a specific HID report descriptor (see
// pkg/hidrep), used by pkg/target/hidtarget to emulate branded gamepads
// (Xbox, DualShock, Steam Deck) bit-exactly the way a real controller of
// that model would.
//
// There is no uhid example anywhere in this codebase's lineage; this
// package is built directly from the kernel's uapi/linux/uhid.h protocol
// rather than adapted from a reference implementation, following the same
// fixed-size-event-over-a-character-device shape pkg/uinput uses for
// /dev/uinput.
package uhid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Event type tags (linux/uhid.h enum uhid_event_type).
const (
	evCreate2 uint32 = 11
	evInput2  uint32 = 12
	evDestroy uint32 = 1
	evOutput  uint32 = 6
	evGetReport      uint32 = 9
	evGetReportReply uint32 = 10
	evSetReport      uint32 = 13
	evSetReportReply uint32 = 14
)

const (
	maxNameSize = 128
	maxPhysSize = 64
	maxUniqSize = 64
	dataMax     = 4096
)

// CreateOptions describes the virtual HID device to register.
type CreateOptions struct {
	Name         string
	Phys         string
	Bus          uint16
	Vendor       uint32
	Product      uint32
	Version      uint32
	Country      uint32
	ReportDescriptor []byte
}

// Device is an open virtual HID device backed by /dev/uhid.
type Device struct {
	f *os.File
}

// Open opens /dev/uhid and registers a new device described by opts.
func Open(opts CreateOptions) (*Device, error) {
	f, err := os.OpenFile("/dev/uhid", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uhid: %w", err)
	}
	d := &Device{f: f}
	if err := d.create(opts); err != nil {
		_ = f.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) create(opts CreateOptions) error {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, evCreate2)
	writeFixedString(&buf, opts.Name, maxNameSize)
	writeFixedString(&buf, opts.Phys, maxPhysSize)
	writeFixedString(&buf, "", maxUniqSize)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(opts.ReportDescriptor)))
	_ = binary.Write(&buf, binary.LittleEndian, opts.Bus)
	_ = binary.Write(&buf, binary.LittleEndian, opts.Vendor)
	_ = binary.Write(&buf, binary.LittleEndian, opts.Product)
	_ = binary.Write(&buf, binary.LittleEndian, opts.Version)
	_ = binary.Write(&buf, binary.LittleEndian, opts.Country)
	rd := make([]byte, dataMax)
	copy(rd, opts.ReportDescriptor)
	buf.Write(rd)

	_, err := d.f.Write(buf.Bytes())
	return err
}

// SendInput writes one input report to the kernel, which forwards it to
// whatever HID driver bound to this device's report descriptor (or exposes
// it raw via hidraw if none claims it).
func (d *Device) SendInput(report []byte) error {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, evInput2)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(report)))
	data := make([]byte, dataMax)
	copy(data, report)
	buf.Write(data)
	_, err := d.f.Write(buf.Bytes())
	return err
}

// OutputReport is a host-to-device report the kernel forwarded to us
// through a UHID_OUTPUT event (rumble commands, LED state).
type OutputReport struct {
	Data []byte
	Type uint8
}

// ReadEvent blocks until the kernel delivers the next event. A UHID_OUTPUT
// event is returned decoded with ok=true; every other event type
// (UHID_GET_REPORT, UHID_SET_REPORT, UHID_START/UHID_STOP/UHID_OPEN/
// UHID_CLOSE) is returned as a nil OutputReport with ok=false so callers can
// loop. GET_REPORT and SET_REPORT requests are not answered.
func (d *Device) ReadEvent() (*OutputReport, bool, error) {
	raw := make([]byte, 4+dataMax+16)
	n, err := d.f.Read(raw)
	if err != nil {
		return nil, false, err
	}
	if n < 4 {
		return nil, false, nil
	}
	evType := binary.LittleEndian.Uint32(raw[0:4])
	switch evType {
	case evOutput:
		size := binary.LittleEndian.Uint16(raw[4+dataMax : 4+dataMax+2])
		rtype := raw[4+dataMax+2]
		if int(size) > dataMax {
			size = dataMax
		}
		data := make([]byte, size)
		copy(data, raw[4:4+int(size)])
		return &OutputReport{Data: data, Type: rtype}, true, nil
	default:
		return nil, false, nil
	}
}

// Close unregisters the device and closes the file descriptor.
func (d *Device) Close() error {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, evDestroy)
	_, _ = d.f.Write(buf.Bytes())
	return d.f.Close()
}

func writeFixedString(buf *bytes.Buffer, s string, size int) {
	b := make([]byte, size)
	copy(b, s)
	buf.Write(b)
}
