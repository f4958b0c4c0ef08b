// Package uinput speaks the kernel's /dev/uinput protocol to create virtual
// evdev devices: generic gamepads, mice, touchpads, and touchscreens. It is
// the target-device transport for those uinput targets (see pkg/uhid for the
// branded HID gadgets); the virtual keyboard target is built on
// github.com/ThomasT75/uinput instead.
package uinput

import (
	"errors"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// evdev event types/codes this package cares about (linux/input-event-codes.h).
const (
	EvSyn = 0x00
	EvKey = 0x01
	EvRel = 0x02
	EvAbs = 0x03

	SynReport = 0

	RelX     = 0x00
	RelY     = 0x01
	RelWheel = 0x08
	RelHWheel = 0x06

	AbsX        = 0x00
	AbsY        = 0x01
	AbsMtSlot   = 0x2f
	AbsMtTrackingID = 0x39
	AbsMtPositionX  = 0x35
	AbsMtPositionY  = 0x36
)

// uinput ioctl request codes (linux/uinput.h). golang.org/x/sys/unix does not
// expose these directly, so they are encoded here the same way the kernel
// header does via _IOW/_IOR.
const (
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565
	uiSetRelBit  = 0x40045566
	uiSetAbsBit  = 0x40045567
	uiDevSetup   = 0x405c5503
	uiAbsSetup   = 0x401c5504
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
)

const uinputMaxNameSize = 80

// inputID mirrors struct input_id.
type inputID struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputSetup mirrors struct uinput_setup.
type uinputSetup struct {
	ID           inputID
	Name         [uinputMaxNameSize]byte
	FFEffectsMax uint32
}

// uinputAbsSetup mirrors struct uinput_abs_setup.
type uinputAbsSetup struct {
	Code     uint16
	_        [2]byte // alignment padding to match the kernel struct layout
	Value    int32
	Minimum  int32
	Maximum  int32
	Fuzz     int32
	Flat     int32
	Resolution int32
}

// inputEvent mirrors struct input_event.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// Device is an open virtual evdev device backed by /dev/uinput.
type Device struct {
	f *os.File
}

// Open opens /dev/uinput. Call EnableEventType/EnableKey/EnableRel/EnableAbs
// to declare capabilities,
// then Create to register the device with the kernel.
func Open() (*Device, error) {
	f, err := os.OpenFile("/dev/uinput", os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}
	return &Device{f: f}, nil
}

// EnableEventType enables an event type (EvKey, EvRel, EvAbs, ...).
func (d *Device) EnableEventType(evType uint16) error {
	return ioctlInt(d.f, uiSetEvBit, uintptr(evType))
}

// EnableKey enables a single key/button code under EvKey.
func (d *Device) EnableKey(code uint16) error {
	return ioctlInt(d.f, uiSetKeyBit, uintptr(code))
}

// EnableRel enables a single relative axis code under EvRel.
func (d *Device) EnableRel(code uint16) error {
	return ioctlInt(d.f, uiSetRelBit, uintptr(code))
}

// EnableAbs declares an absolute axis's value range and enables it under EvAbs.
func (d *Device) EnableAbs(code uint16, min, max int32) error {
	if err := ioctlInt(d.f, uiSetAbsBit, uintptr(code)); err != nil {
		return err
	}
	setup := uinputAbsSetup{Code: code, Minimum: min, Maximum: max}
	return ioctlPtr(d.f, uiAbsSetup, unsafe.Pointer(&setup))
}

// Create finalizes device setup and asks the kernel to instantiate it.
func (d *Device) Create(name string, vendor, product, version uint16) error {
	var setup uinputSetup
	setup.ID = inputID{BusType: 0x03, Vendor: vendor, Product: product, Version: version}
	n := copy(setup.Name[:], name)
	_ = n
	if err := ioctlPtr(d.f, uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		return fmt.Errorf("UI_DEV_SETUP: %w", err)
	}
	if err := ioctlInt(d.f, uiDevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

// WriteEvent emits one input_event followed, when syn is true, by a
// EV_SYN/SYN_REPORT frame that flushes it to readers.
func (d *Device) WriteEvent(evType, code uint16, value int32, syn bool) error {
	now := time.Now()
	ev := inputEvent{
		Sec:   int64(now.Unix()),
		Usec:  int64(now.Nanosecond() / 1000),
		Type:  evType,
		Code:  code,
		Value: value,
	}
	if err := writeStruct(d.f, &ev); err != nil {
		return err
	}
	if syn {
		synEv := inputEvent{Sec: ev.Sec, Usec: ev.Usec, Type: EvSyn, Code: SynReport, Value: 0}
		return writeStruct(d.f, &synEv)
	}
	return nil
}

// Close destroys the virtual device and closes the file descriptor.
func (d *Device) Close() error {
	_ = ioctlInt(d.f, uiDevDestroy, 0)
	return d.f.Close()
}

func ioctlInt(f *os.File, req uint, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(req), arg)
	if errno != 0 {
		return errno
	}
	return nil
}

func ioctlPtr(f *os.File, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func writeStruct(f *os.File, v *inputEvent) error {
	buf := (*[unsafe.Sizeof(inputEvent{})]byte)(unsafe.Pointer(v))[:]
	n, err := f.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return errors.New("uinput: short write")
	}
	return nil
}
