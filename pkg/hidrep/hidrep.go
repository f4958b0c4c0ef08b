// Package hidrep is a small DSL for building HID report descriptors, the
// byte blob a uhid-backed target device registers with the kernel (UHID_CREATE2)
// so the kernel's HID core knows how to interpret the raw reports it writes.
package hidrep

import "bytes"

// itemType is the two-bit HID item type field (Main=0, Global=1, Local=2).
type itemType uint8

const (
	typeMain   itemType = 0
	typeGlobal itemType = 1
	typeLocal  itemType = 2
)

// Collection kinds (HID 1.11 §6.2.2.6).
const (
	CollectionPhysical    = 0x00
	CollectionApplication = 0x01
	CollectionLogical     = 0x02
)

// Main item data flags (HID 1.11 §6.2.2.5), combined with bitwise OR.
const (
	MainConst     = 1 << 0
	MainVar       = 1 << 1
	MainRel       = 1 << 2
	MainNullState = 1 << 6

	// MainData is the zero value of the Data/Constant bit; kept as a named
	// constant so call sites read "Data|Var|Abs" symmetrically even though
	// it contributes no bits.
	MainData = 0
	MainAbs  = 0
)

// Usage page constants (HID Usage Tables).
const (
	UsagePageGenericDesktop = 0x01
	UsagePageKeyboard       = 0x07
	UsagePageLEDs           = 0x08
	UsagePageButton         = 0x09
	UsagePageConsumer       = 0x0C
)

// Usage constants within UsagePageGenericDesktop (and UsagePageConsumer for
// UsageACPan).
const (
	UsagePointer  = 0x01
	UsageMouse    = 0x02
	UsageKeyboard = 0x06
	UsageGamePad  = 0x05
	UsageX        = 0x30
	UsageY        = 0x31
	UsageZ        = 0x32
	UsageRx       = 0x33
	UsageRy       = 0x34
	UsageRz       = 0x35
	UsageWheel    = 0x38
	UsageACPan    = 0x0238
)

// Item is one encodable element of a report descriptor: a short item or a
// Collection wrapping nested items.
type Item interface {
	encode(buf *bytes.Buffer)
}

// Report is a complete HID report descriptor, built from top-level Items
// (normally a single top-level Collection).
type Report struct {
	Items []Item
}

// Bytes serializes the report descriptor to its wire form.
func (r Report) Bytes() []byte {
	var buf bytes.Buffer
	for _, it := range r.Items {
		it.encode(&buf)
	}
	return buf.Bytes()
}

func writeShortItem(buf *bytes.Buffer, t itemType, tag uint8, data int64, unsigned bool) {
	var payload []byte
	switch {
	case data == 0:
		payload = []byte{0}
	case unsigned:
		v := uint64(data)
		switch {
		case v <= 0xFF:
			payload = []byte{byte(v)}
		case v <= 0xFFFF:
			payload = []byte{byte(v), byte(v >> 8)}
		default:
			payload = []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
		}
	default:
		switch {
		case data >= -128 && data <= 127:
			payload = []byte{byte(int8(data))}
		case data >= -32768 && data <= 32767:
			v := uint16(int16(data))
			payload = []byte{byte(v), byte(v >> 8)}
		default:
			v := uint32(int32(data))
			payload = []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
		}
	}

	var sizeField uint8
	switch len(payload) {
	case 0:
		sizeField = 0
	case 1:
		sizeField = 1
	case 2:
		sizeField = 2
	case 4:
		sizeField = 3
	}

	prefix := (tag << 4) | (uint8(t) << 2) | sizeField
	buf.WriteByte(prefix)
	buf.Write(payload)
}

// UsagePage is a Global item selecting the usage page subsequent Usage
// items are interpreted within.
type UsagePage struct{ Page uint32 }

func (i UsagePage) encode(buf *bytes.Buffer) { writeShortItem(buf, typeGlobal, 0x0, int64(i.Page), true) }

// Usage is a Local item naming a specific control within the current usage page.
type Usage struct{ Usage uint32 }

func (i Usage) encode(buf *bytes.Buffer) { writeShortItem(buf, typeLocal, 0x0, int64(i.Usage), true) }

// UsageMinimum/UsageMaximum bound a range of usages for the following report fields.
type UsageMinimum struct{ Min uint32 }

func (i UsageMinimum) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeLocal, 0x1, int64(i.Min), true)
}

type UsageMaximum struct{ Max uint32 }

func (i UsageMaximum) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeLocal, 0x2, int64(i.Max), true)
}

// LogicalMinimum/LogicalMaximum set the signed value range a field can report.
type LogicalMinimum struct{ Min int32 }

func (i LogicalMinimum) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeGlobal, 0x1, int64(i.Min), false)
}

type LogicalMaximum struct{ Max int32 }

func (i LogicalMaximum) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeGlobal, 0x2, int64(i.Max), false)
}

// ReportSize sets the bit width of each field in the following Input/Output item.
type ReportSize struct{ Bits uint32 }

func (i ReportSize) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeGlobal, 0x7, int64(i.Bits), true)
}

// ReportCount sets how many fields of ReportSize width the following
// Input/Output item carries.
type ReportCount struct{ Count uint32 }

func (i ReportCount) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeGlobal, 0x9, int64(i.Count), true)
}

// ReportID tags subsequent fields with a numeric report ID, required once a
// device emits more than one distinct report shape.
type ReportID struct{ ID uint8 }

func (i ReportID) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeGlobal, 0x8, int64(i.ID), true)
}

// Input declares a set of input (device-to-host) fields with the given Main flags.
type Input struct{ Flags uint32 }

func (i Input) encode(buf *bytes.Buffer) { writeShortItem(buf, typeMain, 0x8, int64(i.Flags), true) }

// Output declares a set of output (host-to-device) fields with the given Main flags.
type Output struct{ Flags uint32 }

func (i Output) encode(buf *bytes.Buffer) { writeShortItem(buf, typeMain, 0x9, int64(i.Flags), true) }

// Feature declares a set of feature fields with the given Main flags.
type Feature struct{ Flags uint32 }

func (i Feature) encode(buf *bytes.Buffer) { writeShortItem(buf, typeMain, 0xB, int64(i.Flags), true) }

// Collection opens a Main collection item containing Items, automatically
// closing it with an End Collection item.
type Collection struct {
	Kind  uint8
	Items []Item
}

func (c Collection) encode(buf *bytes.Buffer) {
	writeShortItem(buf, typeMain, 0xA, int64(c.Kind), true)
	for _, it := range c.Items {
		it.encode(buf)
	}
	buf.WriteByte(0xC0) // End Collection: tag 0xC, type Main, size 0
}

// AnyItem escapes to a raw short item for constants this DSL does not name.
type AnyItem struct {
	Type     uint8 // 0=Main, 1=Global, 2=Local
	Tag      uint8
	Data     int64
	Unsigned bool
}

func (i AnyItem) encode(buf *bytes.Buffer) {
	writeShortItem(buf, itemType(i.Type), i.Tag, i.Data, i.Unsigned)
}
