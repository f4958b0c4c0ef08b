// Package hidtarget implements the uhid-backed branded gamepad target family
// (C5): one module per brand (Xbox 360, Xbox One/Series, Xbox Elite,
// DualShock 4/DualSense, DualSense Edge, Steam Deck), each maintaining an
// in-memory current state and a bit-exact serializer, grounded on the
// teacher's device/{xbox360,dualshock4,steamdeck} report encoders — adapted
// from a USB/IP interrupt-transfer callback shape to uhid's
// create-once/push-reports shape.
package hidtarget

import "github.com/inputmux/inputmuxd/pkg/hidrep"

// buildVendorDescriptor declares a single numbered input report of
// byteLen-1 opaque vendor-usage-page bytes (the report ID itself is not a
// field) plus a same-shaped output report for rumble/LED feedback. None of
// the three brands this package emulates used a real parsed-HID wire format
// in the teacher's own USB/IP transport (Xbox 360 is a vendor-class
// interrupt transfer, not a HID report, even on real hardware); this is the
// minimal descriptor shape the kernel's hid-generic driver needs to accept
// a uhid device and hand raw reports to hidraw consumers, while
// BuildReport's byte layout remains the bit-exact part spec §4.6 asks for.
func buildVendorDescriptor(reportID uint8, inputLen, outputLen int) []byte {
	items := []hidrep.Item{
		hidrep.UsagePage{Page: hidrep.UsagePageGenericDesktop},
		hidrep.Usage{Usage: hidrep.UsageGamePad},
		hidrep.Collection{
			Kind: hidrep.CollectionApplication,
			Items: []hidrep.Item{
				hidrep.ReportID{ID: reportID},
				hidrep.UsagePage{Page: 0xFF00}, // vendor-defined
				hidrep.Usage{Usage: 0x01},
				hidrep.LogicalMinimum{Min: 0},
				hidrep.LogicalMaximum{Max: 255},
				hidrep.ReportSize{Bits: 8},
				hidrep.ReportCount{Count: uint32(inputLen - 1)},
				hidrep.Input{Flags: hidrep.MainData | hidrep.MainVar | hidrep.MainAbs},

				hidrep.Usage{Usage: 0x02},
				hidrep.ReportCount{Count: uint32(outputLen - 1)},
				hidrep.Output{Flags: hidrep.MainData | hidrep.MainVar | hidrep.MainAbs},
			},
		},
	}
	return hidrep.Report{Items: items}.Bytes()
}
