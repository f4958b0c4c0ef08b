package hidrep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasicItemsEncodeToKnownBytes(t *testing.T) {
	r := Report{Items: []Item{
		UsagePage{Page: UsagePageGenericDesktop},
		Usage{Usage: UsageMouse},
		Collection{Kind: CollectionApplication, Items: []Item{
			UsagePage{Page: UsagePageButton},
			UsageMinimum{Min: 1},
			UsageMaximum{Max: 3},
			LogicalMinimum{Min: 0},
			LogicalMaximum{Max: 1},
			ReportCount{Count: 3},
			ReportSize{Bits: 1},
			Input{Flags: MainData | MainVar | MainAbs},
		}},
	}}
	got := r.Bytes()
	want := []byte{
		0x05, 0x01, // Usage Page (Generic Desktop)
		0x09, 0x02, // Usage (Mouse)
		0xA1, 0x01, // Collection (Application)
		0x05, 0x09, //   Usage Page (Button)
		0x19, 0x01, //   Usage Minimum (1)
		0x29, 0x03, //   Usage Maximum (3)
		0x15, 0x00, //   Logical Minimum (0)
		0x25, 0x01, //   Logical Maximum (1)
		0x95, 0x03, //   Report Count (3)
		0x75, 0x01, //   Report Size (1)
		0x81, 0x02, //   Input (Data,Var,Abs)
		0xC0, // End Collection
	}
	assert.Equal(t, want, got)
}

func TestLogicalMinimumNegativeUsesSignedByte(t *testing.T) {
	r := Report{Items: []Item{LogicalMinimum{Min: -128}}}
	assert.Equal(t, []byte{0x15, 0x80}, r.Bytes())
}

func TestReportIDEmitsGlobalItem(t *testing.T) {
	r := Report{Items: []Item{ReportID{ID: 5}}}
	assert.Equal(t, []byte{0x85, 0x05}, r.Bytes())
}
