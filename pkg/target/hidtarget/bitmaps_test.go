package hidtarget

import (
	"testing"

	"github.com/inputmux/inputmuxd/device/dualshock4"

	"github.com/stretchr/testify/assert"
)

func TestEncodeTouchCoords(t *testing.T) {
	cases := []struct {
		name    string
		x, y    uint16
		wantB0  byte
		wantB1  byte
		wantB2  byte
	}{
		{"origin", 0, 0, 0x00, 0x00, 0x00},
		{"x only", 0xFF, 0, 0xFF, 0x00, 0x00},
		{"y only", 0, 0xFF, 0x00, 0xF0, 0x0F},
		{"clamped to max", 0xFFFF, 0xFFFF, uint8(dualshock4.TouchpadMaxX & 0xFF), uint8((dualshock4.TouchpadMaxX>>8)&0x0F) | uint8((dualshock4.TouchpadMaxY&0x0F)<<4), uint8(dualshock4.TouchpadMaxY >> 4)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := make([]byte, 3)
			encodeTouchCoords(b, tc.x, tc.y)
			assert.Equal(t, tc.wantB0, b[0])
			assert.Equal(t, tc.wantB1, b[1])
			assert.Equal(t, tc.wantB2, b[2])
		})
	}
}

func TestDs4ButtonBitsHaveNoDuplicateBits(t *testing.T) {
	seen := map[uint16]string{}
	for c, bit := range ds4ButtonBits {
		if other, dup := seen[bit]; dup {
			t.Fatalf("capabilities %s and %s share bit 0x%x", c, other, bit)
		}
		seen[bit] = string(c)
	}
}

func TestXboxButtonBitsHaveNoDuplicateBits(t *testing.T) {
	seen := map[uint32]string{}
	for c, bit := range xboxButtonBits {
		if other, dup := seen[bit]; dup {
			t.Fatalf("capabilities %s and %s share bit 0x%x", c, other, bit)
		}
		seen[bit] = string(c)
	}
}

func TestSteamDeckButtonBitsHaveNoDuplicateBits(t *testing.T) {
	seen := map[uint64]string{}
	for c, bit := range steamdeckButtonBits {
		if other, dup := seen[bit]; dup {
			t.Fatalf("capabilities %s and %s share bit 0x%x", c, other, bit)
		}
		seen[bit] = string(c)
	}
}
