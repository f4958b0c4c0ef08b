package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/config"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

func TestRebindingPassesThroughOthers(t *testing.T) {
	p := New(&config.ProfileFile{
		Bindings: []config.ProfileBinding{
			{SourceCapability: "gamepad.button.south", TargetCapability: "keyboard.key.space"},
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan nativeevent.CapabilityEvent, 4)
	out := make(chan nativeevent.CapabilityEvent, 4)
	go p.Run(ctx, in, out)

	in <- nativeevent.CapabilityEvent{Capability: capability.GamepadButtonSouth, Kind: nativeevent.KindButton, Pressed: true}
	select {
	case ev := <-out:
		assert.Equal(t, "keyboard.key.space", string(ev.Capability))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for rebound event")
	}
}

func TestStickToMouseIntegratesDeflectionOverTime(t *testing.T) {
	p := New(&config.ProfileFile{
		StickToMouse: &config.StickToMouse{
			Stick:               "left",
			SensitivityPxPerSec: 100,
			Deadzone:            0.05,
			TickHz:              200,
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan nativeevent.CapabilityEvent, 4)
	out := make(chan nativeevent.CapabilityEvent, 16)
	go p.Run(ctx, in, out)

	in <- nativeevent.CapabilityEvent{Capability: capability.GamepadAxisLeftX, Kind: nativeevent.KindAxis, Value: 1.0}

	var total float64
	deadline := time.After(500 * time.Millisecond)
	count := 0
loop:
	for {
		select {
		case ev := <-out:
			total += ev.MotionX
			count++
			if count >= 3 {
				break loop
			}
		case <-deadline:
			break loop
		}
	}
	require.Greater(t, count, 0)
	assert.Greater(t, total, 0.0)
}

func TestDeadzoneSuppressesSmallDeflection(t *testing.T) {
	got := applyDeadzone(0.02, 0.1)
	assert.Equal(t, 0.0, got)
	got = applyDeadzone(0.5, 0.1)
	assert.Equal(t, 0.5, got)
}
