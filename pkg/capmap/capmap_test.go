package capmap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inputmux/inputmuxd/pkg/config"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

func runTranslator(t *testing.T, mappings []config.MappingEntry) (chan nativeevent.NativeEvent, chan nativeevent.CapabilityEvent, context.CancelFunc) {
	t.Helper()
	tr := New(mappings)
	in := make(chan nativeevent.NativeEvent, 8)
	out := make(chan nativeevent.CapabilityEvent, 8)
	ctx, cancel := context.WithCancel(context.Background())
	go tr.Run(ctx, in, out)
	return in, out, cancel
}

func recvWithin(t *testing.T, out chan nativeevent.CapabilityEvent, d time.Duration) *nativeevent.CapabilityEvent {
	t.Helper()
	select {
	case ev := <-out:
		return &ev
	case <-time.After(d):
		return nil
	}
}

func TestSinglePassthrough(t *testing.T) {
	in, out, cancel := runTranslator(t, []config.MappingEntry{
		{MappingType: config.MappingSingle, Predicates: []config.Predicate{{SourceCapability: "BTN_SOUTH"}}, TargetEvent: "gamepad.button.south"},
	})
	defer cancel()

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "BTN_SOUTH", Pressed: true}
	ev := recvWithin(t, out, time.Second)
	require.NotNil(t, ev)
	assert.Equal(t, "gamepad.button.south", string(ev.Capability))
	assert.True(t, ev.Pressed)
}

func TestChordFiresOnlyWhenFullyHeld(t *testing.T) {
	in, out, cancel := runTranslator(t, []config.MappingEntry{
		{
			MappingType: config.MappingChord,
			Predicates: []config.Predicate{
				{SourceCapability: "KEY_LEFTMETA"},
				{SourceCapability: "KEY_A"},
			},
			TargetEvent: "gamepad.button.qam",
		},
	})
	defer cancel()

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "KEY_LEFTMETA", Pressed: true}
	assert.Nil(t, recvWithin(t, out, 50*time.Millisecond))

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "KEY_A", Pressed: true}
	ev := recvWithin(t, out, time.Second)
	require.NotNil(t, ev)
	assert.True(t, ev.Pressed)

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "KEY_A", Pressed: false}
	ev = recvWithin(t, out, time.Second)
	require.NotNil(t, ev)
	assert.False(t, ev.Pressed)
}

func TestDelayedChordReplaysTapOnEarlyRelease(t *testing.T) {
	in, out, cancel := runTranslator(t, []config.MappingEntry{
		{
			MappingType: config.MappingDelayedChord,
			Predicates:  []config.Predicate{{SourceCapability: "BTN_MODE"}},
			TargetEvent: "gamepad.button.qam",
			DelayMillis: 200,
		},
	})
	defer cancel()

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "BTN_MODE", Pressed: true}
	assert.Nil(t, recvWithin(t, out, 50*time.Millisecond))

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "BTN_MODE", Pressed: false}
	ev := recvWithin(t, out, time.Second)
	require.NotNil(t, ev)
	assert.Equal(t, "gamepad.button.guide", string(ev.Capability))
	assert.True(t, ev.Pressed)

	ev = recvWithin(t, out, time.Second)
	require.NotNil(t, ev)
	assert.Equal(t, "gamepad.button.guide", string(ev.Capability))
	assert.False(t, ev.Pressed)

	// No delayed-qam fires after the window elapses; the tap already replayed.
	assert.Nil(t, recvWithin(t, out, 300*time.Millisecond))
}

func TestDelayedChordFiresAfterHold(t *testing.T) {
	in, out, cancel := runTranslator(t, []config.MappingEntry{
		{
			MappingType: config.MappingDelayedChord,
			Predicates:  []config.Predicate{{SourceCapability: "BTN_MODE"}},
			TargetEvent: "gamepad.button.qam",
			DelayMillis: 30,
		},
	})
	defer cancel()

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "BTN_MODE", Pressed: true}
	ev := recvWithin(t, out, time.Second)
	require.NotNil(t, ev)
	assert.True(t, ev.Pressed)
}

func TestChordConsumedPredicateSuppressesSingleMapping(t *testing.T) {
	in, out, cancel := runTranslator(t, []config.MappingEntry{
		{
			MappingType: config.MappingChord,
			Predicates: []config.Predicate{
				{SourceCapability: "KEY_LEFTMETA"},
				{SourceCapability: "KEY_A"},
			},
			TargetEvent: "gamepad.button.qam",
		},
		{
			MappingType: config.MappingSingle,
			Predicates:  []config.Predicate{{SourceCapability: "KEY_A"}},
			TargetEvent: "keyboard.key.a",
		},
	})
	defer cancel()

	in <- nativeevent.NativeEvent{Kind: nativeevent.KindButton, Code: "KEY_A", Pressed: true}
	// KEY_A is claimed by the chord above; the single mapping on the same
	// predicate must not also forward it verbatim.
	assert.Nil(t, recvWithin(t, out, 50*time.Millisecond))
}

func TestMultiSourceCombinesDistinctSources(t *testing.T) {
	in, out, cancel := runTranslator(t, []config.MappingEntry{
		{
			MappingType: config.MappingMultiSource,
			Predicates: []config.Predicate{
				{SourceCapability: "BTN_SOUTH", SourceID: "left-pad"},
				{SourceCapability: "BTN_SOUTH", SourceID: "right-pad"},
			},
			TargetEvent: "gamepad.button.south",
		},
	})
	defer cancel()

	in <- nativeevent.NativeEvent{SourceID: "left-pad", Kind: nativeevent.KindButton, Code: "BTN_SOUTH", Pressed: true}
	ev := recvWithin(t, out, time.Second)
	require.NotNil(t, ev)

	in <- nativeevent.NativeEvent{SourceID: "right-pad", Kind: nativeevent.KindButton, Code: "BTN_SOUTH", Pressed: true}
	ev = recvWithin(t, out, time.Second)
	require.NotNil(t, ev)
}
