// Package capmap implements the capability translator (C2): the component
// that watches native events from one or more sources and, on a match
// against a capability map's mapping entries, emits a capability event.
//
// Four mapping kinds are supported, each its own small state machine:
//
//	single        one predicate, pass-through press/release
//	chord         N predicates on possibly-different sources must all be
//	              held simultaneously before the target event fires
//	delayed_chord like chord, but the chord must stay fully held for
//	              DelayMillis before it fires; releasing early cancels it
//	multi_source  combines events carrying the same target capability from
//	              more than one source without requiring simultaneity
package capmap

import (
	"context"
	"strings"
	"time"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/config"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

func asCapability(s string) capability.Capability { return capability.Capability(s) }

// defaultButtonCapabilities names the capability a bare evdev button code
// maps to absent any capability-map entry for it, the same identity a
// trivial `single` mapping would be configured to produce.
var defaultButtonCapabilities = map[string]capability.Capability{
	"BTN_SOUTH":      capability.GamepadButtonSouth,
	"BTN_EAST":       capability.GamepadButtonEast,
	"BTN_NORTH":      capability.GamepadButtonNorth,
	"BTN_WEST":       capability.GamepadButtonWest,
	"BTN_TL":         capability.GamepadButtonL1,
	"BTN_TR":         capability.GamepadButtonR1,
	"BTN_THUMBL":     capability.GamepadButtonL3,
	"BTN_THUMBR":     capability.GamepadButtonR3,
	"BTN_START":      capability.GamepadButtonStart,
	"BTN_SELECT":     capability.GamepadButtonSelect,
	"BTN_MODE":       capability.GamepadButtonGuide,
	"BTN_DPAD_UP":    capability.GamepadDPadUp,
	"BTN_DPAD_DOWN":  capability.GamepadDPadDown,
	"BTN_DPAD_LEFT":  capability.GamepadDPadLeft,
	"BTN_DPAD_RIGHT": capability.GamepadDPadRight,
}

// defaultCapability derives the capability a bare native event maps to when
// nothing claims it: used to replay a delayed_chord's constituent events
// unchanged when the chord cancels before its hold window elapses, rather
// than silently dropping a tap (spec invariant: a tap passes through as
// itself, not as the chord's target).
func defaultCapability(code string) capability.Capability {
	if c, ok := defaultButtonCapabilities[code]; ok {
		return c
	}
	if name, ok := strings.CutPrefix(code, "KEY_"); ok {
		return capability.KeyboardKey(strings.ToLower(name))
	}
	return capability.Capability(strings.ToLower(code))
}

// Translator holds the compiled state machines for one capability map.
type Translator struct {
	mappings []compiledMapping
	// consumed tracks, per (sourceID, code), whether some chord mapping
	// claims this predicate; single/multi_source mappings on a consumed
	// predicate still observe it but do not also forward it verbatim, per
	// this codebase's resolution of capability-map precedence.
	consumed map[predicateKey]bool
}

type predicateKey struct {
	sourceID string
	code     string
}

// isConsumed reports whether some chord/delayed_chord mapping claims this
// (sourceID, code) predicate, meaning single/multi_source mappings on the
// same predicate must not also forward it. The claim does not depend on
// config order: a chord listed after a single mapping still suppresses it.
func (t *Translator) isConsumed(sourceID, code string) bool {
	if t.consumed[predicateKey{sourceID: sourceID, code: code}] {
		return true
	}
	return t.consumed[predicateKey{sourceID: "", code: code}]
}

type compiledMapping struct {
	entry     config.MappingEntry
	held      map[int]bool // predicate index -> currently pressed
	lastValue map[int]float64
	timer     *time.Timer
	firing    bool
	// buffer accumulates delayed_chord's constituent native events since the
	// chord last went idle, so an early release can replay them verbatim
	// instead of losing the tap.
	buffer []nativeevent.NativeEvent
}

// New compiles a normalized mapping list into a Translator.
func New(mappings []config.MappingEntry) *Translator {
	t := &Translator{consumed: map[predicateKey]bool{}}
	for _, m := range mappings {
		cm := compiledMapping{entry: m, held: map[int]bool{}, lastValue: map[int]float64{}}
		t.mappings = append(t.mappings, cm)
		if m.MappingType == config.MappingChord || m.MappingType == config.MappingDelayedChord {
			for _, p := range m.Predicates {
				t.consumed[predicateKey{sourceID: p.SourceID, code: p.SourceCapability}] = true
			}
		}
	}
	return t
}

// Run reads native events from in and writes resolved capability events to
// out until ctx is canceled. Pending delayed_chord timers are stopped on
// return.
func (t *Translator) Run(ctx context.Context, in <-chan nativeevent.NativeEvent, out chan<- nativeevent.CapabilityEvent) {
	fires := make(chan int, 16) // indices into t.mappings whose delayed_chord just completed its hold

	defer func() {
		for i := range t.mappings {
			if t.mappings[i].timer != nil {
				t.mappings[i].timer.Stop()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case idx := <-fires:
			t.fireChord(idx, out)
		case ev, ok := <-in:
			if !ok {
				return
			}
			t.handle(ev, fires, out)
		}
	}
}

func (t *Translator) handle(ev nativeevent.NativeEvent, fires chan<- int, out chan<- nativeevent.CapabilityEvent) {
	for i := range t.mappings {
		cm := &t.mappings[i]
		matched := false
		matchedIdx := -1
		for pi, p := range cm.entry.Predicates {
			if p.SourceCapability != ev.Code {
				continue
			}
			if p.SourceID != "" && p.SourceID != ev.SourceID {
				continue
			}
			matched = true
			matchedIdx = pi
			break
		}
		if !matched {
			continue
		}

		switch cm.entry.MappingType {
		case config.MappingSingle:
			if !t.isConsumed(ev.SourceID, ev.Code) {
				emitFromNative(cm.entry.TargetEvent, ev, out)
			}
		case config.MappingMultiSource:
			if !t.isConsumed(ev.SourceID, ev.Code) {
				emitFromNative(cm.entry.TargetEvent, ev, out)
			}
		case config.MappingChord:
			t.updateChord(i, matchedIdx, ev)
			if t.chordFullyHeld(i) && !cm.firing {
				cm.firing = true
				t.fireChordPressed(i, out)
			} else if !t.chordFullyHeld(i) && cm.firing {
				cm.firing = false
				t.fireChordReleased(i, out)
			}
		case config.MappingDelayedChord:
			cm.buffer = append(cm.buffer, ev)
			wasHeld := cm.held[matchedIdx]
			t.updateChord(i, matchedIdx, ev)
			nowHeld := cm.held[matchedIdx]
			if t.chordFullyHeld(i) {
				if cm.timer == nil {
					idx := i
					delay := time.Duration(cm.entry.DelayMillis) * time.Millisecond
					cm.timer = time.AfterFunc(delay, func() {
						select {
						case fires <- idx:
						default:
						}
					})
				}
			} else {
				if cm.timer != nil {
					cm.timer.Stop()
					cm.timer = nil
				}
				switch {
				case cm.firing:
					cm.firing = false
					t.fireChordReleased(i, out)
					cm.buffer = nil
				case wasHeld && !nowHeld:
					t.replayBuffer(i, out)
				}
			}
		}
	}
}

func (t *Translator) fireChord(idx int, out chan<- nativeevent.CapabilityEvent) {
	cm := &t.mappings[idx]
	cm.timer = nil
	if !t.chordFullyHeld(idx) {
		return // released during the delay window
	}
	cm.firing = true
	cm.buffer = nil
	t.fireChordPressed(idx, out)
}

// replayBuffer re-emits a delayed_chord's buffered constituent events, each
// under its own default capability, preserving the order and values they
// arrived with (spec invariant 4). Used when the chord cancels before its
// hold window elapses.
func (t *Translator) replayBuffer(idx int, out chan<- nativeevent.CapabilityEvent) {
	cm := &t.mappings[idx]
	for _, ev := range cm.buffer {
		emitFromNative(string(defaultCapability(ev.Code)), ev, out)
	}
	cm.buffer = nil
}

func (t *Translator) updateChord(idx, predicateIdx int, ev nativeevent.NativeEvent) {
	cm := &t.mappings[idx]
	switch ev.Kind {
	case nativeevent.KindButton:
		cm.held[predicateIdx] = ev.Pressed
	default:
		cm.lastValue[predicateIdx] = ev.Value
		cm.held[predicateIdx] = ev.Value != 0
	}
}

func (t *Translator) chordFullyHeld(idx int) bool {
	cm := &t.mappings[idx]
	for pi := range cm.entry.Predicates {
		if !cm.held[pi] {
			return false
		}
	}
	return true
}

func (t *Translator) fireChordPressed(idx int, out chan<- nativeevent.CapabilityEvent) {
	cm := &t.mappings[idx]
	out <- nativeevent.CapabilityEvent{
		Capability:     asCapability(cm.entry.TargetEvent),
		Kind:           nativeevent.KindButton,
		Pressed:        true,
		TimestampNanos: time.Now().UnixNano(),
	}
}

func (t *Translator) fireChordReleased(idx int, out chan<- nativeevent.CapabilityEvent) {
	cm := &t.mappings[idx]
	out <- nativeevent.CapabilityEvent{
		Capability:     asCapability(cm.entry.TargetEvent),
		Kind:           nativeevent.KindButton,
		Pressed:        false,
		TimestampNanos: time.Now().UnixNano(),
	}
}

func emitFromNative(targetEvent string, ev nativeevent.NativeEvent, out chan<- nativeevent.CapabilityEvent) {
	out <- nativeevent.CapabilityEvent{
		Capability:     asCapability(targetEvent),
		Kind:           ev.Kind,
		Pressed:        ev.Pressed,
		Value:          ev.Value,
		TouchX:         ev.TouchX,
		TouchY:         ev.TouchY,
		TouchActive:    ev.TouchActive,
		TouchSlot:      ev.TouchSlot,
		MotionX:        ev.MotionX,
		MotionY:        ev.MotionY,
		MotionZ:        ev.MotionZ,
		TimestampNanos: ev.TimestampNanos,
	}
}
