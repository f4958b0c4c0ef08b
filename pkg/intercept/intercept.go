// Package intercept implements the intercept gate (C4): a composite
// device's single point of control over whether capability events reach
// their normal targets, get diverted to the control bus instead, or both.
package intercept

import (
	"strings"
	"sync/atomic"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

// Mode selects how the gate routes capability events between targets and
// the control bus.
type Mode int32

const (
	// ModeNone routes every event to targets only; the bus receives nothing.
	ModeNone Mode = iota
	// ModePass routes every event except Guide to targets only; a Guide event
	// goes to the bus and switches the gate to ModeAll (see Route).
	ModePass
	// ModeAll routes every event to the bus only; targets receive nothing.
	// Used while a bus client (e.g. an on-screen overlay) owns all input.
	ModeAll
	// ModeGamepadOnly routes gamepad-class events to the bus only, while
	// everything else (keyboard, mouse, touch) still reaches targets
	// normally. Used for overlays that only want to steal face buttons.
	ModeGamepadOnly
)

// Gate is a single-writer, multi-reader mode cell plus the routing table
// that applies it. SetMode is expected to be called from the control bus
// handler goroutine; Route is called from the composite device's hot event
// path and must never block on a writer.
type Gate struct {
	mode atomic.Int32
}

// New returns a Gate initialized to ModeNone.
func New() *Gate {
	g := &Gate{}
	g.mode.Store(int32(ModeNone))
	return g
}

// SetMode updates the current routing mode. Safe to call concurrently with
// Route; the new mode takes effect for the next event Route processes.
func (g *Gate) SetMode(m Mode) {
	g.mode.Store(int32(m))
}

// Mode returns the current routing mode.
func (g *Gate) Mode() Mode {
	return Mode(g.mode.Load())
}

// Destination names where Route decided an event should go.
type Destination int

const (
	DestTargets Destination = 1 << iota
	DestBus
)

// Route decides the destination(s) for ev under the gate's current mode.
// In ModePass, a Guide event routes to the bus and arms every following
// event for ModeAll — the gate table's documented auto-transition, letting
// a bus client "steal" input the moment the user asks for it via Guide
// without a separate SetMode round trip.
func (g *Gate) Route(ev nativeevent.CapabilityEvent) Destination {
	switch g.Mode() {
	case ModeNone:
		return DestTargets
	case ModePass:
		if ev.Capability == capability.GamepadButtonGuide {
			g.mode.Store(int32(ModeAll))
			return DestBus
		}
		return DestTargets
	case ModeAll:
		return DestBus
	case ModeGamepadOnly:
		if isGamepadClass(ev.Capability) {
			return DestBus
		}
		return DestTargets
	default:
		return DestTargets
	}
}

func isGamepadClass(c capability.Capability) bool {
	if !strings.HasPrefix(string(c), "gamepad.") {
		return false
	}
	switch c.Class() {
	case capability.ClassButton, capability.ClassAxis, capability.ClassTrigger:
		return true
	default:
		return false
	}
}
