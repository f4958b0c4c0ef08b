// Package target defines the common interface every target device (C5)
// implements, plus a constructor registry so pkg/manager and pkg/composite
// can instantiate targets from a configuration's target_devices list without
// importing every family (uinput, uhid-branded, bus) directly.
//
// Every target moves through the same state machine regardless of family:
//
//	Creating -> Running -> Draining -> Closed
//
// Creating opens the kernel handle (or, for the bus target, registers the
// publisher); Running accepts capability events; Draining flushes queued
// frames and emits a synthetic neutral state (every button released, every
// axis centered) so nothing is left stuck pressed on the consuming side;
// Closed has released the kernel handle. Close() below drives Running
// straight through Draining to Closed; a target's kernel handle exists only
// for the Running+Draining span (spec invariant: a target device's kernel
// handle appears only while the composite is alive).
package target

import (
	"fmt"
	"sync/atomic"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

// State is a target's lifecycle stage.
type State int32

const (
	StateCreating State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Target consumes capability events and republishes them through a kernel
// virtual device (uinput/uhid) or the control bus.
type Target interface {
	// Name is the configured name of this target instance.
	Name() string
	// Capabilities lists what this target can consume, for the bus'
	// CompositeDevice.Capabilities property.
	Capabilities() []capability.Capability
	// Accept delivers one capability event. Implementations must not block
	// indefinitely; a full internal queue should drop the oldest frame
	// rather than stall the dispatch loop (spec §4.6: non-blocking publish
	// for the bus target, same discipline applied uniformly here).
	Accept(ev nativeevent.CapabilityEvent)
	// State reports the current lifecycle stage.
	State() State
	// Close transitions Running -> Draining -> Closed: drains, emits a
	// neutral state, and releases the kernel handle. Idempotent.
	Close() error
}

// Constructor builds a Target from its configured name and brand-specific
// options (e.g. vendor/product override, touch region). Options is the
// decoded YAML map for this target_devices[] entry.
type Constructor func(name string, options map[string]any) (Target, error)

var registry = map[string]Constructor{}

// Register adds a Constructor for a target kind ("uinput.gamepad",
// "uinput.mouse", "uinput.keyboard", "uinput.touchpad", "uinput.touchscreen",
// "hid.xbox360", "hid.xboxone", "hid.xboxelite", "hid.dualsense",
// "hid.dualsenseedge", "hid.dualshock4", "hid.steamdeck", "bus"). Family packages call this
// from an init() function, mirroring pkg/source's registry.
func Register(kind string, ctor Constructor) {
	registry[kind] = ctor
}

// New instantiates a Target of the given kind.
func New(kind, name string, options map[string]any) (Target, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("target: unknown kind %q", kind)
	}
	return ctor(name, options)
}

// Kinds lists every registered target kind, for config validation and the
// bus' introspection.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// Lifecycle is an embeddable State holder every concrete target family uses
// so the Creating/Running/Draining/Closed bookkeeping is implemented once
// instead of once per brand.
type Lifecycle struct {
	state atomic.Int32
}

// State reports the current lifecycle stage.
func (l *Lifecycle) State() State { return State(l.state.Load()) }

// Set transitions to a new lifecycle stage.
func (l *Lifecycle) Set(s State) { l.state.Store(int32(s)) }
