// Package source defines the common interface every physical input source
// decoder (evdev, hidraw, iio) implements, plus a constructor registry so
// pkg/manager can instantiate the right decoder for a discovered device node
// without importing every family directly.
package source

import (
	"context"
	"sync"

	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

// Descriptor is the subset of a physical device's identity pkg/match
// matches SourceMatcher patterns against.
type Descriptor struct {
	ID            string // stable identifier, typically the device node path
	Name          string
	VendorProduct string // "vvvv:pppp" lowercase hex
	PhysPath      string
}

// Source captures native events from one physical device and normalizes
// them onto the shared nativeevent.NativeEvent shape.
type Source interface {
	// Descriptor returns this source's identity for matcher evaluation.
	Descriptor() Descriptor
	// Run captures events until ctx is canceled or the device disappears,
	// writing normalized events to out. Run owns out only in the sense of
	// being its sole writer; it must never close out, since a composite
	// device's capability translator may read from several sources funneled
	// into the same channel by the supervisor (see pkg/composite).
	Run(ctx context.Context, out chan<- nativeevent.NativeEvent) error
	// Close releases the underlying device handle. Safe to call after Run
	// has returned (or instead of canceling ctx, to interrupt Run early).
	Close() error
}

// Constructor builds a Source for a device node path.
type Constructor func(devicePath string) (Source, error)

var (
	mu       sync.RWMutex
	registry = map[string]Constructor{}
)

// Register adds a Constructor for a source family name ("evdev", "hidraw",
// "iio"). Family packages call this from an init() function.
func Register(family string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[family] = ctor
}

// New instantiates a Source of the given family for devicePath.
func New(family, devicePath string) (Source, error) {
	mu.RLock()
	ctor, ok := registry[family]
	mu.RUnlock()
	if !ok {
		return nil, &UnknownFamilyError{Family: family}
	}
	return ctor(devicePath)
}

// UnknownFamilyError is returned by New when no decoder is registered for
// the requested family.
type UnknownFamilyError struct{ Family string }

func (e *UnknownFamilyError) Error() string {
	return "source: unknown family " + e.Family
}
