// Package scripting defines the pluggable filter seam a composite device
// runs capability and profile events through: preprocess (on native events,
// before the capability translator), process (on capability events, before
// the profile translator), and postprocess (on the final target-bound
// events, before emission). Only the seam is implemented here; the embedded
// scripting language itself (e.g. a Lua/Starlark runtime) is out of scope,
// matching this codebase's own lightweight internal extension points rather
// than a general-purpose plugin host.
package scripting

import "github.com/inputmux/inputmuxd/pkg/nativeevent"

// Hook is the interface a script/filter implementation satisfies. Each
// method may return ok=false to drop the event entirely, or a modified copy
// to rewrite it in place.
type Hook interface {
	Preprocess(ev nativeevent.NativeEvent) (nativeevent.NativeEvent, bool)
	Process(ev nativeevent.CapabilityEvent) (nativeevent.CapabilityEvent, bool)
	Postprocess(ev nativeevent.CapabilityEvent) (nativeevent.CapabilityEvent, bool)
}

// NoOp is the default Hook: every stage passes its event through unchanged.
// A composite device without a configured script uses this.
type NoOp struct{}

func (NoOp) Preprocess(ev nativeevent.NativeEvent) (nativeevent.NativeEvent, bool) { return ev, true }
func (NoOp) Process(ev nativeevent.CapabilityEvent) (nativeevent.CapabilityEvent, bool) {
	return ev, true
}
func (NoOp) Postprocess(ev nativeevent.CapabilityEvent) (nativeevent.CapabilityEvent, bool) {
	return ev, true
}

// Constructor builds a Hook from a script source path, the seam
// pkg/manager uses to instantiate a DeviceConfig's configured Script without
// this package depending on any particular scripting engine.
type Constructor func(scriptPath string) (Hook, error)

var constructors = map[string]Constructor{}

// Register adds a Constructor for a script file extension (e.g. ".star",
// ".lua"). Engine packages call this from an init() function; none ship in
// this tree today, so resolution always falls through to NoOp.
func Register(ext string, ctor Constructor) {
	constructors[ext] = ctor
}

// Load resolves scriptPath to a Hook via its extension's registered
// Constructor, or returns NoOp if scriptPath is empty or no engine is
// registered for its extension.
func Load(scriptPath string) (Hook, error) {
	if scriptPath == "" {
		return NoOp{}, nil
	}
	ext := extOf(scriptPath)
	ctor, ok := constructors[ext]
	if !ok {
		return NoOp{}, nil
	}
	return ctor(scriptPath)
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
