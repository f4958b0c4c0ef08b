// Package bustarget implements the bus-published target family (C5's third
// variant): instead of writing to a kernel uinput/uhid device, it republishes
// capability events to whichever bus-facing consumer (internal/busapi) has
// subscribed, for overlay applications running in intercept mode.
package bustarget

import (
	"sync"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
	"github.com/inputmux/inputmuxd/pkg/target"
)

func init() {
	target.Register("bus", newBus)
}

// subscriberQueueDepth bounds how far behind a subscriber may fall before
// events addressed to it start getting dropped instead of blocking the
// composite's dispatch goroutine.
const subscriberQueueDepth = 32

// Bus is the bus-publish target. It never blocks: a subscriber that is slow
// or absent loses events rather than backpressuring the composite, matching
// the "non-blocking publish ... dropped silently" rule for bus delivery.
type Bus struct {
	name string

	mu      sync.RWMutex
	nextID  int
	subs    map[int]chan nativeevent.CapabilityEvent
	capsMu  sync.RWMutex
	caps    map[capability.Capability]struct{}

	target.Lifecycle
}

func newBus(name string, _ map[string]any) (target.Target, error) {
	b := &Bus{
		name: name,
		subs: make(map[int]chan nativeevent.CapabilityEvent),
		caps: make(map[capability.Capability]struct{}),
	}
	b.Set(target.StateRunning)
	return b, nil
}

func (b *Bus) Name() string { return b.name }

// Capabilities reports every capability this bus target has ever forwarded.
// Unlike uinput/uhid targets, a bus target has no fixed device profile to
// declare up front; it grows its advertised set as events arrive.
func (b *Bus) Capabilities() []capability.Capability {
	b.capsMu.RLock()
	defer b.capsMu.RUnlock()
	caps := make([]capability.Capability, 0, len(b.caps))
	for c := range b.caps {
		caps = append(caps, c)
	}
	return caps
}

// Subscribe registers a new listener and returns its id (for Unsubscribe)
// and a receive-only channel of events published after this call. Intended
// caller: internal/busapi, once per client that streams intercepted input.
func (b *Bus) Subscribe() (int, <-chan nativeevent.CapabilityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan nativeevent.CapabilityEvent, subscriberQueueDepth)
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes and closes a subscriber's channel.
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *Bus) Accept(ev nativeevent.CapabilityEvent) {
	if b.State() != target.StateRunning {
		return
	}
	b.capsMu.Lock()
	b.caps[ev.Capability] = struct{}{}
	b.capsMu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber's queue is full; drop rather than block the
			// composite's dispatch goroutine.
		}
	}
}

func (b *Bus) Close() error {
	if b.State() == target.StateClosed {
		return nil
	}
	b.Set(target.StateDraining)
	b.mu.Lock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
	b.Set(target.StateClosed)
	return nil
}
