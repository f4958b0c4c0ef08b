// Package profile implements the profile translator (C3): it rebinds
// resolved capability events onto the capabilities a composite device's
// targets actually expose, and runs the one continuous producer a profile
// can configure — turning an analog stick's deflection into ongoing mouse
// pointer motion, the same way a "trackpoint mode" toggle works on real
// handhelds.
package profile

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/inputmux/inputmuxd/pkg/capability"
	"github.com/inputmux/inputmuxd/pkg/config"
	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

// Profile holds the compiled bindings and continuous-producer configuration
// for one profile document.
type Profile struct {
	bindings map[capability.Capability]capability.Capability
	stick    *config.StickToMouse
	leftX    capability.Capability
	leftY    capability.Capability
	rightX   capability.Capability
	rightY   capability.Capability

	deflectX atomic.Uint64 // math.Float64bits, range [-1,1]
	deflectY atomic.Uint64
}

// New compiles a ProfileFile into a Profile.
func New(f *config.ProfileFile) *Profile {
	p := &Profile{
		bindings: map[capability.Capability]capability.Capability{},
		leftX:    capability.GamepadAxisLeftX,
		leftY:    capability.GamepadAxisLeftY,
		rightX:   capability.GamepadAxisRightX,
		rightY:   capability.GamepadAxisRightY,
	}
	for _, b := range f.Bindings {
		p.bindings[capability.Capability(b.SourceCapability)] = capability.Capability(b.TargetCapability)
	}
	p.stick = f.StickToMouse
	return p
}

func (p *Profile) stickAxes() (x, y capability.Capability) {
	if p.stick != nil && p.stick.Stick == "right" {
		return p.rightX, p.rightY
	}
	return p.leftX, p.leftY
}

// Run reads capability events from in, applies bindings, and writes the
// result to out, until ctx is canceled. If the profile configures
// StickToMouse, Run also drives a ticker that integrates the configured
// stick's current deflection into pointer-motion events at StickToMouse.TickHz.
func (p *Profile) Run(ctx context.Context, in <-chan nativeevent.CapabilityEvent, out chan<- nativeevent.CapabilityEvent) {
	var tickerC <-chan time.Time
	if p.stick != nil && p.stick.TickHz > 0 {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / p.stick.TickHz))
		defer ticker.Stop()
		tickerC = ticker.C
	}

	axisX, axisY := capability.Capability(""), capability.Capability("")
	if p.stick != nil {
		axisX, axisY = p.stickAxes()
	}

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			if p.stick != nil && ev.Kind == nativeevent.KindAxis {
				if ev.Capability == axisX {
					p.setDeflection(&p.deflectX, applyDeadzone(ev.Value, p.stick.Deadzone))
					continue
				}
				if ev.Capability == axisY {
					p.setDeflection(&p.deflectY, applyDeadzone(ev.Value, p.stick.Deadzone))
					continue
				}
			}
			out <- p.rebind(ev)
		case now := <-tickerC:
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			dx := p.getDeflection(&p.deflectX) * p.stick.SensitivityPxPerSec * dt
			dy := p.getDeflection(&p.deflectY) * p.stick.SensitivityPxPerSec * dt
			if dx == 0 && dy == 0 {
				continue
			}
			out <- nativeevent.CapabilityEvent{
				Capability:     capability.PointerMotion,
				Kind:           nativeevent.KindAxis,
				Value:          0,
				MotionX:        dx,
				MotionY:        dy,
				TimestampNanos: now.UnixNano(),
			}
		}
	}
}

func (p *Profile) rebind(ev nativeevent.CapabilityEvent) nativeevent.CapabilityEvent {
	if target, ok := p.bindings[ev.Capability]; ok {
		ev.Capability = target
	}
	return ev
}

func (p *Profile) setDeflection(field *atomic.Uint64, v float64) {
	field.Store(math.Float64bits(v))
}

func (p *Profile) getDeflection(field *atomic.Uint64) float64 {
	return math.Float64frombits(field.Load())
}

func applyDeadzone(v, deadzone float64) float64 {
	if math.Abs(v) < deadzone {
		return 0
	}
	return v
}
