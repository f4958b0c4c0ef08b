package log

import (
	"fmt"

	"github.com/inputmux/inputmuxd/pkg/nativeevent"
)

// EventTracer formats native and capability events through a RawLogger,
// the same hexdump-style sink the teacher used for raw USB-IP packet
// traces, repurposed here as a per-event pipeline tracer. It writes wherever
// the wrapped RawLogger does: the raw log file when one is configured,
// otherwise stdout at trace level, otherwise nowhere. in=true marks a NativeEvent crossing source->translator;
// in=false marks a CapabilityEvent crossing translator->target.
type EventTracer struct {
	raw RawLogger
}

// NewEventTracer wraps an existing RawLogger for event tracing.
func NewEventTracer(raw RawLogger) EventTracer {
	return EventTracer{raw: raw}
}

// TraceNative logs one NativeEvent as it leaves a source decoder.
func (t EventTracer) TraceNative(ev nativeevent.NativeEvent) {
	line := fmt.Sprintf("source=%s code=%s pressed=%v value=%.4f ts=%d",
		ev.SourceID, ev.Code, ev.Pressed, ev.Value, ev.TimestampNanos)
	t.raw.Log(true, []byte(line))
}

// TraceCapability logs one CapabilityEvent as it leaves the capability
// translator, bound for the profile translator and then a target.
func (t EventTracer) TraceCapability(ev nativeevent.CapabilityEvent) {
	line := fmt.Sprintf("capability=%s pressed=%v value=%.4f ts=%d",
		ev.Capability, ev.Pressed, ev.Value, ev.TimestampNanos)
	t.raw.Log(false, []byte(line))
}
