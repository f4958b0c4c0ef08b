// Package nativeevent defines the two event shapes that cross component
// boundaries inside a composite device: the raw NativeEvent a source
// decoder emits, and the CapabilityEvent a capability translator emits once
// it has resolved a native event (or a combination of them) against the
// capability map.
package nativeevent

import "github.com/inputmux/inputmuxd/pkg/capability"

// Kind distinguishes the payload shape carried by a NativeEvent or
// CapabilityEvent.
type Kind int

const (
	// KindButton carries a boolean pressed/released state in Pressed.
	KindButton Kind = iota
	// KindAxis carries a signed normalized value in the range [-1.0, 1.0].
	KindAxis
	// KindTrigger carries an unsigned normalized value in the range [0.0, 1.0].
	KindTrigger
	// KindTouch carries absolute touch coordinates and contact state.
	KindTouch
	// KindMotion carries a 3-axis accelerometer or gyroscope sample.
	KindMotion
)

// NativeEvent is the normalized form a source decoder produces from a raw
// evdev/hidraw/iio read. SourceID identifies which source device descriptor
// produced it, which the capability translator uses to resolve multi_source
// and chord mappings that span more than one physical device.
type NativeEvent struct {
	SourceID string
	Kind     Kind
	Code     string // source-local identifier, e.g. evdev "BTN_SOUTH" or "ABS_X"

	Pressed bool    // valid for KindButton
	Value   float64 // valid for KindAxis/KindTrigger, normalized range per Kind

	TouchX, TouchY float64 // valid for KindTouch, normalized [0,1]
	TouchActive    bool    // valid for KindTouch
	TouchSlot      int     // valid for KindTouch, multitouch contact index

	MotionX, MotionY, MotionZ float64 // valid for KindMotion

	TimestampNanos int64
}

// CapabilityEvent is the output of the capability translator: a native event
// (or resolved combination of native events) mapped onto one target
// capability, ready for the profile translator.
type CapabilityEvent struct {
	Capability capability.Capability
	Kind       Kind

	Pressed bool
	Value   float64

	TouchX, TouchY float64
	TouchActive    bool
	TouchSlot      int

	MotionX, MotionY, MotionZ float64

	TimestampNanos int64
}
