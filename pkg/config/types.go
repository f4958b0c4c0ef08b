// Package config defines the on-disk YAML schema for composite device
// definitions, capability maps, and profiles, and loads them from the
// layered configuration directories described in internal/configpaths.
package config

// SourceMatcher selects which physical devices feed a composite device. Only
// Name is matched: it is a glob/brace pattern (see pkg/match) evaluated
// against the base name of the device node, and an empty Name matches any
// node. VendorProduct and PhysPath are decoded but not consulted when
// matching.
type SourceMatcher struct {
	Name          string `yaml:"name,omitempty"`
	VendorProduct string `yaml:"vendor_product,omitempty"`
	PhysPath      string `yaml:"phys_path,omitempty"`
	// Required, when set, marks the composite device as unable to start
	// until at least one source matches this entry.
	Required bool `yaml:"required,omitempty"`
}

// DMIMatcher gates a device configuration to specific hardware, read from
// /sys/class/dmi/id by pkg/dmi.
type DMIMatcher struct {
	SysVendor  string `yaml:"sys_vendor,omitempty"`
	ProductName string `yaml:"product_name,omitempty"`
}

// TargetSpec declares one target device a composite device should create.
// Kind selects the target implementation from pkg/target's constructor
// registry (e.g. "uinput.keyboard", "uinput.mouse", "uinput.touchscreen",
// "hid.dualsense", "bus").
type TargetSpec struct {
	Kind string         `yaml:"kind"`
	Opts map[string]any `yaml:"opts,omitempty"`
}

// DeviceConfig is the top-level composite device definition: which sources
// feed it, which capability map translates their native events, which
// profile binds capability events to target capabilities, and which
// targets(s) actually receive output.
type DeviceConfig struct {
	Name string `yaml:"name"`
	// Priority orders configurations relative to one another. It is never
	// read from the document itself: LoadDeviceConfigs derives it from the
	// numeric prefix of the config's filename (lower prefix = earlier), the
	// on-disk ordering convention the layered config directories use.
	Priority       int             `yaml:"-"`
	Sources        []SourceMatcher `yaml:"sources"`
	DMI            *DMIMatcher     `yaml:"dmi,omitempty"`
	CapabilityMap  string          `yaml:"capability_map"`
	Profile        string          `yaml:"profile"`
	Targets        []TargetSpec    `yaml:"targets"`
	Script         string          `yaml:"script,omitempty"`
	InterceptMode  string          `yaml:"intercept_mode,omitempty"` // "none","pass","all","gamepad_only"
}

// CapabilityMapSchemaVersion identifies which mapping-kind vocabulary a
// capability map document uses.
type CapabilityMapSchemaVersion int

const (
	SchemaV1 CapabilityMapSchemaVersion = 1
	SchemaV2 CapabilityMapSchemaVersion = 2
)

// CapabilityMapFile is the raw decoded shape of a capability_maps.d/*.yaml
// document, before schema normalization. Version is decoded but not
// defaulted or read by Normalize, which picks the schema from whether
// mappings_v2 or mappings is populated.
type CapabilityMapFile struct {
	Version  int                `yaml:"version"`
	Name     string             `yaml:"name"`
	Mappings []RawMappingEntryV1 `yaml:"mappings,omitempty"` // v1 documents only
	MappingsV2 []MappingEntry    `yaml:"mappings_v2,omitempty"`
}

// RawMappingEntryV1 is a legacy mapping: a flat list of source activation
// keys that together produce one target event.
type RawMappingEntryV1 struct {
	Name           string   `yaml:"name"`
	ActivationKeys []string `yaml:"activation_keys"`
	TargetEvent    string   `yaml:"target_event"`
}

// MappingKind selects which translation state machine (pkg/capmap) handles
// a mapping entry.
type MappingKind string

const (
	MappingSingle       MappingKind = "single"
	MappingChord        MappingKind = "chord"
	MappingDelayedChord MappingKind = "delayed_chord"
	MappingMultiSource  MappingKind = "multi_source"
)

// Predicate matches one native event by source capability and optional
// source ID restriction.
type Predicate struct {
	SourceCapability string `yaml:"source_capability"`
	SourceID         string `yaml:"source_id,omitempty"` // restricts to a specific physical source, for multi_source
}

// MappingEntry is a v2 capability map mapping: a mapping kind, the
// predicates it watches, and the capability it emits.
type MappingEntry struct {
	Name          string        `yaml:"name"`
	MappingType   MappingKind   `yaml:"mapping_type"`
	Predicates    []Predicate   `yaml:"predicates"`
	TargetEvent   string        `yaml:"target_event"`
	DelayMillis   int           `yaml:"delay_millis,omitempty"` // delayed_chord only
}

// ProfileFile binds capability events (already resolved by the capability
// translator) to the events a target device actually emits, plus
// continuous-producer tuning such as stick-to-mouse-motion sensitivity.
type ProfileFile struct {
	Name     string           `yaml:"name"`
	Bindings []ProfileBinding `yaml:"bindings"`
	StickToMouse *StickToMouse `yaml:"stick_to_mouse,omitempty"`
}

// ProfileBinding remaps one capability event onto a different target
// capability, e.g. remapping "gamepad.button.south" to "keyboard.key.space".
type ProfileBinding struct {
	SourceCapability string `yaml:"source_capability"`
	TargetCapability string `yaml:"target_capability"`
}

// StickToMouse configures the continuous analog-stick-to-mouse-motion
// producer: every tick, the configured stick's deflection is scaled by
// SensitivityPxPerSec and integrated into mouse pointer deltas.
type StickToMouse struct {
	Stick               string  `yaml:"stick"` // "left" or "right"
	SensitivityPxPerSec float64 `yaml:"sensitivity_px_per_sec"`
	Deadzone            float64 `yaml:"deadzone"`
	TickHz              float64 `yaml:"tick_hz"`
}
