package config

import "fmt"

// Normalize returns the v2 mapping list for a capability map document,
// lowering v1 documents (a flat activation_keys list) into v2 chords of
// keyboard key predicates. A document with an explicit mappings_v2 section
// is returned unchanged regardless of its declared Version, since
// mappings_v2 is always schema v2.
func (f *CapabilityMapFile) Normalize() ([]MappingEntry, error) {
	if len(f.MappingsV2) > 0 {
		return f.MappingsV2, nil
	}
	if len(f.Mappings) == 0 {
		return nil, nil
	}
	out := make([]MappingEntry, 0, len(f.Mappings))
	for _, m := range f.Mappings {
		entry, err := lowerV1Mapping(m)
		if err != nil {
			return nil, fmt.Errorf("capability map %q: mapping %q: %w", f.Name, m.Name, err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// lowerV1Mapping converts one legacy activation_keys mapping into its v2
// equivalent. A single activation key becomes a MappingSingle; more than one
// becomes a MappingChord of keyboard key predicates, matching the ordering
// the v1 list declared (chord precedence is list order, preserved here).
func lowerV1Mapping(m RawMappingEntryV1) (MappingEntry, error) {
	if len(m.ActivationKeys) == 0 {
		return MappingEntry{}, fmt.Errorf("activation_keys must not be empty")
	}
	if m.TargetEvent == "" {
		return MappingEntry{}, fmt.Errorf("target_event must not be empty")
	}

	predicates := make([]Predicate, 0, len(m.ActivationKeys))
	for _, key := range m.ActivationKeys {
		predicates = append(predicates, Predicate{
			SourceCapability: "keyboard.key." + key,
		})
	}

	kind := MappingSingle
	if len(predicates) > 1 {
		kind = MappingChord
	}

	return MappingEntry{
		Name:        m.Name,
		MappingType: kind,
		Predicates:  predicates,
		TargetEvent: m.TargetEvent,
	}, nil
}
