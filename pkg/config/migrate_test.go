package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeV1SingleKey(t *testing.T) {
	f := &CapabilityMapFile{
		Version: 1,
		Name:    "legacy",
		Mappings: []RawMappingEntryV1{
			{Name: "guide", ActivationKeys: []string{"leftmeta"}, TargetEvent: "gamepad.button.guide"},
		},
	}
	got, err := f.Normalize()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, MappingSingle, got[0].MappingType)
	assert.Equal(t, []Predicate{{SourceCapability: "keyboard.key.leftmeta"}}, got[0].Predicates)
	assert.Equal(t, "gamepad.button.guide", got[0].TargetEvent)
}

func TestNormalizeV1ChordPreservesOrder(t *testing.T) {
	f := &CapabilityMapFile{
		Version: 1,
		Name:    "legacy",
		Mappings: []RawMappingEntryV1{
			{
				Name:           "qam",
				ActivationKeys: []string{"leftmeta", "a"},
				TargetEvent:    "gamepad.button.qam",
			},
		},
	}
	got, err := f.Normalize()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, MappingChord, got[0].MappingType)
	require.Len(t, got[0].Predicates, 2)
	assert.Equal(t, "keyboard.key.leftmeta", got[0].Predicates[0].SourceCapability)
	assert.Equal(t, "keyboard.key.a", got[0].Predicates[1].SourceCapability)
}

func TestNormalizeV2Passthrough(t *testing.T) {
	f := &CapabilityMapFile{
		Version: 2,
		Name:    "modern",
		MappingsV2: []MappingEntry{
			{Name: "m1", MappingType: MappingDelayedChord, DelayMillis: 250},
		},
	}
	got, err := f.Normalize()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 250, got[0].DelayMillis)
}

func TestNormalizeRejectsEmptyActivationKeys(t *testing.T) {
	f := &CapabilityMapFile{
		Mappings: []RawMappingEntryV1{{Name: "bad", TargetEvent: "x"}},
	}
	_, err := f.Normalize()
	assert.Error(t, err)
}
