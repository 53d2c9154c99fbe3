package world

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStageResult_FieldsAreFlattened(t *testing.T) {
	res := success("Surrounding characters relationships created successfully").
		with("records", 2).
		with("skipped_pairs", 1)

	raw, err := json.Marshal(Report{StageSurroundingCharactersRelationships: res})
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	entry := decoded[StageSurroundingCharactersRelationships]
	assert.Equal(t, "success", entry["status"])
	assert.Equal(t, "Surrounding characters relationships created successfully", entry["message"])
	assert.EqualValues(t, 2, entry["records"])
	assert.EqualValues(t, 1, entry["skipped_pairs"])
	assert.NotContains(t, entry, "details")
}

func TestStageResult_JSONRoundTrip(t *testing.T) {
	in := Report{
		StageLocations:     success("ok").with("top_level", 3),
		StageMainCharacter: failure("Failed to create main character"),
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Report
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, StatusSuccess, out[StageLocations].Status)
	assert.Equal(t, "ok", out[StageLocations].Message)
	assert.EqualValues(t, 3, out[StageLocations].Details["top_level"])
	assert.Equal(t, StatusFailure, out[StageMainCharacter].Status)
	assert.Nil(t, out[StageMainCharacter].Details)
}

func TestStageResult_YAMLIsFlat(t *testing.T) {
	raw, err := yaml.Marshal(Report{StageLocations: success("ok").with("top_level", 3)})
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &decoded))
	assert.Equal(t, "success", decoded[StageLocations]["status"])
	assert.Equal(t, 3, decoded[StageLocations]["top_level"])
}

func TestReport_Failed(t *testing.T) {
	r := Report{
		StageSurroundingCharactersSkills: failure("x"),
		StageLocations:                   success("ok"),
		StageMainCharacter:               failure("y"),
	}
	assert.False(t, r.Succeeded())
	assert.Equal(t, []string{StageMainCharacter, StageSurroundingCharactersSkills}, r.Failed())
	assert.False(t, Report{}.Succeeded())
}
