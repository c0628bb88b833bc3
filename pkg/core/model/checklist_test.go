package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecklistKeys_Versions(t *testing.T) {
	assert.Len(t, ChecklistKeys(ChecklistV1), 9)
	assert.Len(t, ChecklistKeys(ChecklistV2), 19)
	assert.Len(t, ChecklistKeys(ChecklistV3), 28)

	// Each version extends the previous one in order
	v1 := ChecklistKeys(ChecklistV1)
	v2 := ChecklistKeys(ChecklistV2)
	assert.Equal(t, v1, v2[:len(v1)])
	assert.Equal(t, "highVis", v1[0])
}

func TestNewChecklist(t *testing.T) {
	c, err := NewChecklist(map[string]bool{"helmet": true, "ladderCheck": true, "gloves": false})
	require.NoError(t, err)

	assert.True(t, c.Get("helmet"))
	assert.True(t, c.Get("ladderCheck"))
	assert.False(t, c.Get("gloves"))
	assert.False(t, c.Get("boots"), "missing keys default to false")
	assert.Equal(t, []string{"helmet", "ladderCheck"}, c.CheckedKeys())

	m := c.Map()
	assert.Len(t, m, 28)
	assert.True(t, m["helmet"])
}

func TestNewChecklist_UnknownKey(t *testing.T) {
	_, err := NewChecklist(map[string]bool{"helmet": true, "jetpack": true})
	require.Error(t, err)

	var unknown *UnknownChecklistKeyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "jetpack", unknown.Key)
}

func TestMigrateChecklist_FromOlderVersion(t *testing.T) {
	// A V1 record knows nothing about later keys
	c := MigrateChecklist(map[string]bool{"helmet": true, "harness": false})

	assert.True(t, c.Get("helmet"))
	assert.False(t, c.Get("weatherCheck"))
	assert.Len(t, c.Map(), 28)
}

func TestMigrateChecklist_KeepsUnknownKeysAside(t *testing.T) {
	c := MigrateChecklist(map[string]bool{"helmet": true, "legacyFlag": true, "otherFlag": false})

	assert.True(t, c.Get("legacyFlag"))
	assert.Equal(t, []string{"helmet", "legacyFlag"}, c.CheckedKeys())
	assert.NotContains(t, c.Map(), "legacyFlag", "unknown keys are never written back")

	err := c.Set("legacyFlag", false)
	assert.Error(t, err)
}

func TestMigrateChecklist_Nil(t *testing.T) {
	c := MigrateChecklist(nil)
	assert.Empty(t, c.CheckedKeys())
}

func TestChecklistLabelAndSection(t *testing.T) {
	assert.Equal(t, "Helmet", ChecklistLabel("helmet"))
	assert.Equal(t, "PPE", ChecklistSection("helmet"))
	assert.Equal(t, "Equipment", ChecklistSection("ladderCheck"))
	assert.Equal(t, "mystery", ChecklistLabel("mystery"))
	assert.Equal(t, "", ChecklistSection("mystery"))
}

func TestSafetyChecklist_JSON(t *testing.T) {
	c, err := NewChecklist(map[string]bool{"mask": true})
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded SafetyChecklist
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, c.CheckedKeys(), decoded.CheckedKeys())

	assert.Error(t, json.Unmarshal([]byte(`["mask"]`), &decoded))
}
