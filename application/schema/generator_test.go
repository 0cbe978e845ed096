package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hardeningConfig struct {
	MaxSeverity     string   `json:"max_severity,omitempty"`
	MaxExamples     int      `json:"max_examples"`
	KnownExtensions []string `json:"known_extensions,omitempty"`
	Repairs         repairs  `json:"repairs"`
}

type repairs struct {
	Disabled []string `json:"disabled"`
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded
}

func TestGenerateSchema_Properties(t *testing.T) {
	out, err := GenerateSchema(hardeningConfig{})
	require.NoError(t, err)

	decoded := decode(t, out)
	properties, ok := decoded["properties"].(map[string]interface{})
	require.True(t, ok, "properties should be a map")
	assert.Len(t, properties, 4)
	assert.Contains(t, properties, "max_severity")
	assert.Contains(t, properties, "known_extensions")

	required, ok := decoded["required"].([]interface{})
	require.True(t, ok, "required should be an array")
	assert.Contains(t, required, "max_examples")
	assert.NotContains(t, required, "max_severity", "omitempty fields are optional")
}

func TestGenerateSchema_RejectsUnknownProperties(t *testing.T) {
	out, err := GenerateSchema(hardeningConfig{})
	require.NoError(t, err)

	assert.Equal(t, false, decode(t, out)["additionalProperties"])
}

func TestGenerateSchema_EmptyStruct(t *testing.T) {
	type empty struct{}

	out, err := GenerateSchema(empty{})
	require.NoError(t, err)
	assert.NotEmpty(t, decode(t, out))
}

func TestPolicySchema_IsValidJSON(t *testing.T) {
	decoded := decode(t, []byte(PolicySchema()))
	assert.Equal(t, "#/$defs/record", decoded["$ref"])
}
