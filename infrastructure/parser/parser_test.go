package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/infrastructure/parser"
)

func TestDocumentParsers_AgreeOnPolicyShape(t *testing.T) {
	yamlDoc := []byte(`
Object:
  prototype:
    toString: "*"
  freeze: true
process: false
`)
	jsoncDoc := []byte(`{
  // the only permitted globals
  "Object": {
    "prototype": { "toString": "*" },
    "freeze": true,
  },
  "process": false, /* host extension */
}`)

	fromYAML, err := parser.NewYAMLDocumentParser().Parse(yamlDoc)
	require.NoError(t, err)
	fromJSONC, err := parser.NewJSONCDocumentParser().Parse(jsoncDoc)
	require.NoError(t, err)

	assert.Equal(t, fromJSONC, fromYAML)
	assert.Equal(t, false, fromYAML["process"])
}

func TestDocumentParsers_Errors(t *testing.T) {
	_, err := parser.NewYAMLDocumentParser().Parse([]byte("a: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse yaml document")

	_, err = parser.NewJSONCDocumentParser().Parse([]byte(`{"a": }`))
	assert.ErrorContains(t, err, "failed to parse jsonc document")

	_, err = parser.NewJSONCDocumentParser().Parse([]byte(`[1, 2]`))
	assert.Error(t, err)
}

func TestDocumentParsers_Empty(t *testing.T) {
	doc, err := parser.NewYAMLDocumentParser().Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestForPath(t *testing.T) {
	tests := map[string]string{
		"policy.yaml":  "yaml",
		"policy.YML":   "yaml",
		"policy.jsonc": "jsonc",
		"policy.json":  "jsonc",
		"policy":       "jsonc",
	}
	for path, format := range tests {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, format, parser.ForPath(path).Format())
		})
	}
}
