package parser

import (
	"fmt"

	"github.com/drses/frozen-realms-shim/domain/ports"
	"gopkg.in/yaml.v3"
)

// YAMLDocumentParser implements DocumentParser for YAML.
type YAMLDocumentParser struct{}

// NewYAMLDocumentParser creates a new YAMLDocumentParser.
func NewYAMLDocumentParser() ports.DocumentParser {
	return &YAMLDocumentParser{}
}

// Parse unmarshals YAML bytes into a generic document.
func (p *YAMLDocumentParser) Parse(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// Format implements DocumentParser.
func (p *YAMLDocumentParser) Format() string {
	return "yaml"
}
