package parser

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/drses/frozen-realms-shim/domain/ports"
	"github.com/tidwall/jsonc"
)

// JSONCDocumentParser implements DocumentParser for JSON with comments and
// trailing commas. Plain JSON is accepted as well.
type JSONCDocumentParser struct{}

// NewJSONCDocumentParser creates a new JSONCDocumentParser.
func NewJSONCDocumentParser() ports.DocumentParser {
	return &JSONCDocumentParser{}
}

// Parse strips comments and decodes the document.
func (p *JSONCDocumentParser) Parse(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse jsonc document: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// Format implements DocumentParser.
func (p *JSONCDocumentParser) Format() string {
	return "jsonc"
}

// ForPath picks a parser from the file extension. Unknown extensions fall
// back to JSONC.
func ForPath(path string) ports.DocumentParser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLDocumentParser()
	default:
		return NewJSONCDocumentParser()
	}
}
