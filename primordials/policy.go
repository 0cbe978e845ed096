package primordials

import (
	_ "embed"
	"fmt"

	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/infrastructure/parser"
)

//go:embed policy.jsonc
var defaultPolicyDocument []byte

// DefaultPolicyDocument returns the bundled JSONC policy document.
func DefaultPolicyDocument() []byte {
	out := make([]byte, len(defaultPolicyDocument))
	copy(out, defaultPolicyDocument)
	return out
}

// DefaultPolicy parses the bundled policy. It matches exactly what NewHost
// builds without options.
func DefaultPolicy() (*policy.Node, error) {
	doc, err := parser.NewJSONCDocumentParser().Parse(defaultPolicyDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to read default policy: %w", err)
	}
	return policy.Parse(doc)
}
