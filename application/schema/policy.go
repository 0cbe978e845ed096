package schema

import _ "embed"

// PolicySchemaName is the registry name of the policy document schema.
const PolicySchemaName = "policy"

//go:embed policy.schema.json
var policySchema string

// PolicySchema returns the JSON Schema every policy document must satisfy
// before it is interpreted. Policy trees are recursive, so the schema is
// written by hand rather than reflected.
func PolicySchema() string {
	return policySchema
}
