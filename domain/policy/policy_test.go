package policy_test

import (
	"bytes"
	"errors"
	"testing"

	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/entities"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Entries(t *testing.T) {
	doc := map[string]any{
		"x":      false,
		"y":      "*",
		"keys":   true,
		"caller": "maybeAccessor",
		"Math": map[string]any{
			"PI":     true,
			"random": false,
		},
	}

	root, err := policy.Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "caller", "keys", "x", "y"}, root.Names())

	tests := []struct {
		name string
		kind policy.Kind
	}{
		{"x", policy.KindDeny},
		{"y", policy.KindInheritPermit},
		{"keys", policy.KindPermit},
		{"caller", policy.KindPermitAccessorAware},
		{"Math", policy.KindNested},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := root.Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.kind, e.Kind)
		})
	}

	math, _ := root.Lookup("Math")
	require.NotNil(t, math.Node)
	random, ok := math.Node.Lookup("random")
	require.True(t, ok)
	assert.False(t, random.Permits())

	_, ok = root.Lookup("absent")
	assert.False(t, ok)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  any
		path string
	}{
		{"non-record root", []any{true}, ""},
		{"unknown token", map[string]any{"a": "sometimes"}, "a"},
		{"number entry", map[string]any{"a": map[string]any{"b": 3.0}}, "a.b"},
		{"inherit and nested", map[string]any{"Array": map[string]any{"*": true, "push": true}}, "Array"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policy.Parse(tt.doc)
			require.Error(t, err)
			var pe *domainerrors.PolicyError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.path, pe.Path)
		})
	}
}

func TestNode_Builder(t *testing.T) {
	root := policy.NewNode().
		Set("x", policy.Deny).
		Set("proto", policy.Nested(policy.NewNode().Set("y", policy.InheritPermit)))

	assert.Equal(t, 2, root.Len())
	assert.Equal(t, map[string]any{
		"x":     false,
		"proto": map[string]any{"y": "*"},
	}, root.Canonical())

	var nilNode *policy.Node
	assert.Equal(t, 0, nilNode.Len())
	_, ok := nilNode.Lookup("x")
	assert.False(t, ok)
}

func TestDigest(t *testing.T) {
	a, err := policy.Parse(map[string]any{"a": true, "b": map[string]any{"c": "*"}})
	require.NoError(t, err)
	b := policy.NewNode().
		Set("b", policy.Nested(policy.NewNode().Set("c", policy.InheritPermit))).
		Set("a", policy.Permit)
	c := policy.NewNode().Set("a", policy.Deny)

	assert.Len(t, policy.Digest(a), 64)
	assert.Equal(t, policy.Digest(a), policy.Digest(b))
	assert.NotEqual(t, policy.Digest(a), policy.Digest(c))
}

func TestGlobSet(t *testing.T) {
	g, err := policy.NewGlobSet("process.**", "Object.prototype.__*", "Math.random")
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())

	tests := []struct {
		path string
		want bool
	}{
		{"process.pid", true},
		{"process.env.HOME", true},
		{"Object.prototype.__defineGetter__", true},
		{"Object.prototype.toString", false},
		{"Math.random", true},
		{"Math.round", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Match(tt.path))
		})
	}

	var none *policy.GlobSet
	assert.False(t, none.Match("anything"))

	_, err = policy.NewGlobSet("[unclosed")
	assert.Error(t, err)
	assert.False(t, policy.ValidPattern("[unclosed"))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "a", policy.JoinPath("", "a"))
	assert.Equal(t, "a.b", policy.JoinPath("a", "b"))
	assert.Equal(t, []string{"a", "b"}, policy.SplitPath("a.b"))
	assert.Nil(t, policy.SplitPath(""))
}

func TestDispositionHandlers(t *testing.T) {
	var buf bytes.Buffer
	h := &policy.WriterDispositionHandler{W: &buf}

	h.OnDisposition(entities.Violation{Path: "Object.keys", Disposition: entities.DispositionKept})
	assert.Empty(t, buf.String())

	h.OnDisposition(entities.Violation{
		Path:        "Math.random",
		Disposition: entities.DispositionDeleted,
		Severity:    entities.SeverityNewSymptom,
		Reason:      "not listed",
	})
	assert.Equal(t, "Deleted [New symptom]: Math.random (Reason: not listed)\n", buf.String())

	(&policy.NopDispositionHandler{}).OnDisposition(entities.Violation{})
}
