package schema_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drses/frozen-realms-shim/application/schema"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
)

type limits struct {
	MaxExamples int `json:"max_examples"`
}

func TestRegistry_PolicySchemaIsBuiltIn(t *testing.T) {
	r := schema.NewRegistry()

	s, ok := r.GetSchema(schema.PolicySchemaName)
	require.True(t, ok)
	assert.Equal(t, schema.PolicySchema(), s)
}

func TestRegistry_Register(t *testing.T) {
	r := schema.NewRegistry()

	require.NoError(t, r.Register("limits", limits{}))
	s, ok := r.GetSchema("limits")
	require.True(t, ok)
	assert.Contains(t, s, "max_examples")
	assert.Equal(t, []string{"limits", schema.PolicySchemaName}, r.List())

	_, ok = r.GetSchema("missing")
	assert.False(t, ok)
}

func TestRegistry_StrictMode(t *testing.T) {
	r := schema.NewRegistry()
	require.NoError(t, r.Register("limits", limits{}))

	err := r.Register("limits", limits{})
	var schemaErr *domainerrors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "limits", schemaErr.Type)

	relaxed := schema.NewRegistry(schema.WithStrictMode(false))
	require.NoError(t, relaxed.RegisterRaw("x", `{"type":"object"}`))
	require.NoError(t, relaxed.RegisterRaw("x", `{"type":"string"}`))
	s, _ := relaxed.GetSchema("x")
	assert.Equal(t, `{"type":"string"}`, s)
}

func TestRegistry_RegisterRawRejectsInvalid(t *testing.T) {
	r := schema.NewRegistry()

	assert.Error(t, r.RegisterRaw("", `{}`))
	assert.Error(t, r.RegisterRaw("broken", `{"type":`))
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	r := schema.NewRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for j := 0; j < 8; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.RegisterRaw("shared", `{"type":"object"}`) == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}
