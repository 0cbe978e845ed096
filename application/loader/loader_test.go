package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/drses/frozen-realms-shim/application/loader"
	"github.com/drses/frozen-realms-shim/application/schema"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/primordials"
)

// LoaderIntegrationSuite tests the Loader with the real parsers and schema.
type LoaderIntegrationSuite struct {
	suite.Suite
	dir    string
	loader *loader.Loader
}

func (s *LoaderIntegrationSuite) SetupTest() {
	s.dir = s.T().TempDir()
	l, err := loader.NewLoader(loader.WithRegistry(schema.NewRegistry()))
	s.Require().NoError(err)
	s.loader = l
}

func (s *LoaderIntegrationSuite) write(name, content string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (s *LoaderIntegrationSuite) TestYAMLFile() {
	path := s.write("policy.yaml", `
Object:
  prototype: "*"
  keys: true
process: false
Reflect:
  get: maybeAccessor
`)
	node, err := s.loader.LoadPolicyFile(path)
	s.Require().NoError(err)

	obj, ok := node.Lookup("Object")
	s.Require().True(ok)
	s.Equal(policy.KindNested, obj.Kind)
	proto, _ := obj.Node.Lookup("prototype")
	s.Equal(policy.KindInheritPermit, proto.Kind)

	process, _ := node.Lookup("process")
	s.Equal(policy.KindDeny, process.Kind)
}

func (s *LoaderIntegrationSuite) TestJSONCFile() {
	path := s.write("policy.jsonc", `{
  // comments and trailing commas are fine
  "Math": { "abs": true, "random": false, },
}`)
	node, err := s.loader.LoadPolicyFile(path)
	s.Require().NoError(err)

	math, ok := node.Lookup("Math")
	s.Require().True(ok)
	s.Equal([]string{"abs", "random"}, math.Node.Names())
}

func (s *LoaderIntegrationSuite) TestBundledPolicyMatchesDefault() {
	node, err := s.loader.LoadPolicy(primordials.DefaultPolicyDocument())
	s.Require().NoError(err)

	def, err := primordials.DefaultPolicy()
	s.Require().NoError(err)
	s.Equal(policy.Digest(def), policy.Digest(node))
}

func (s *LoaderIntegrationSuite) TestRejectsStructuralErrors() {
	tests := map[string]string{
		"policy-number.yaml":  "Math:\n  abs: 1\n",
		"policy-token.yaml":   "Math: sometimes\n",
		"policy-inherit.json": `{"Object": {"*": true}}`,
	}
	for name, content := range tests {
		s.Run(name, func() {
			_, err := s.loader.LoadPolicyFile(s.write(name, content))
			var policyErr *domainerrors.PolicyError
			s.Require().True(errors.As(err, &policyErr), "got %v", err)
			var schemaErr *domainerrors.SchemaError
			s.True(errors.As(err, &schemaErr))
		})
	}
}

func (s *LoaderIntegrationSuite) TestRejectsUnparsableDocument() {
	_, err := s.loader.LoadPolicyFile(s.write("broken.yaml", "a: [unterminated"))
	var policyErr *domainerrors.PolicyError
	s.True(errors.As(err, &policyErr))
}

func (s *LoaderIntegrationSuite) TestMissingFile() {
	_, err := s.loader.LoadPolicyFile(filepath.Join(s.dir, "absent.yaml"))
	s.ErrorIs(err, os.ErrNotExist)
}

func TestLoaderIntegrationSuite(t *testing.T) {
	suite.Run(t, new(LoaderIntegrationSuite))
}

type mockValidator struct {
	mock.Mock
}

func (m *mockValidator) Validate(doc map[string]any) error {
	args := m.Called(doc)
	return args.Error(0)
}

func TestLoader_UsesInjectedValidator(t *testing.T) {
	v := new(mockValidator)
	v.On("Validate", map[string]any{"a": true}).Return(nil).Once()
	v.On("Validate", map[string]any{"b": true}).Return(errors.New("refused")).Once()

	l, err := loader.NewLoader(loader.WithValidator(v))
	require.NoError(t, err)

	_, err = l.LoadPolicy([]byte(`{"a": true}`))
	assert.NoError(t, err)
	_, err = l.LoadPolicy([]byte(`{"b": true}`))
	assert.ErrorContains(t, err, "refused")
	v.AssertExpectations(t)
}

func TestNewLoader_RegistryWithoutPolicySchema(t *testing.T) {
	empty := &emptyRegistry{}
	_, err := loader.NewLoader(loader.WithRegistry(empty))
	assert.Error(t, err)
}

type emptyRegistry struct{}

func (emptyRegistry) Register(string, interface{}) error { return nil }
func (emptyRegistry) GetSchema(string) (string, bool)    { return "", false }
func (emptyRegistry) List() []string                     { return nil }
