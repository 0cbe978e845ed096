// Package loader reads policy documents from bytes or files, checks their
// structure and builds the policy tree.
package loader

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/drses/frozen-realms-shim/application/schema"
	"github.com/drses/frozen-realms-shim/application/validation"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/policy"
	"github.com/drses/frozen-realms-shim/domain/ports"
	"github.com/drses/frozen-realms-shim/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	parser    ports.DocumentParser
	validator ports.DocumentValidator
	registry  ports.SchemaRegistry
	logger    *slog.Logger
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		logger: slog.Default(),
	}
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a fixed document parser. Without one, files are parsed
// by extension and byte input as JSONC.
func WithParser(p ports.DocumentParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithValidator replaces the structural validator.
func WithValidator(v ports.DocumentValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithRegistry takes the policy schema from a registry.
func WithRegistry(r ports.SchemaRegistry) LoaderOption {
	return func(c *loaderConfig) {
		c.registry = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(c *loaderConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Loader orchestrates the policy loading pipeline: parse, validate, build.
type Loader struct {
	config loaderConfig
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.validator == nil {
		var (
			v   *validation.SchemaValidator
			err error
		)
		if cfg.registry != nil {
			v, err = validation.FromRegistry(cfg.registry, schema.PolicySchemaName)
		} else {
			v, err = validation.NewPolicyValidator()
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build policy validator: %w", err)
		}
		cfg.validator = v
	}
	return &Loader{config: cfg}, nil
}

// LoadPolicy builds a policy tree from a document in memory.
func (l *Loader) LoadPolicy(data []byte) (*policy.Node, error) {
	p := l.config.parser
	if p == nil {
		p = parser.NewJSONCDocumentParser()
	}
	return l.load(p, data, "")
}

// LoadPolicyFile builds a policy tree from a file.
func (l *Loader) LoadPolicyFile(path string) (*policy.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	p := l.config.parser
	if p == nil {
		p = parser.ForPath(path)
	}
	return l.load(p, data, path)
}

func (l *Loader) load(p ports.DocumentParser, data []byte, source string) (*policy.Node, error) {
	doc, err := p.Parse(data)
	if err != nil {
		return nil, &domainerrors.PolicyError{Err: fmt.Errorf("failed to parse %s document: %w", p.Format(), err)}
	}
	if err := l.config.validator.Validate(doc); err != nil {
		return nil, &domainerrors.PolicyError{Err: err}
	}
	node, err := policy.Parse(doc)
	if err != nil {
		return nil, err
	}
	l.config.logger.Debug("policy loaded", "source", source, "format", p.Format(), "digest", policy.Digest(node))
	return node, nil
}
