package ses

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/drses/frozen-realms-shim/application/schema"
	domainerrors "github.com/drses/frozen-realms-shim/domain/errors"
	"github.com/drses/frozen-realms-shim/domain/entities"
)

// Config is the file form of the baseline options.
type Config struct {
	MaxSeverity      string   `yaml:"max_severity" json:"max_severity,omitempty" validate:"omitempty,severity"`
	PolicyPath       string   `yaml:"policy_path" json:"policy_path,omitempty"`
	UnlistedSeverity string   `yaml:"unlisted_severity" json:"unlisted_severity,omitempty" validate:"omitempty,severity"`
	KnownExtensions  []string `yaml:"known_extensions" json:"known_extensions,omitempty" validate:"dive,required,glob"`
	DisabledRepairs  []string `yaml:"disabled_repairs" json:"disabled_repairs,omitempty" validate:"dive,required,glob"`
	MaxExamples      int      `yaml:"max_examples" json:"max_examples,omitempty" validate:"gte=0,lte=1000"`
}

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
		_, err := entities.ParseSeverity(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
		return doublestar.ValidatePattern(fl.Field().String())
	})
	return v
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML configuration document. Unknown
// keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &domainerrors.ConfigError{Err: err}
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks cfg against its validation tags. The first failing
// field is reported by its YAML name.
func ValidateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &domainerrors.ConfigError{
			Field: fe.Field(),
			Err:   fmt.Errorf("value %v failed %q validation", fe.Value(), fe.Tag()),
		}
	}
	return &domainerrors.ConfigError{Err: err}
}

// Options converts the configuration into baseline options.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.MaxSeverity != "" {
		s, err := entities.ParseSeverity(c.MaxSeverity)
		if err != nil {
			return nil, &domainerrors.ConfigError{Field: "max_severity", Err: err}
		}
		opts = append(opts, WithThreshold(s))
	}
	if c.UnlistedSeverity != "" {
		s, err := entities.ParseSeverity(c.UnlistedSeverity)
		if err != nil {
			return nil, &domainerrors.ConfigError{Field: "unlisted_severity", Err: err}
		}
		opts = append(opts, WithUnlistedSeverity(s))
	}
	if c.PolicyPath != "" {
		opts = append(opts, WithPolicyFile(c.PolicyPath))
	}
	if c.MaxExamples > 0 {
		opts = append(opts, WithMaxExamples(c.MaxExamples))
	}
	if len(c.KnownExtensions) > 0 {
		opts = append(opts, WithKnownExtensions(c.KnownExtensions...))
	}
	if len(c.DisabledRepairs) > 0 {
		opts = append(opts, WithDisabledRepairs(c.DisabledRepairs...))
	}
	return opts, nil
}

// ConfigSchema returns the JSON Schema of the configuration file.
func ConfigSchema() ([]byte, error) {
	out, err := schema.GenerateSchema(&Config{})
	if err != nil {
		return nil, &domainerrors.SchemaError{Type: "config", Err: err}
	}
	return out, nil
}
