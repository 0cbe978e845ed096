package host

import (
	"log/slog"

	wazeroadapter "github.com/drses/frozen-realms-shim/infrastructure/wazero"
)

type executorConfig struct {
	logger           *slog.Logger
	entrypoint       string
	moduleName       string
	memoryLimitPages uint32
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		logger:     slog.Default(),
		entrypoint: "run",
		moduleName: wazeroadapter.DefaultModuleName,
	}
}

// Option defines a functional option for configuring the Executor.
type Option func(*executorConfig)

// WithLogger sets the logger used for module runs and import failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *executorConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEntrypoint names the export Run calls (default "run").
func WithEntrypoint(name string) Option {
	return func(c *executorConfig) {
		c.entrypoint = name
	}
}

// WithMemoryLimitPages caps guest memory in 64 KiB pages. Zero keeps the
// runtime default.
func WithMemoryLimitPages(pages uint32) Option {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}
