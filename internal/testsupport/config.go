package testsupport

import (
	"path/filepath"
	"testing"

	"docket/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWorkerCount overrides the classification worker count.
func WithWorkerCount(count int) ConfigOption {
	return func(c *config.Config) {
		c.Workflow.WorkerCount = count
	}
}

// WithConfidenceThreshold overrides the routing confidence gate.
func WithConfidenceThreshold(threshold float64) ConfigOption {
	return func(c *config.Config) {
		c.Routing.ConfidenceThreshold = threshold
	}
}
