package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRouting()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRouting() {
	c.Routing.Mode = strings.ToUpper(strings.TrimSpace(c.Routing.Mode))
	if c.Routing.Mode == "" {
		c.Routing.Mode = defaultRoutingMode
	}
	if c.Routing.ConfidenceThreshold == 0 {
		c.Routing.ConfidenceThreshold = defaultConfidenceThreshold
	}
	c.Routing.ReviewFolder = strings.Trim(strings.TrimSpace(c.Routing.ReviewFolder), "/")
	if c.Routing.ReviewFolder == "" {
		c.Routing.ReviewFolder = defaultReviewFolder
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.WorkerCount <= 0 {
		c.Workflow.WorkerCount = defaultWorkerCount
	}
	if c.Workflow.ExtractTimeoutSeconds <= 0 {
		c.Workflow.ExtractTimeoutSeconds = defaultExtractTimeoutSeconds
	}
	if c.Workflow.ExtractMaxAttempts <= 0 {
		c.Workflow.ExtractMaxAttempts = defaultExtractMaxAttempts
	}
	if c.Workflow.ExtractRetryBackoffMS <= 0 {
		c.Workflow.ExtractRetryBackoffMS = defaultExtractRetryBackoffMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
