package config

const (
	defaultInboxDir              = "~/docket/inbox"
	defaultLibraryDir            = "~/docket/library"
	defaultDataDir               = "~/.local/share/docket"
	defaultLogDir                = "~/.local/share/docket/logs"
	defaultRoutingMode           = "LEGAL"
	defaultConfidenceThreshold   = 0.6
	defaultReviewFolder          = "Review"
	defaultWorkerCount           = 4
	defaultExtractTimeoutSeconds = 30
	defaultExtractMaxAttempts    = 3
	defaultExtractRetryBackoffMS = 500
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InboxDir:   defaultInboxDir,
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Routing: Routing{
			Mode:                defaultRoutingMode,
			ConfidenceThreshold: defaultConfidenceThreshold,
			ReviewFolder:        defaultReviewFolder,
		},
		Workflow: Workflow{
			WorkerCount:           defaultWorkerCount,
			ExtractTimeoutSeconds: defaultExtractTimeoutSeconds,
			ExtractMaxAttempts:    defaultExtractMaxAttempts,
			ExtractRetryBackoffMS: defaultExtractRetryBackoffMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
