package config

// Environment variable names
const (
	// EnvConfigFile names the environment variable pointing at the config file
	EnvConfigFile = "JUDGEQUIZ_CONFIG_FILE"
	// EnvPrefix prefixes every generated override variable (JUDGEQUIZ_STORAGE_DIR, ...)
	EnvPrefix = "JUDGEQUIZ"
)

// Storage constants
const (
	// DefaultStorageDirName is the per-user directory holding persisted records
	DefaultStorageDirName = ".judgequiz"
	// DefaultRetentionCap is the number of sessions kept when pruning history
	DefaultRetentionCap = 100
)

// Quiz constants
const (
	// DefaultQuestionCount is the session length when none is requested
	DefaultQuestionCount = 10
)

// Observability constants
const (
	// DefaultServiceName identifies this binary in telemetry
	DefaultServiceName = "judgequiz"
)
