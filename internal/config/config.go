// Package config handles application configuration loading from a YAML file
// with environment variable overrides.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"

	contextutils "judgequiz/internal/utils"

	"gopkg.in/yaml.v3"
)

// StorageConfig represents persistent storage configuration
type StorageConfig struct {
	// Dir is the directory holding the persisted JSON records. Defaults to
	// ~/.judgequiz when empty.
	Dir string `json:"dir" yaml:"dir"`
	// QuotaBytes caps the serialized size of the progress record, emulating
	// a browser storage quota. 0 disables the cap.
	QuotaBytes int64 `json:"quota_bytes" yaml:"quota_bytes" validate:"gte=0"`
	// RetentionCap is the number of most recent sessions kept when pruning
	// after a quota failure.
	RetentionCap int `json:"retention_cap" yaml:"retention_cap" validate:"gt=0"`
}

// QuizConfig represents quiz session defaults
type QuizConfig struct {
	DefaultQuestionCount int  `json:"default_question_count" yaml:"default_question_count" validate:"gt=0"`
	ShuffleByDefault     bool `json:"shuffle_by_default" yaml:"shuffle_by_default"`
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "judgequiz"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"` // Default: 1.0 (100%)
}

// Config holds all configuration for the application
type Config struct {
	Storage StorageConfig `json:"storage" yaml:"storage"`
	Quiz    QuizConfig    `json:"quiz" yaml:"quiz"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	LogLevel string `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// NewConfig loads the config file, applies environment overrides, fills
// defaults, and validates the result.
func NewConfig() (result0 *Config, err error) {
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()
	config.applyDefaults()

	if err := contextutils.ValidateStruct(config); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a config with all defaults applied and no file read.
// Used by tests and as the fallback when no config file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Storage.Dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Storage.Dir = home + string(os.PathSeparator) + DefaultStorageDirName
		} else {
			c.Storage.Dir = DefaultStorageDirName
		}
	}
	if c.Storage.RetentionCap == 0 {
		c.Storage.RetentionCap = DefaultRetentionCap
	}
	if c.Quiz.DefaultQuestionCount == 0 {
		c.Quiz.DefaultQuestionCount = DefaultQuestionCount
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.OpenTelemetry.ServiceName == "" {
		c.OpenTelemetry.ServiceName = DefaultServiceName
	}
	if c.OpenTelemetry.Protocol == "" {
		c.OpenTelemetry.Protocol = "grpc"
	}
	if c.OpenTelemetry.SamplingRate == 0 {
		c.OpenTelemetry.SamplingRate = 1.0
	}
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnvWithPrefix(c, EnvPrefix)
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		yamlTag = strings.Split(yamlTag, ",")[0]

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if parsed, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(parsed)
				}
			}
		case reflect.Int, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if parsed, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(parsed)
				}
			}
		case reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if parsed, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(parsed)
				}
			}
		case reflect.Struct:
			overrideStructFromEnvWithPrefix(field.Addr().Interface(), envKey)
		}
	}
}

// loadConfigWithOverrides loads the config file named by JUDGEQUIZ_CONFIG_FILE,
// falling back to config.yaml, falling back to built-in defaults.
func loadConfigWithOverrides() (result0 *Config, err error) {
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	config, err := loadConfigFromFile("config.yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	return config, nil
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := &Config{}
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to parse config file %s: %w", path, err)
	}

	return config, nil
}
