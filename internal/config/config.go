package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. VIOLETEAR_SERVER_URL
const EnvPrefix = "VIOLETEAR"

// EnvConfigFile names an explicit configuration file, bypassing the search paths
const EnvConfigFile = "VIOLETEAR_CONFIG"

// Storage backends
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config is the configuration of the client and the development server
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Poll      PollConfig      `mapstructure:"poll"`
	Logout    LogoutConfig    `mapstructure:"logout"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	DevServer DevServerConfig `mapstructure:"devserver"`
}

// ServerConfig locates the static origin that serves /config.json
type ServerConfig struct {
	URL string `mapstructure:"url"`
}

// HTTPConfig tunes the API client
type HTTPConfig struct {
	Timeout               time.Duration `mapstructure:"timeout"`
	MaxRetries            int           `mapstructure:"max_retries"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	RateLimit             float64       `mapstructure:"rate_limit"`
	RateBurst             int           `mapstructure:"rate_burst"`
	UserAgent             string        `mapstructure:"user_agent"`
	TLSInsecureSkipVerify bool          `mapstructure:"tls_insecure_skip_verify"`
}

// StorageConfig selects where the session is persisted
type StorageConfig struct {
	// Type is one of file, sqlite or memory
	Type string `mapstructure:"type"`
	// Path is the session file or sqlite database. Empty selects a per-type default.
	Path string `mapstructure:"path"`
	// Key is the storage key holding the serialized session
	Key string `mapstructure:"key"`
}

// ResolvedPath returns Path or the default for Type
func (s StorageConfig) ResolvedPath() string {
	if s.Path != "" {
		return s.Path
	}
	if s.Type == StorageSQLite {
		return "violetear.db"
	}
	return "violetear-session.json"
}

// PollConfig controls task polling
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LogoutConfig controls the logout failure policy
type LogoutConfig struct {
	// ForceClearAfter clears the local session after this many consecutive
	// failed logouts. Zero keeps the session forever.
	ForceClearAfter int `mapstructure:"force_clear_after"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DevServerConfig configures the development backend
type DevServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	PublicURL    string        `mapstructure:"public_url"`
	Mode         string        `mapstructure:"mode"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	ProfilesFile string        `mapstructure:"profiles_file"`
	TaskStep     time.Duration `mapstructure:"task_step"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationResult represents the result of configuration validation
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// configManager manages application configuration
type configManager struct {
	config *Config
	mu     sync.RWMutex
	log    *logrus.Logger
}

// Global configuration manager
var (
	manager *configManager
	once    sync.Once
)

// GetConfigManager returns the singleton config manager instance
func GetConfigManager() *configManager {
	once.Do(func() {
		manager = &configManager{
			log: logrus.New(),
		}
	})
	return manager
}

// LoadConfig loads the configuration from defaults, the config file and environment variables
func LoadConfig() (*Config, error) {
	return GetConfigManager().Load()
}

// Load loads the configuration from defaults, the config file and environment variables
func (cm *configManager) Load() (*Config, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var config Config

	// Set default values
	setDefaults()

	// Load configuration from file
	if err := loadConfigFile(); err != nil {
		cm.log.WithError(err).Warning("Failed to load config file, using environment variables only")
	}

	// Load environment variables
	loadEnvVars()

	// Unmarshal configuration
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cm.config = &config

	return &config, nil
}

// GetConfig returns the last loaded configuration
func (cm *configManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// SafeString masks a sensitive value
func SafeString(val string) string {
	if val == "" {
		return ""
	}
	return "********"
}

// MaskSensitiveFields returns a copy of the config with sensitive fields masked
func (c *Config) MaskSensitiveFields() Config {
	maskedConfig := *c
	maskedConfig.DevServer.JWTSecret = SafeString(maskedConfig.DevServer.JWTSecret)
	return maskedConfig
}

// Fields flattens the masked config into logrus fields keyed by mapstructure path
func (c *Config) Fields() logrus.Fields {
	fields := logrus.Fields{}
	flatten(reflect.ValueOf(c.MaskSensitiveFields()), "", fields)
	return fields
}

// String returns a string representation of the config with sensitive information masked
func (c *Config) String() string {
	fields := c.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %s: %v\n", k, fields[k]))
	}
	return sb.String()
}

func flatten(val reflect.Value, prefix string, out logrus.Fields) {
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		name := typ.Field(i).Tag.Get("mapstructure")
		if name == "" {
			name = strings.ToLower(typ.Field(i).Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		field := val.Field(i)
		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Time{}) {
			flatten(field, name, out)
			continue
		}
		out[name] = field.Interface()
	}
}

// setDefaults sets default values. Every key needs a default so that
// AutomaticEnv can bind it during Unmarshal.
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.url", "http://localhost:8080")

	// HTTP client defaults
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.max_retries", 0)
	viper.SetDefault("http.retry_delay", "1s")
	viper.SetDefault("http.rate_limit", 0)
	viper.SetDefault("http.rate_burst", 1)
	viper.SetDefault("http.user_agent", "VioletearClient/1.0")
	viper.SetDefault("http.tls_insecure_skip_verify", false)

	// Storage defaults
	viper.SetDefault("storage.type", StorageFile)
	viper.SetDefault("storage.path", "")
	viper.SetDefault("storage.key", "violetear.web-client.database")

	// Orchestration defaults
	viper.SetDefault("poll.interval", "1s")
	viper.SetDefault("logout.force_clear_after", 0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "")

	// Development server defaults
	viper.SetDefault("devserver.listen", ":8080")
	viper.SetDefault("devserver.public_url", "")
	viper.SetDefault("devserver.mode", "release")
	viper.SetDefault("devserver.jwt_secret", "")
	viper.SetDefault("devserver.token_ttl", "24h")
	viper.SetDefault("devserver.profiles_file", "")
	viper.SetDefault("devserver.task_step", "2s")
}

// loadConfigFile loads configuration from a file
func loadConfigFile() error {
	if explicit := os.Getenv(EnvConfigFile); explicit != "" {
		viper.SetConfigFile(explicit)
		return viper.ReadInConfig()
	}

	// Set configuration file name and path
	viper.SetConfigName("violetear")
	viper.SetConfigType("yaml")

	// Add search paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".violetear"))
	}

	// Read configuration file (if it exists)
	if err := viper.ReadInConfig(); err != nil {
		// It's ok if config file is not found
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return nil
}

// loadEnvVars binds environment variables
func loadEnvVars() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
}

// Validate checks config and reports every problem found
func Validate(config *Config) ValidationResult {
	result := ValidationResult{
		Errors: []ValidationError{},
	}

	// Server
	if u, err := url.Parse(config.Server.URL); err != nil || u.Scheme == "" || u.Host == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("server URL must be absolute: %q", config.Server.URL),
		})
	}

	// HTTP client
	if config.HTTP.Timeout <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "http.timeout",
			Message: "timeout must be positive",
		})
	}
	if config.HTTP.MaxRetries < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "http.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if config.HTTP.RateLimit < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "http.rate_limit",
			Message: "rate limit must be non-negative",
		})
	}
	if config.HTTP.RateLimit > 0 && config.HTTP.RateBurst < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "http.rate_burst",
			Message: "rate burst must be at least 1 when a rate limit is set",
		})
	}

	// Storage
	switch config.Storage.Type {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "storage.type",
			Message: fmt.Sprintf("unsupported storage type: %s", config.Storage.Type),
		})
	}
	if config.Storage.Key == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "storage.key",
			Message: "storage key cannot be empty",
		})
	}

	// Orchestration
	if config.Poll.Interval < 100*time.Millisecond {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "poll.interval",
			Message: fmt.Sprintf("poll interval too short: %s", config.Poll.Interval),
		})
	}
	if config.Logout.ForceClearAfter < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "logout.force_clear_after",
			Message: "must be zero (disabled) or positive",
		})
	}

	// Logging
	if _, err := logrus.ParseLevel(config.Logging.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s", config.Logging.Level),
		})
	}
	if config.Logging.Format != "text" && config.Logging.Format != "json" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unsupported log format: %s", config.Logging.Format),
		})
	}

	// Development server
	if config.DevServer.TokenTTL <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "devserver.token_ttl",
			Message: "token TTL must be positive",
		})
	}
	if config.DevServer.TaskStep <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "devserver.task_step",
			Message: "task step must be positive",
		})
	}
	switch config.DevServer.Mode {
	case "debug", "release", "test":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "devserver.mode",
			Message: fmt.Sprintf("unsupported mode: %s", config.DevServer.Mode),
		})
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	result := Validate(config)
	if result.Valid {
		return nil
	}

	var errMsgs []string
	for _, err := range result.Errors {
		errMsgs = append(errMsgs, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return fmt.Errorf("configuration validation failed: %s", strings.Join(errMsgs, "; "))
}
