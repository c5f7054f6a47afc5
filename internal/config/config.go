package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine drivers.
const (
	DriverElasticsearch = "elasticsearch"
	DriverOpenSearch    = "opensearch"
)

// Config holds the esbridge configuration.
type Config struct {
	HTTP         HTTPConfig    `yaml:"http"`
	Engine       EngineConfig  `yaml:"engine"`
	Breaker      BreakerConfig `yaml:"breaker"`
	Models       []ModelConfig `yaml:"models"`
	MappingsFile string        `yaml:"mappings_file"`
	Auth         AuthConfig    `yaml:"auth"`
	Lock         LockConfig    `yaml:"lock"`
	Logging      LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig holds search engine connection and query defaults.
type EngineConfig struct {
	Driver         string        `yaml:"driver"` // elasticsearch, opensearch (default: elasticsearch)
	Hosts          []string      `yaml:"hosts"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SSL            SSLConfig     `yaml:"ssl"`
	Index          string        `yaml:"index"`
	Type           string        `yaml:"type"`
	DefaultSize    int           `yaml:"default_size"`
	SortIDField    string        `yaml:"sort_id_field"`
	Refresh        string        `yaml:"refresh"` // "", true, false, wait_for
}

// SSLConfig holds TLS settings for the engine connection.
type SSLConfig struct {
	CAFile string `yaml:"ca_file"`
	// RejectUnauthorized defaults to true; set false to skip certificate checks.
	RejectUnauthorized *bool `yaml:"reject_unauthorized"`
}

// BreakerConfig holds engine circuit breaker settings.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

// ModelConfig declares one modeled entity.
type ModelConfig struct {
	Name   string `yaml:"name"`
	IDName string `yaml:"id_name"`
	// IDGenerated defaults to true: the engine assigns ids.
	IDGenerated *bool             `yaml:"id_generated"`
	Index       string            `yaml:"index"`
	Type        string            `yaml:"type"`
	Properties  map[string]string `yaml:"properties"` // property name -> kind
}

// LockConfig holds the Redis migration lock settings. Empty addrs disables the lock.
type LockConfig struct {
	Addrs    []string      `yaml:"addrs"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
	Wait     time.Duration `yaml:"wait"`
}

// Enabled reports whether migrations are serialized through Redis.
func (l LockConfig) Enabled() bool { return len(l.Addrs) > 0 }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from ESBRIDGE_ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ESBRIDGE_ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.Driver == "" {
		c.Engine.Driver = DriverElasticsearch
	}
	if len(c.Engine.Hosts) == 0 {
		c.Engine.Hosts = []string{"http://127.0.0.1:9200"}
	}
	if c.Engine.RequestTimeout <= 0 {
		c.Engine.RequestTimeout = time.Second
	}
	if c.Engine.DefaultSize <= 0 {
		c.Engine.DefaultSize = 10
	}
	if c.Engine.SortIDField == "" {
		c.Engine.SortIDField = "_doc"
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.Timeout <= 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Lock.TTL <= 0 {
		c.Lock.TTL = 5 * time.Minute
	}
	for i := range c.Models {
		if c.Models[i].IDName == "" {
			c.Models[i].IDName = "id"
		}
		if c.Models[i].IDGenerated == nil {
			generated := true
			c.Models[i].IDGenerated = &generated
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Engine.Driver {
	case DriverElasticsearch, DriverOpenSearch:
		// ok
	default:
		return fmt.Errorf("engine.driver must be %q or %q, got %q",
			DriverElasticsearch, DriverOpenSearch, c.Engine.Driver)
	}
	switch c.Engine.Refresh {
	case "", "true", "false", "wait_for":
		// ok
	default:
		return fmt.Errorf("engine.refresh must be \"true\", \"false\" or \"wait_for\", got %q", c.Engine.Refresh)
	}
	seen := make(map[string]struct{}, len(c.Models))
	for i, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("models[%d].name is required", i)
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("models.%s is declared more than once", m.Name)
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
