package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for the orchestration engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Engine     EngineConfig     `yaml:"engine"`
	Planner    PlannerConfig    `yaml:"planner"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" env:"AUTOOPS_SERVER_ADDRESS"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"AUTOOPS_SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"AUTOOPS_SERVER_WRITE_TIMEOUT"`
	EnableCORS   bool          `yaml:"enable_cors" env:"AUTOOPS_SERVER_ENABLE_CORS"`
	EnableEvents bool          `yaml:"enable_events" env:"AUTOOPS_SERVER_ENABLE_EVENTS"`
}

// EngineConfig holds task orchestration engine configuration.
type EngineConfig struct {
	Workers         int           `yaml:"workers" env:"AUTOOPS_ENGINE_WORKERS"`
	DefaultTimeout  time.Duration `yaml:"default_timeout" env:"AUTOOPS_ENGINE_DEFAULT_TIMEOUT"`
	MaxRetries      int           `yaml:"max_retries" env:"AUTOOPS_ENGINE_MAX_RETRIES"`
	BackoffBase     time.Duration `yaml:"backoff_base" env:"AUTOOPS_ENGINE_BACKOFF_BASE"`
	BackoffMax      time.Duration `yaml:"backoff_max" env:"AUTOOPS_ENGINE_BACKOFF_MAX"`
	MetricsInterval time.Duration `yaml:"metrics_interval" env:"AUTOOPS_ENGINE_METRICS_INTERVAL"`
	TaskRetention   time.Duration `yaml:"task_retention" env:"AUTOOPS_ENGINE_TASK_RETENTION"`
}

// PlannerConfig holds planner collaborator configuration. When APIKey is
// empty the engine falls back to the deterministic rule-based planner.
type PlannerConfig struct {
	Provider    string        `yaml:"provider" env:"AUTOOPS_PLANNER_PROVIDER"`
	Model       string        `yaml:"model" env:"AUTOOPS_PLANNER_MODEL"`
	APIKey      string        `yaml:"api_key" env:"AUTOOPS_PLANNER_API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"AUTOOPS_PLANNER_BASE_URL"`
	Temperature float32       `yaml:"temperature" env:"AUTOOPS_PLANNER_TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"AUTOOPS_PLANNER_TIMEOUT"`
}

// KubernetesConfig holds executor collaborator configuration.
type KubernetesConfig struct {
	APIServer      string        `yaml:"api_server" env:"AUTOOPS_KUBE_API_SERVER"`
	BearerToken    string        `yaml:"bearer_token" env:"AUTOOPS_KUBE_BEARER_TOKEN"`
	Namespace      string        `yaml:"namespace" env:"AUTOOPS_KUBE_NAMESPACE"`
	InsecureTLS    bool          `yaml:"insecure_tls" env:"AUTOOPS_KUBE_INSECURE_TLS"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"AUTOOPS_KUBE_REQUEST_TIMEOUT"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"AUTOOPS_LOG_LEVEL"`
	Format string `yaml:"format" env:"AUTOOPS_LOG_FORMAT"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
			EnableEvents: true,
		},
		Engine: EngineConfig{
			Workers:         10,
			DefaultTimeout:  5 * time.Minute,
			MaxRetries:      3,
			BackoffBase:     time.Second,
			BackoffMax:      10 * time.Second,
			MetricsInterval: 5 * time.Second,
			TaskRetention:   24 * time.Hour,
		},
		Planner: PlannerConfig{
			Provider:    "openai",
			Model:       "gpt-4",
			Temperature: 0.1,
			Timeout:     60 * time.Second,
		},
		Kubernetes: KubernetesConfig{
			APIServer:      "https://127.0.0.1:6443",
			Namespace:      "default",
			RequestTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	cmdArgs    map[string]string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{cmdArgs: make(map[string]string)}
}

// WithConfigPath sets the path to the YAML configuration file.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithCmdArgs sets command-line arguments for configuration override.
func (l *Loader) WithCmdArgs(args map[string]string) *Loader {
	l.cmdArgs = args
	return l
}

// Load loads configuration from all sources with proper precedence:
// defaults < YAML file < environment variables < command-line flags.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvToStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	for key, value := range l.cmdArgs {
		if err := setConfigValue(cfg, key, value); err != nil {
			return nil, fmt.Errorf("failed to set config value %s: %w", key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file. A missing file is
// not an error; defaults apply.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvToStruct recursively applies environment variables to struct
// fields carrying an `env` tag.
func applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setConfigValue sets a configuration value by dot-notation path,
// e.g. "engine.workers".
func setConfigValue(cfg *Config, path, value string) error {
	parts := strings.Split(path, ".")
	v := reflect.ValueOf(cfg).Elem()

	for i, part := range parts {
		fieldName := strings.ReplaceAll(part, "_", "")

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName) || strings.EqualFold(name, part)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown config path: %s", path)
		}

		if i == len(parts)-1 {
			return setFieldValue(field, value)
		}

		if field.Kind() != reflect.Struct {
			return fmt.Errorf("expected %s to be a struct, got %s", part, field.Kind())
		}
		v = field
	}

	return nil
}

// setFieldValue sets a reflect.Value from a string value.
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("cannot set field")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Serialize serializes the configuration to YAML bytes.
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration from bytes on top of defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file path.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader().WithConfigPath(path).Load()
}
