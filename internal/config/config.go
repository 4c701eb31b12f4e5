// Package config loads csvclean settings from, in increasing precedence,
// built-in defaults, a YAML config file, a .env file, CSVCLEAN_* environment
// variables and command-line flags.
//
// Example csvclean.yaml:
//
//	server:
//	  addr: ":8000"
//	output_dir: outputs
//	llm:
//	  provider: openai
//	  model: gpt-4o-mini
//	storage:
//	  kind: sqlite
//	  dsn: file:clean.db
//	  table: cleaned
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CSVCLEAN_SERVER_ADDR.
const EnvPrefix = "CSVCLEAN"

// DefaultConfigName is searched for (as csvclean.yaml) in the working
// directory when no explicit config file is given.
const DefaultConfigName = "csvclean"

// Config is the full application configuration.
type Config struct {
	Server    Server  `mapstructure:"server"`
	OutputDir string  `mapstructure:"output_dir"`
	LogLevel  string  `mapstructure:"log_level"`
	LLM       LLM     `mapstructure:"llm"`
	Metrics   Metrics `mapstructure:"metrics"`
	Storage   Storage `mapstructure:"storage"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `mapstructure:"addr"`
	// MaxUploadBytes caps a single uploaded CSV.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	// PreviewRows is the number of cleaned rows echoed in responses.
	PreviewRows int `mapstructure:"preview_rows"`
}

// LLM selects the planning model.
type LLM struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`

	OpenAIAPIKey string `mapstructure:"openai_api_key"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
}

// APIKey returns the key for the configured provider.
func (l LLM) APIKey() string {
	if strings.EqualFold(l.Provider, "gemini") {
		return l.GeminiAPIKey
	}
	return l.OpenAIAPIKey
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none", "prompush" or "datadog".
	Backend        string `mapstructure:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr"`
	Namespace      string `mapstructure:"namespace"`
	Job            string `mapstructure:"job"`
}

// Storage configures the optional SQL export. An empty Kind disables it.
type Storage struct {
	Kind      string `mapstructure:"kind"`
	DSN       string `mapstructure:"dsn"`
	Table     string `mapstructure:"table"`
	BatchSize int    `mapstructure:"batch_size"`
}

// SetDefaults registers every key with its default. Keys must be known to
// viper for AutomaticEnv to reach them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.max_upload_bytes", int64(50<<20))
	v.SetDefault("server.preview_rows", 10)
	v.SetDefault("output_dir", "outputs")
	v.SetDefault("log_level", "info")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 2)

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.datadog_addr", "")
	v.SetDefault("metrics.namespace", "csvclean.")
	v.SetDefault("metrics.job", "csvclean")

	v.SetDefault("storage.kind", "")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.table", "")
	v.SetDefault("storage.batch_size", 5000)
}

// New returns a viper instance with defaults and environment bindings set
// up. Callers bind flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider keys keep their conventional unprefixed names.
	_ = v.BindEnv("llm.openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("llm.gemini_api_key", "GEMINI_API_KEY")
	return v
}

// Load reads the .env file (if any), the config file and the environment
// into a Config. With an empty path csvclean.yaml is looked up in the
// working directory and its absence is not an error; an explicit path must
// exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Metrics.Backend = strings.ToLower(strings.TrimSpace(cfg.Metrics.Backend))
	cfg.Storage.Kind = strings.ToLower(strings.TrimSpace(cfg.Storage.Kind))
	return &cfg, nil
}

// loadDotEnv loads KEY=VALUE pairs without overriding variables that are
// already set. A missing file is fine.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
