package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Snapsave  SnapsaveConfig  `yaml:"snapsave"`
	Instagram InstagramConfig `yaml:"instagram"`
	Download  DownloadConfig  `yaml:"download"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8000"`
	BaseURL      string        `yaml:"base_url" envconfig:"BASE_URL" default:"http://localhost:8000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	// WriteTimeout must stay above the download timeout: the response body is
	// written only after the media has been spooled.
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"15m"`
}

// StorageConfig holds spool directory and registry configuration. Everything
// under the spool is transient: files live until the sweep removes them.
type StorageConfig struct {
	SpoolDir      string        `yaml:"spool_dir" envconfig:"SPOOL_DIR" default:"./downloads"`
	RegistryPath  string        `yaml:"registry_path" envconfig:"REGISTRY_PATH" default:"./data/registry.db"`
	MaxFileSize   int64         `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"524288000"` // 500MB
	Retention     time.Duration `yaml:"retention" envconfig:"RETENTION" default:"24h"`
	SweepInterval time.Duration `yaml:"sweep_interval" envconfig:"SWEEP_INTERVAL" default:"1h"`
}

// RateLimitConfig holds per-client request budget configuration.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	Window   time.Duration `yaml:"window" envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// SnapsaveConfig holds the scraping intermediary endpoint and the browser
// identity sent with each request.
type SnapsaveConfig struct {
	Endpoint  string        `yaml:"endpoint" envconfig:"SNAPSAVE_ENDPOINT" default:"https://snapsave.app/action.php?lang=id"`
	Origin    string        `yaml:"origin" envconfig:"SNAPSAVE_ORIGIN" default:"https://snapsave.app"`
	Referer   string        `yaml:"referer" envconfig:"SNAPSAVE_REFERER" default:"https://snapsave.app/id"`
	UserAgent string        `yaml:"user_agent" envconfig:"SNAPSAVE_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/103.0.0.0 Safari/537.36"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"SNAPSAVE_TIMEOUT" default:"30s"`
}

// InstagramConfig holds the GraphQL endpoint and session tokens. The
// defaults are captured from a live web session and rot over time, so every
// one of them can be replaced without a rebuild.
type InstagramConfig struct {
	Endpoint  string        `yaml:"endpoint" envconfig:"INSTAGRAM_ENDPOINT" default:"https://www.instagram.com/api/graphql"`
	DocID     string        `yaml:"doc_id" envconfig:"INSTAGRAM_DOC_ID" default:"10015901848480474"`
	AppID     string        `yaml:"app_id" envconfig:"INSTAGRAM_APP_ID" default:"1217981644879628"`
	LSD       string        `yaml:"lsd" envconfig:"INSTAGRAM_LSD" default:"AVqbxe3J_YA"`
	CSRFToken string        `yaml:"csrf_token" envconfig:"INSTAGRAM_CSRF_TOKEN" default:"RVDUooU5MYsBbS1CNN3CzVAuEP8oHB52"`
	ASBDID    string        `yaml:"asbd_id" envconfig:"INSTAGRAM_ASBD_ID" default:"129477"`
	UserAgent string        `yaml:"user_agent" envconfig:"INSTAGRAM_USER_AGENT" default:"Mozilla/5.0 (Linux; Android 11; SAMSUNG SM-G973U) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/14.2 Chrome/87.0.4280.141 Mobile Safari/537.36"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"INSTAGRAM_TIMEOUT" default:"30s"`
}

// DownloadConfig holds media fetch configuration.
type DownloadConfig struct {
	Timeout   time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"10m"`
	UserAgent string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT %d out of range", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}
	if c.Storage.SpoolDir == "" {
		return fmt.Errorf("SPOOL_DIR is required")
	}
	if c.Storage.RegistryPath == "" {
		return fmt.Errorf("REGISTRY_PATH is required")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.Storage.Retention <= 0 {
		return fmt.Errorf("RETENTION must be positive")
	}
	if c.Storage.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
