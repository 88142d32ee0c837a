package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			BaseURL: "http://localhost:8000",
		},
		Storage: StorageConfig{
			SpoolDir:      "./downloads",
			RegistryPath:  "./data/registry.db",
			MaxFileSize:   524288000,
			Retention:     24 * time.Hour,
			SweepInterval: time.Hour,
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.Server.BaseURL = "" },
			wantErr: true,
		},
		{
			name:    "missing spool dir",
			mutate:  func(c *Config) { c.Storage.SpoolDir = "" },
			wantErr: true,
		},
		{
			name:    "missing registry path",
			mutate:  func(c *Config) { c.Storage.RegistryPath = "" },
			wantErr: true,
		},
		{
			name:    "non-positive file size cap",
			mutate:  func(c *Config) { c.Storage.MaxFileSize = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive retention",
			mutate:  func(c *Config) { c.Storage.Retention = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive sweep interval",
			mutate:  func(c *Config) { c.Storage.SweepInterval = -time.Minute },
			wantErr: true,
		},
		{
			name:    "non-positive rate limit",
			mutate:  func(c *Config) { c.RateLimit.Requests = 0 },
			wantErr: true,
		},
		{
			name:    "non-positive rate window",
			mutate:  func(c *Config) { c.RateLimit.Window = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{
			name: "default",
			cfg:  ServerConfig{Host: "0.0.0.0", Port: 8000},
			want: "0.0.0.0:8000",
		},
		{
			name: "localhost",
			cfg:  ServerConfig{Host: "localhost", Port: 8080},
			want: "localhost:8080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Address(); got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Storage.SpoolDir != "./downloads" {
		t.Errorf("SpoolDir = %q", cfg.Storage.SpoolDir)
	}
	if cfg.Storage.MaxFileSize != 524288000 {
		t.Errorf("MaxFileSize = %d, want 500MB", cfg.Storage.MaxFileSize)
	}
	if cfg.Storage.Retention != 24*time.Hour {
		t.Errorf("Retention = %v, want 24h", cfg.Storage.Retention)
	}
	if cfg.Storage.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want 1h", cfg.Storage.SweepInterval)
	}
	if cfg.Snapsave.Endpoint != "https://snapsave.app/action.php?lang=id" {
		t.Errorf("Snapsave.Endpoint = %q", cfg.Snapsave.Endpoint)
	}
	if cfg.Snapsave.Origin != "https://snapsave.app" {
		t.Errorf("Snapsave.Origin = %q", cfg.Snapsave.Origin)
	}
	if cfg.Instagram.DocID != "10015901848480474" {
		t.Errorf("Instagram.DocID = %q", cfg.Instagram.DocID)
	}
	if cfg.RateLimit.Requests != 30 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit = %d/%v, want 30/1m", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9001")
	t.Setenv("BASE_URL", "https://media.example.net")
	t.Setenv("SPOOL_DIR", "/var/spool/media")
	t.Setenv("INSTAGRAM_DOC_ID", "42")
	t.Setenv("RETENTION", "48h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "https://media.example.net" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Storage.SpoolDir != "/var/spool/media" {
		t.Errorf("SpoolDir = %q", cfg.Storage.SpoolDir)
	}
	if cfg.Instagram.DocID != "42" {
		t.Errorf("Instagram.DocID = %q", cfg.Instagram.DocID)
	}
	if cfg.Storage.Retention != 48*time.Hour {
		t.Errorf("Retention = %v", cfg.Storage.Retention)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
server:
  host: "localhost
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load should fail for invalid YAML")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load should fail for nonexistent file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("BASE_URL", "")

	_, err := Load("")
	if err == nil {
		t.Error("Load should fail validation with an empty base URL")
	}
}
