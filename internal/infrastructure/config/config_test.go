package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTestConfig writes a config file into a temp dir and returns its path.
func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
service:
  instance_id: "meter-001"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
ingest:
  refresh_interval: 60
api:
  host: "0.0.0.0"
  port: 9090
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	cfg, err := Load(writeTestConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Service.InstanceID != "meter-001" {
		t.Errorf("Service.InstanceID = %q, want %q", cfg.Service.InstanceID, "meter-001")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Ingest.RefreshInterval != 60 {
		t.Errorf("Ingest.RefreshInterval = %d, want 60", cfg.Ingest.RefreshInterval)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Minimal file: everything not specified should come from defaults.
	cfg, err := Load(writeTestConfig(t, "service:\n  name: \"Test\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./data/meterhub.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
	if cfg.Ingest.RefreshInterval != defaultRefreshInterval {
		t.Errorf("Ingest.RefreshInterval = %d, want %d", cfg.Ingest.RefreshInterval, defaultRefreshInterval)
	}
	if cfg.Ingest.MaxBodySize != defaultMaxBodySize {
		t.Errorf("Ingest.MaxBodySize = %d, want %d", cfg.Ingest.MaxBodySize, defaultMaxBodySize)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeTestConfig(t, "database:\n  path: [not: valid"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("METERHUB_DATABASE_PATH", "/override/meterhub.db")
	t.Setenv("METERHUB_API_PORT", "7070")
	t.Setenv("METERHUB_INSTANCE_ID", "env-instance")

	cfg, err := Load(writeTestConfig(t, "database:\n  path: \"/file/meterhub.db\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/override/meterhub.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("API.Port = %d, want 7070", cfg.API.Port)
	}
	if cfg.Service.InstanceID != "env-instance" {
		t.Errorf("Service.InstanceID = %q, want %q", cfg.Service.InstanceID, "env-instance")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name:    "negative refresh interval",
			mutate:  func(c *Config) { c.Ingest.RefreshInterval = -1 },
			wantErr: true,
		},
		{
			name:    "zero max body size",
			mutate:  func(c *Config) { c.Ingest.MaxBodySize = 0 },
			wantErr: true,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.API.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Org = "org"
				c.InfluxDB.Bucket = "bucket"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
