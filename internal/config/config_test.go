package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.DatabaseDSN = "host=localhost user=docsign dbname=docsign"
	cfg.MinioEndpoint = "localhost:9000"
	cfg.LinkSecret = "secret"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected default host to be '127.0.0.1', got '%s'", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected default port to be 8080, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level to be 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.MaxFileSize != 50*1024*1024 {
		t.Errorf("Expected default max file size to be 50MB, got %d", cfg.MaxFileSize)
	}
	if cfg.MinioBucket != "docsign" {
		t.Errorf("Expected default bucket 'docsign', got '%s'", cfg.MinioBucket)
	}
	if cfg.MailEnabled() {
		t.Error("Expected mail to be disabled by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Port = 0 }, true},
		{"missing dsn", func(c *Config) { c.DatabaseDSN = "" }, true},
		{"missing minio endpoint", func(c *Config) { c.MinioEndpoint = "" }, true},
		{"missing bucket", func(c *Config) { c.MinioBucket = "" }, true},
		{"missing link secret", func(c *Config) { c.LinkSecret = "" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"zero max file size", func(c *Config) { c.MaxFileSize = 0 }, true},
		{"negative ttl", func(c *Config) { c.LinkTTL = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Host = "0.0.0.0"
	cfg.Port = 9999
	if cfg.Address() != "0.0.0.0:9999" {
		t.Errorf("Expected address '0.0.0.0:9999', got '%s'", cfg.Address())
	}
}

func TestStringOmitsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.MinioSecretKey = "super-secret"
	cfg.LinkSecret = "hush"
	s := cfg.String()
	for _, secret := range []string{"super-secret", "hush"} {
		if strings.Contains(s, secret) {
			t.Errorf("String() leaked secret %q: %s", secret, s)
		}
	}
}
