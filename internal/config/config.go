// Package config loads service configuration from flags and environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8080
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB
	DefaultPresignTTL  = 24 * time.Hour
	DefaultLinkTTL     = 14 * 24 * time.Hour
)

// Config holds all configuration for the docsign server.
type Config struct {
	// Server
	Host string
	Port int

	// Logging
	LogLevel  string
	LogFormat string

	// Record store
	DatabaseDSN string

	// Blob store
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	PresignTTL     time.Duration

	// Signer links
	LinkSecret string
	LinkTTL    time.Duration
	PublicURL  string

	// Outbound mail (optional: empty host disables mail)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Uploads
	MaxFileSize int64
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		MinioBucket: "docsign",
		PresignTTL:  DefaultPresignTTL,
		LinkTTL:     DefaultLinkTTL,
		PublicURL:   fmt.Sprintf("http://%s:%d", DefaultHost, DefaultPort),
		SMTPPort:    587,
		MaxFileSize: DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and environment and returns a
// validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("DOCSIGN")
	viper.AutomaticEnv()

	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
	viper.SetDefault("db_dsn", cfg.DatabaseDSN)
	viper.SetDefault("minio_endpoint", cfg.MinioEndpoint)
	viper.SetDefault("minio_access_key", cfg.MinioAccessKey)
	viper.SetDefault("minio_secret_key", cfg.MinioSecretKey)
	viper.SetDefault("minio_bucket", cfg.MinioBucket)
	viper.SetDefault("minio_use_ssl", cfg.MinioUseSSL)
	viper.SetDefault("presign_ttl", cfg.PresignTTL)
	viper.SetDefault("link_secret", cfg.LinkSecret)
	viper.SetDefault("link_ttl", cfg.LinkTTL)
	viper.SetDefault("public_url", cfg.PublicURL)
	viper.SetDefault("smtp_host", cfg.SMTPHost)
	viper.SetDefault("smtp_port", cfg.SMTPPort)
	viper.SetDefault("smtp_username", cfg.SMTPUsername)
	viper.SetDefault("smtp_password", cfg.SMTPPassword)
	viper.SetDefault("smtp_from", cfg.SMTPFrom)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

func defineCommandLineFlags(cfg *Config) {
	pflag.String("host", cfg.Host, "Server host address")
	pflag.Int("port", cfg.Port, "Server port")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (json, text)")
	pflag.String("db-dsn", cfg.DatabaseDSN, "Postgres DSN for the record store")
	pflag.String("minio-endpoint", cfg.MinioEndpoint, "MinIO endpoint (host:port)")
	pflag.String("minio-bucket", cfg.MinioBucket, "MinIO bucket name")
	pflag.String("public-url", cfg.PublicURL, "Public base URL used in signer links")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF upload size in bytes")
}

func bindFlagsToViper() {
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("logformat", pflag.Lookup("logformat"))
	_ = viper.BindPFlag("db_dsn", pflag.Lookup("db-dsn"))
	_ = viper.BindPFlag("minio_endpoint", pflag.Lookup("minio-endpoint"))
	_ = viper.BindPFlag("minio_bucket", pflag.Lookup("minio-bucket"))
	_ = viper.BindPFlag("public_url", pflag.Lookup("public-url"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

func populateConfigFromViper(cfg *Config) {
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
	cfg.DatabaseDSN = viper.GetString("db_dsn")
	cfg.MinioEndpoint = viper.GetString("minio_endpoint")
	cfg.MinioAccessKey = viper.GetString("minio_access_key")
	cfg.MinioSecretKey = viper.GetString("minio_secret_key")
	cfg.MinioBucket = viper.GetString("minio_bucket")
	cfg.MinioUseSSL = viper.GetBool("minio_use_ssl")
	cfg.PresignTTL = viper.GetDuration("presign_ttl")
	cfg.LinkSecret = viper.GetString("link_secret")
	cfg.LinkTTL = viper.GetDuration("link_ttl")
	cfg.PublicURL = viper.GetString("public_url")
	cfg.SMTPHost = viper.GetString("smtp_host")
	cfg.SMTPPort = viper.GetInt("smtp_port")
	cfg.SMTPUsername = viper.GetString("smtp_username")
	cfg.SMTPPassword = viper.GetString("smtp_password")
	cfg.SMTPFrom = viper.GetString("smtp_from")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	if c.DatabaseDSN == "" {
		return errors.New("database DSN cannot be empty")
	}
	if c.MinioEndpoint == "" {
		return errors.New("minio endpoint cannot be empty")
	}
	if c.MinioBucket == "" {
		return errors.New("minio bucket cannot be empty")
	}
	if c.LinkSecret == "" {
		return errors.New("link secret cannot be empty")
	}
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.PresignTTL <= 0 || c.LinkTTL <= 0 {
		return errors.New("TTLs must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.LogFormat)
	}
	return nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a loggable representation without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Host: %s, Port: %d, MinioEndpoint: %s, Bucket: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Host, c.Port, c.MinioEndpoint, c.MinioBucket, c.LogLevel, c.MaxFileSize)
}

