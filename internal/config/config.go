// Package config holds the runtime configuration for the formfill service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeHTTP  = "http"
	ModeStdio = "stdio"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxUploadSize = 25 * 1024 * 1024 // 25MB
	DefaultPreviewWindow = 300 * time.Millisecond
	DefaultSessionTTL    = 30 * time.Minute

	// Directory permissions
	DefaultDirPerm = 0o750
)

// DatabaseConfig holds the form-configuration store settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// StorageConfig holds the template object-store settings.
type StorageConfig struct {
	Region string
	Bucket string
}

// Config holds all configuration for the formfill server.
type Config struct {
	// Transport configuration
	Mode string // "http" for the REST API, "stdio" for the MCP tool surface
	Host string
	Port int

	// Form templates
	TemplateDirectory string // local fallback when no object store is configured
	MaxUploadSize     int64  // maximum uploaded PDF size in bytes

	// Session behaviour
	PreviewWindow   time.Duration // debounce interval for live preview refreshes
	SessionTTL      time.Duration
	DefaultLanguage string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string

	// Auth: empty secret disables bearer-token checking (development)
	JWTSecret string

	Database DatabaseConfig
	Storage  StorageConfig
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeHTTP,
		Host:              DefaultHost,
		Port:              DefaultPort,
		TemplateDirectory: filepath.Join(currentDir, "templates"),
		MaxUploadSize:     DefaultMaxUploadSize,
		PreviewWindow:     DefaultPreviewWindow,
		SessionTTL:        DefaultSessionTTL,
		DefaultLanguage:   "en",
		Version:           "1.0.0",
		ServerName:        "formfill",
		LogLevel:          DefaultLogLevel,
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			SSLMode: "disable",
		},
	}
}

// LoadFromFlags parses command line flags, environment variables and
// defaults into a validated configuration.
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.TemplateDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.TemplateDirectory); err == nil {
			cfg.TemplateDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("FORMFILL")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("templatedir", cfg.TemplateDirectory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxuploadsize", cfg.MaxUploadSize)
	viper.SetDefault("previewwindow", cfg.PreviewWindow)
	viper.SetDefault("sessionttl", cfg.SessionTTL)
	viper.SetDefault("defaultlanguage", cfg.DefaultLanguage)
	viper.SetDefault("jwtsecret", cfg.JWTSecret)
	viper.SetDefault("dbhost", cfg.Database.Host)
	viper.SetDefault("dbport", cfg.Database.Port)
	viper.SetDefault("dbuser", cfg.Database.User)
	viper.SetDefault("dbpassword", cfg.Database.Password)
	viper.SetDefault("dbname", cfg.Database.Name)
	viper.SetDefault("dbsslmode", cfg.Database.SSLMode)
	viper.SetDefault("s3region", cfg.Storage.Region)
	viper.SetDefault("s3bucket", cfg.Storage.Bucket)
}

func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Transport mode: 'http' for the REST API, 'stdio' for the MCP tool surface")
	pflag.String("host", cfg.Host, "Server host address (http mode only)")
	pflag.Int("port", cfg.Port, "Server port (http mode only)")
	pflag.String("templatedir", cfg.TemplateDirectory, "Directory containing form template PDFs")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxuploadsize", cfg.MaxUploadSize, "Maximum uploaded PDF size in bytes")
	pflag.Duration("previewwindow", cfg.PreviewWindow, "Debounce window for live preview refreshes")
	pflag.Duration("sessionttl", cfg.SessionTTL, "Idle session lifetime")
	pflag.String("defaultlanguage", cfg.DefaultLanguage, "Default UI language (en, es)")
	pflag.String("jwtsecret", cfg.JWTSecret, "HMAC secret for validating bearer tokens (empty disables auth)")
	pflag.String("dbhost", cfg.Database.Host, "Form store database host")
	pflag.Int("dbport", cfg.Database.Port, "Form store database port")
	pflag.String("dbuser", cfg.Database.User, "Form store database user")
	pflag.String("dbpassword", cfg.Database.Password, "Form store database password")
	pflag.String("dbname", cfg.Database.Name, "Form store database name (empty disables the store)")
	pflag.String("dbsslmode", cfg.Database.SSLMode, "Form store database sslmode")
	pflag.String("s3region", cfg.Storage.Region, "Template object store region")
	pflag.String("s3bucket", cfg.Storage.Bucket, "Template object store bucket (empty uses the local template directory)")
}

func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "templatedir", "loglevel", "maxuploadsize",
		"previewwindow", "sessionttl", "defaultlanguage", "jwtsecret",
		"dbhost", "dbport", "dbuser", "dbpassword", "dbname", "dbsslmode",
		"s3region", "s3bucket",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDirectory = viper.GetString("templatedir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxUploadSize = viper.GetInt64("maxuploadsize")
	cfg.PreviewWindow = viper.GetDuration("previewwindow")
	cfg.SessionTTL = viper.GetDuration("sessionttl")
	cfg.DefaultLanguage = viper.GetString("defaultlanguage")
	cfg.JWTSecret = viper.GetString("jwtsecret")
	cfg.Database.Host = viper.GetString("dbhost")
	cfg.Database.Port = viper.GetInt("dbport")
	cfg.Database.User = viper.GetString("dbuser")
	cfg.Database.Password = viper.GetString("dbpassword")
	cfg.Database.Name = viper.GetString("dbname")
	cfg.Database.SSLMode = viper.GetString("dbsslmode")
	cfg.Storage.Region = viper.GetString("s3region")
	cfg.Storage.Bucket = viper.GetString("s3bucket")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Mode != ModeHTTP && c.Mode != ModeStdio {
		return errors.New("mode must be either 'http' or 'stdio'")
	}

	if c.Mode == ModeHTTP && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.TemplateDirectory == "" {
		return errors.New("template directory cannot be empty")
	}
	if _, err := os.Stat(c.TemplateDirectory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.TemplateDirectory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create template directory %s: %w", c.TemplateDirectory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access template directory %s: %w", c.TemplateDirectory, err)
	}

	if c.MaxUploadSize <= 0 {
		return errors.New("maximum upload size must be positive")
	}
	if c.PreviewWindow <= 0 {
		return errors.New("preview window must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.DefaultLanguage != "en" && c.DefaultLanguage != "es" {
		return fmt.Errorf("unsupported default language: %s", c.DefaultLanguage)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled.
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsHTTPMode returns true when serving the REST API.
func (c *Config) IsHTTPMode() bool {
	return c.Mode == ModeHTTP
}

// IsStdioMode returns true when serving MCP tools over stdio.
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// HasDatabase reports whether a form-configuration store is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.Name != ""
}

// HasObjectStorage reports whether templates come from the object store.
func (c *Config) HasObjectStorage() bool {
	return c.Storage.Bucket != ""
}

// String returns a string representation of the configuration. Secrets are
// not included.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, TemplateDirectory: %s, LogLevel: %s, PreviewWindow: %s}",
		c.Mode, c.Host, c.Port, c.TemplateDirectory, c.LogLevel, c.PreviewWindow)
}
