package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the album downloader
type Config struct {
	// HTTP settings used for both the page fetch and image downloads
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Retry behavior for transient HTTP failures
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Extraction settings
	Extract ExtractConfig `yaml:"extract" json:"extract"`

	// Imgur URL templates
	Imgur ImgurConfig `yaml:"imgur" json:"imgur"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// HTTPConfig holds the request headers and timeout. Imgur rejects requests
// with default client identifiers, so a browser-like user agent is required.
type HTTPConfig struct {
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Accept    string        `yaml:"accept" json:"accept"`
	Referer   string        `yaml:"referer" json:"referer"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// RetryConfig holds retry configuration for GET requests
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	// BaseDirectory is where derived album folders are created when no
	// explicit folder is given on the command line
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// ExtractConfig holds extraction settings
type ExtractConfig struct {
	// Extensions restricts downloads to the listed extensions
	// (".jpg", ".png", ...). Empty means all.
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// ImgurConfig holds the host templates image URLs are built from
type ImgurConfig struct {
	// ImageBaseURL is the host full-resolution image URLs are built on,
	// as in <image_base_url>/<id><ext>
	ImageBaseURL string `yaml:"image_base_url" json:"image_base_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Accept:    "image/*,text/html;q=0.8,*/*;q=0.7",
			Referer:   "https://imgur.com/",
			Timeout:   30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
			Multiplier:  2.0,
		},
		Output: OutputConfig{
			BaseDirectory:     ".",
			OverwriteExisting: true,
		},
		Extract: ExtractConfig{},
		Imgur: ImgurConfig{
			ImageBaseURL: "https://i.imgur.com",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if ua := os.Getenv("IMGURDL_USER_AGENT"); ua != "" {
		c.HTTP.UserAgent = ua
	}
	if timeout := os.Getenv("IMGURDL_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid IMGURDL_TIMEOUT: %w", err)
		}
		c.HTTP.Timeout = d
	}
	if attempts := os.Getenv("IMGURDL_MAX_ATTEMPTS"); attempts != "" {
		var val int
		fmt.Sscanf(attempts, "%d", &val)
		if val > 0 {
			c.Retry.MaxAttempts = val
		}
	}
	if outputDir := os.Getenv("IMGURDL_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if overwrite := os.Getenv("IMGURDL_OVERWRITE"); overwrite != "" {
		c.Output.OverwriteExisting = strings.ToLower(overwrite) == "true"
	}
	if logLevel := os.Getenv("IMGURDL_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".imgurdl.yaml",
		".imgurdl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "imgurdl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".imgurdl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("base directory is required"))
	}
	if c.Imgur.ImageBaseURL == "" {
		errs = append(errs, errors.New("image base URL is required"))
	}
	for _, ext := range c.Extract.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("extension %q must start with a dot", ext))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output-dir"].(string); ok && outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.HTTP.Timeout = timeout
	}
	if attempts, ok := flags["max-retries"].(int); ok && attempts > 0 {
		c.Retry.MaxAttempts = attempts
	}
	if skip, ok := flags["skip-existing"].(bool); ok && skip {
		c.Output.OverwriteExisting = false
	}
	if exts, ok := flags["extensions"].([]string); ok && len(exts) > 0 {
		c.Extract.Extensions = exts
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgurdl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
