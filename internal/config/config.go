package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dashboard server
	ListenAddr   string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	GinMode      string   `mapstructure:"gin_mode" yaml:"gin_mode"`
	CORSOrigins  []string `mapstructure:"cors_origins" yaml:"cors_origins"`
	MaxUploadMB  int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	ResultTTLMin int      `mapstructure:"result_ttl_min" yaml:"result_ttl_min"`
	MaxResults   int      `mapstructure:"max_results" yaml:"max_results"`

	// Model
	ModelBackend string `mapstructure:"model_backend" yaml:"model_backend"`
	ModelPath    string `mapstructure:"model_path" yaml:"model_path"`
	ModelURL     string `mapstructure:"model_url" yaml:"model_url"`
	ModelAPIKey  string `mapstructure:"model_api_key" yaml:"model_api_key"`

	// HTTP/Retry configuration for the remote backend
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Report
	TopN     int `mapstructure:"top_n" yaml:"top_n"`
	HistBins int `mapstructure:"hist_bins" yaml:"hist_bins"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// DefaultDir returns ~/.fraudlens.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".fraudlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.fraudlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags > env (.env included) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("FRAUDLENS")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("result_ttl_min", 30)
	v.SetDefault("max_results", 64)
	v.SetDefault("model_backend", "local")
	v.SetDefault("model_path", "fraud_model.json")
	v.SetDefault("model_url", "")
	v.SetDefault("model_api_key", "")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("top_n", 10)
	v.SetDefault("hist_bins", 20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Env gives a comma list.
	c.CORSOrigins = splitList(strings.Join(c.CORSOrigins, ","))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks enumerated and range-bound values.
func (c *Global) Validate() error {
	switch c.ModelBackend {
	case "local", "remote":
	default:
		return fmt.Errorf("invalid model_backend: %q (use local or remote)", c.ModelBackend)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log_format: %q", c.LogFormat)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.MaxResults)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	if c.HistBins <= 0 {
		return fmt.Errorf("hist_bins must be positive, got %d", c.HistBins)
	}
	return nil
}

// HTTPTimeout returns the remote backend timeout.
func (c *Global) HTTPTimeout() time.Duration { return time.Duration(c.HTTPTimeoutSec) * time.Second }

// RetryBaseDelay returns the base backoff delay.
func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the backoff cap.
func (c *Global) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

// ResultTTL returns how long results stay downloadable.
func (c *Global) ResultTTL() time.Duration { return time.Duration(c.ResultTTLMin) * time.Minute }

// MaxUploadBytes returns the upload cap in bytes.
func (c *Global) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
