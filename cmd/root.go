package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fraudlens/internal/classifier"
	cfgpkg "github.com/KaramelBytes/fraudlens/internal/config"
)

var (
	cfgFile string
	debug   bool
	// Logging flags (override config if set)
	flagLogLevel  string
	flagLogFormat string
	// Model flags (override config if set)
	flagModelBackend string
	flagModelPath    string
	flagModelURL     string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "fraudlens",
	Short: "Fraudlens: score job listings for likely fraud",
	Long: `Fraudlens scores the description of every job listing in a CSV with a pre-trained
binary classifier and reports how many look fraudulent. Run it as a web dashboard
(serve), on files from the terminal (predict) or as an MCP tool (mcp).`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.fraudlens/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: console|json (overrides config)")
	pf.StringVar(&flagModelBackend, "backend", "", "model backend: local|remote (overrides config)")
	pf.StringVarP(&flagModelPath, "model", "m", "", "model artifact path for the local backend (overrides config)")
	pf.StringVar(&flagModelURL, "model-url", "", "model server base URL for the remote backend (overrides config)")
	pf.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	pf.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	pf.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	pf.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	if _, err := initConfig(); err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	}
}

// initConfig loads the config file and environment, applies CLI overrides
// and installs the logger.
func initConfig() (*cfgpkg.Global, error) {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") && flagLogLevel != "" {
		c.LogLevel = flagLogLevel
	}
	if debug {
		c.LogLevel = "debug"
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		c.LogFormat = flagLogFormat
	}
	if f.Changed("backend") && flagModelBackend != "" {
		c.ModelBackend = flagModelBackend
	}
	if f.Changed("model") && flagModelPath != "" {
		c.ModelPath = flagModelPath
	}
	if f.Changed("model-url") && flagModelURL != "" {
		c.ModelURL = flagModelURL
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		c.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		c.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		c.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		c.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	if err := setupLogging(c.LogLevel, c.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
	cfg = c
	return c, nil
}

// requireConfig returns the loaded config or the reason it is missing.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := initConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}

// setupLogging installs the default slog logger on stderr.
func setupLogging(level, format string) error {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info", "":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slogLevel}
	switch format {
	case "console", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// classifierConfig maps the loaded config onto backend settings.
func classifierConfig(c *cfgpkg.Global) classifier.Config {
	return classifier.Config{
		ModelPath:   c.ModelPath,
		URL:         c.ModelURL,
		APIKey:      c.ModelAPIKey,
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay(),
		MaxDelay:    c.RetryMaxDelay(),
	}
}

// loadHolder builds the configured backend and loads it.
func loadHolder(ctx context.Context, c *cfgpkg.Global) (*classifier.Holder, error) {
	h := classifier.NewHolder(c.ModelBackend, classifierConfig(c))
	if err := h.Load(ctx); err != nil {
		return h, err
	}
	slog.Debug("model loaded", "backend", c.ModelBackend, "path", c.ModelPath, "url", c.ModelURL)
	return h, nil
}
