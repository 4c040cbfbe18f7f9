package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/fraudlens/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Fraudlens configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg, err := requireConfig()
		if err != nil {
			fmt.Fprintf(out, "No config loaded: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "gin_mode: %s\n", cfg.GinMode)
		if len(cfg.CORSOrigins) > 0 {
			fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(cfg.CORSOrigins, ","))
		}
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(out, "result_ttl_min: %d\n", cfg.ResultTTLMin)
		fmt.Fprintf(out, "max_results: %d\n", cfg.MaxResults)
		fmt.Fprintf(out, "model_backend: %s\n", cfg.ModelBackend)
		switch cfg.ModelBackend {
		case "remote":
			fmt.Fprintf(out, "model_url: %s\n", cfg.ModelURL)
			fmt.Fprintf(out, "model_api_key: %s\n", mask(cfg.ModelAPIKey))
			fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
			fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
			fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
			fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		default:
			fmt.Fprintf(out, "model_path: %s\n", cfg.ModelPath)
		}
		fmt.Fprintf(out, "top_n: %d\n", cfg.TopN)
		fmt.Fprintf(out, "hist_bins: %d\n", cfg.HistBins)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		if err := applySetting(cfg, key, val); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	intVal := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "listen_addr":
		c.ListenAddr = val
	case "gin_mode":
		switch val {
		case "debug", "release", "test":
			c.GinMode = val
		default:
			return fmt.Errorf("invalid gin_mode: %s (use debug, release or test)", val)
		}
	case "cors_origins":
		c.CORSOrigins = nil
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	case "max_upload_mb":
		c.MaxUploadMB, err = intVal(1)
	case "result_ttl_min":
		c.ResultTTLMin, err = intVal(1)
	case "max_results":
		c.MaxResults, err = intVal(1)
	case "model_backend":
		switch strings.ToLower(val) {
		case "local", "file":
			c.ModelBackend = "local"
		case "remote", "http":
			c.ModelBackend = "remote"
		default:
			return fmt.Errorf("invalid model_backend: %s (use local or remote)", val)
		}
	case "model_path":
		c.ModelPath = val
	case "model_url":
		c.ModelURL = val
	case "model_api_key":
		c.ModelAPIKey = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = intVal(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = intVal(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = intVal(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = intVal(0)
	case "top_n":
		c.TopN, err = intVal(1)
	case "hist_bins":
		c.HistBins, err = intVal(1)
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
