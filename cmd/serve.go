package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fraudlens/internal/analysis"
	"github.com/KaramelBytes/fraudlens/internal/classifier"
	"github.com/KaramelBytes/fraudlens/internal/dashboard"
	"github.com/KaramelBytes/fraudlens/internal/dataset"
)

var (
	serveAddr       string
	serveBackground bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload dashboard and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") && serveAddr != "" {
			c.ListenAddr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmdContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		holder := classifier.NewHolder(c.ModelBackend, classifierConfig(c))
		load := func() error {
			if err := holder.Load(ctx); err != nil {
				slog.Error("model load failed", "backend", c.ModelBackend, "error", err)
				return err
			}
			slog.Info("model ready", "backend", c.ModelBackend)
			return nil
		}
		if serveBackground {
			go func() { _ = load() }()
		} else if err := load(); err != nil {
			return err
		}

		srv, err := dashboard.New(dashboard.Config{
			Addr:           c.ListenAddr,
			GinMode:        c.GinMode,
			CORSOrigins:    c.CORSOrigins,
			MaxUploadBytes: c.MaxUploadBytes(),
			ResultTTL:      c.ResultTTL(),
			MaxResults:     c.MaxResults,
			Analysis: analysis.Options{
				TopN:    c.TopN,
				Bins:    c.HistBins,
				Dataset: dataset.DefaultOptions(),
			},
		}, holder, slog.Default())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard listening on %s\n", c.ListenAddr)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().BoolVar(&serveBackground, "background-load", false, "start serving before the model is loaded (health reports 503 until ready)")
}

// cmdContext returns the command context or Background.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
