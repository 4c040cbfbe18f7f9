package cmd

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/fraudlens/internal/analysis"
	"github.com/KaramelBytes/fraudlens/internal/chart"
	"github.com/KaramelBytes/fraudlens/internal/dataset"
	"github.com/KaramelBytes/fraudlens/internal/utils"
)

var (
	predOutput    string
	predMarkdown  bool
	predTop       int
	predBins      int
	predDelimiter string
	predCharts    string
	predQuiet     bool
)

var predictCmd = &cobra.Command{
	Use:   "predict <files...>",
	Short: "Score job listing CSV files and write fraud_predictions.csv",
	Long: `Score every listing in one or more CSV files (globs allowed) and write the
annotated results with the fraudulent and fraud_probability columns appended.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(predDelimiter)
		if err != nil {
			return err
		}
		var chartFormat chart.Format
		if predCharts != "" {
			if chartFormat, err = chart.ParseFormat(predCharts); err != nil {
				return err
			}
		}
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ctx := cmdContext(cmd)

		holder, err := loadHolder(ctx, c)
		if err != nil {
			return err
		}
		clf, err := holder.Classifier()
		if err != nil {
			return err
		}

		opt := analysis.Options{TopN: c.TopN, Bins: c.HistBins, Dataset: dataset.DefaultOptions()}
		if predTop > 0 {
			opt.TopN = predTop
		}
		if predBins > 0 {
			opt.Bins = predBins
		}
		pipeline := analysis.NewPipeline(clf, opt, slog.Default())

		out := cmd.OutOrStdout()
		multi := len(files) > 1
		var bar *progressbar.ProgressBar
		if multi && !predQuiet {
			bar = progressbar.NewOptions(len(files),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Scoring files"),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
			)
		}

		failed := 0
		for _, path := range files {
			err := predictFile(cmd, pipeline, path, delim, multi, chartFormat)
			if bar != nil {
				_ = bar.Add(1)
			}
			if err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %s\n", filepath.Base(path), strings.TrimPrefix(analysis.UserMessage(err), "❌ "))
				continue
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(files))
		}
		if multi && !predQuiet {
			fmt.Fprintf(out, "✓ Scored %d files\n", len(files))
		}
		return nil
	},
}

func predictFile(cmd *cobra.Command, p *analysis.Pipeline, path string, delim rune, multi bool, chartFormat chart.Format) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if delim == 0 {
		delim = dataset.DelimiterFor(path)
	}
	opt := p.Options()
	opt.Dataset.Delimiter = delim
	rep, err := p.WithOptions(opt).Run(cmdContext(cmd), filepath.Base(path), data)
	if err != nil {
		return err
	}

	dest := resultPath(path, predOutput, multi)
	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := utils.SafeWriteFile(dest, rep.CSV); err != nil {
		return err
	}
	if chartFormat != "" && rep.Summary.HasData {
		if err := writeCharts(rep, dest, chartFormat); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if predMarkdown {
		fmt.Fprintln(out, rep.Markdown())
		return nil
	}
	if predQuiet {
		return nil
	}
	if multi {
		fmt.Fprintf(out, "✓ %s: %d listings, %d flagged (%s%%) → %s\n",
			filepath.Base(path), rep.Summary.TotalJobs, rep.Summary.FraudCount, rep.Summary.PercentText(), dest)
		return nil
	}
	fmt.Fprintln(out, "✅ File uploaded and loaded successfully!")
	fmt.Fprintln(out, banner(rep))
	if rep.Summary.HasData {
		fmt.Fprintln(out, topTable(rep))
	}
	fmt.Fprintf(out, "✓ Wrote %s\n", dest)
	return nil
}

func writeCharts(rep *analysis.Report, dest string, f chart.Format) error {
	stem := strings.TrimSuffix(dest, filepath.Ext(dest))
	var buf bytes.Buffer
	if err := chart.RenderHistogram(&buf, rep.Histogram, f); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(stem+".histogram."+string(f), buf.Bytes()); err != nil {
		return err
	}
	buf.Reset()
	if err := chart.RenderPie(&buf, rep.Pie, f); err != nil {
		return err
	}
	return utils.SafeWriteFile(stem+".pie."+string(f), buf.Bytes())
}

func init() {
	rootCmd.AddCommand(predictCmd)
	predictCmd.Flags().StringVarP(&predOutput, "output", "o", "", "output file or directory for the results CSV")
	predictCmd.Flags().BoolVar(&predMarkdown, "markdown", false, "print a Markdown report instead of the summary")
	predictCmd.Flags().IntVar(&predTop, "top", 0, "number of most suspicious listings to rank (default from config)")
	predictCmd.Flags().IntVar(&predBins, "bins", 0, "histogram bins (default from config)")
	predictCmd.Flags().StringVar(&predDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (default ',', tab for .tsv)")
	predictCmd.Flags().StringVar(&predCharts, "charts", "", "also write histogram and pie charts next to the results: svg | png")
	predictCmd.Flags().BoolVarP(&predQuiet, "quiet", "q", false, "suppress per-file output")
}
