package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KaramelBytes/fraudlens/internal/analysis"
)

var (
	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E53935")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#E53935")).
			Padding(0, 2)
	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

// resultPath picks where the results CSV for input goes. With no output flag
// a single input writes fraud_predictions.csv in the working directory and
// several inputs write <name>_fraud_predictions.csv next to each input. An
// output ending in a separator, an existing directory, or several inputs make
// out a directory.
func resultPath(input, out string, multi bool) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	perInput := base + "_" + analysis.ResultFileName
	if out == "" {
		if multi {
			return filepath.Join(filepath.Dir(input), perInput)
		}
		return analysis.ResultFileName
	}
	isDir := multi || strings.HasSuffix(out, string(os.PathSeparator)) || strings.HasSuffix(out, "/")
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		isDir = true
	}
	if !isDir {
		return out
	}
	if multi {
		return filepath.Join(out, perInput)
	}
	return filepath.Join(out, analysis.ResultFileName)
}

// banner renders the summary box shown after each file.
func banner(rep *analysis.Report) string {
	if !rep.Summary.HasData {
		return noDataStyle.Render(analysis.NoDataMessage)
	}
	return alertStyle.Render(rep.Summary.AlertText())
}

func topTable(rep *analysis.Report) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Top %d Most Suspicious Job Listings", len(rep.Top))))
	b.WriteString("\n")
	for i, t := range rep.Top {
		desc := strings.Join(strings.Fields(t.Description), " ")
		if r := []rune(desc); len(r) > 70 {
			desc = string(r[:69]) + "…"
		}
		b.WriteString(fmt.Sprintf("%3d. %s %s\n", i+1, mutedStyle.Render(fmt.Sprintf("row %-5d %.4f", t.Row, t.FraudProbability)), desc))
	}
	return b.String()
}
