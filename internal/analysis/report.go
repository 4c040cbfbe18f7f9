package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// NoDataMessage is shown instead of the alert when the upload has no rows.
const NoDataMessage = "No job listings found in the uploaded file."

// Summary holds the headline counts of a report.
type Summary struct {
	FraudCount   int     `json:"fraud_count"`
	TotalJobs    int     `json:"total_jobs"`
	FraudPercent float64 `json:"fraud_percent"`
	HasData      bool    `json:"has_data"`
}

// Summarize counts fraudulent labels. FraudPercent is rounded to two decimals,
// halves to even, and left at 0 with HasData false when there are no rows.
func Summarize(labels []int) Summary {
	s := Summary{TotalJobs: len(labels)}
	for _, l := range labels {
		if l == 1 {
			s.FraudCount++
		}
	}
	if s.TotalJobs == 0 {
		return s
	}
	s.HasData = true
	s.FraudPercent = math.RoundToEven(float64(s.FraudCount)/float64(s.TotalJobs)*100*100) / 100
	return s
}

// PercentText formats FraudPercent the way it is shown in the alert: shortest
// form with at least one decimal ("66.67", "50.0").
func (s Summary) PercentText() string {
	v := strconv.FormatFloat(s.FraudPercent, 'f', -1, 64)
	if !strings.Contains(v, ".") {
		v += ".0"
	}
	return v
}

// AlertText is the banner line for the summary.
func (s Summary) AlertText() string {
	if !s.HasData {
		return NoDataMessage
	}
	return fmt.Sprintf("🚨 Alert: %s%% of job listings are likely fraudulent!", s.PercentText())
}

// TopListing is one row of the suspicious listing ranking.
type TopListing struct {
	// Row is the 1-based data row number in the upload.
	Row              int     `json:"row"`
	Description      string  `json:"description"`
	FraudProbability float64 `json:"fraud_probability"`
}

// TopSuspicious returns at most n listings ordered by probability descending.
// Ties keep upload order.
func TopSuspicious(descriptions []string, probs []float64, n int) []TopListing {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]TopListing, n)
	for k := 0; k < n; k++ {
		i := idx[k]
		out[k] = TopListing{Row: i + 1, Description: descriptions[i], FraudProbability: probs[i]}
	}
	return out
}

// Markdown renders the report for terminals, files and agent tools.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Job Fraud Report\n\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Listings: %d\n", r.Summary.TotalJobs))
	if r.FilledCells > 0 {
		b.WriteString(fmt.Sprintf("Missing cells filled: %d\n", r.FilledCells))
	}
	b.WriteString("\n")
	if !r.Summary.HasData {
		b.WriteString(NoDataMessage + "\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("**%s** (%d of %d)\n\n", r.Summary.AlertText(), r.Summary.FraudCount, r.Summary.TotalJobs))

	b.WriteString("## Fraud vs Genuine\n\n")
	b.WriteString("| Label | Count | Share |\n|---|---:|---:|\n")
	for _, s := range r.Pie.Slices {
		b.WriteString(fmt.Sprintf("| %s | %d | %s |\n", s.Label, s.Count, s.Annotation))
	}

	b.WriteString("\n## Fraud Probability Distribution\n\n")
	b.WriteString("| Range | Count |\n|---|---:|\n")
	h := r.Histogram
	for i, c := range h.Counts {
		if c == 0 {
			continue
		}
		closer := ")"
		if i == len(h.Counts)-1 {
			closer = "]"
		}
		b.WriteString(fmt.Sprintf("| [%.2f, %.2f%s | %d |\n", h.Edges[i], h.Edges[i+1], closer, c))
	}

	b.WriteString(fmt.Sprintf("\n## Top %d Most Suspicious Job Listings\n\n", len(r.Top)))
	b.WriteString("| # | Row | Probability | Description |\n|---:|---:|---:|---|\n")
	for i, t := range r.Top {
		b.WriteString(fmt.Sprintf("| %d | %d | %.4f | %s |\n", i+1, t.Row, t.FraudProbability, cellText(t.Description, 120)))
	}
	return b.String()
}

func cellText(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, "|", "/")
	if r := []rune(s); len(r) > max {
		s = string(r[:max-1]) + "…"
	}
	return s
}
