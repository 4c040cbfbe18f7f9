// Package analysis runs one upload through the fraud report pipeline: parse,
// fill missing cells, validate, classify, annotate a copy, aggregate, build
// chart specs, rank the most suspicious rows, and re-serialise the results.
package analysis

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/fraudlens/internal/chart"
	"github.com/KaramelBytes/fraudlens/internal/classifier"
	"github.com/KaramelBytes/fraudlens/internal/dataset"
)

// Column and file names of the results.
const (
	DescriptionColumn = "description"
	LabelColumn       = "fraudulent"
	ProbabilityColumn = "fraud_probability"
	ResultFileName    = "fraud_predictions.csv"
	DefaultTopN       = 10
)

// Options controls a Pipeline.
type Options struct {
	// TopN is the size of the suspicious listing ranking. 0 means DefaultTopN.
	TopN int
	// Bins is the histogram bin count. 0 means chart.DefaultBins.
	Bins int
	// Dataset controls CSV decoding.
	Dataset dataset.Options
}

// DefaultOptions returns the dashboard defaults.
func DefaultOptions() Options {
	return Options{TopN: DefaultTopN, Bins: chart.DefaultBins, Dataset: dataset.DefaultOptions()}
}

// Report is the complete, immutable output of one pipeline run.
type Report struct {
	ID          string             `json:"id"`
	Name        string             `json:"name,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	Summary     Summary            `json:"summary"`
	Histogram   chart.Histogram    `json:"histogram"`
	Pie         chart.Pie          `json:"pie"`
	Top         []TopListing       `json:"top"`
	FilledCells int                `json:"filled_cells"`
	Model       *classifier.Info   `json:"model,omitempty"`
	Table       *dataset.Table     `json:"-"`
	CSV         []byte             `json:"-"`
	Timings     map[string]float64 `json:"-"`
}

// Pipeline scores uploads with a shared classifier. It holds no per-upload
// state and may be used concurrently.
type Pipeline struct {
	clf    classifier.Classifier
	opt    Options
	logger *slog.Logger
}

// NewPipeline returns a pipeline over clf. A nil logger uses slog.Default().
func NewPipeline(clf classifier.Classifier, opt Options, logger *slog.Logger) *Pipeline {
	if opt.TopN <= 0 {
		opt.TopN = DefaultTopN
	}
	if opt.Bins <= 0 {
		opt.Bins = chart.DefaultBins
	}
	if opt.Dataset.Delimiter == 0 {
		opt.Dataset.Delimiter = ','
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{clf: clf, opt: opt, logger: logger}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opt }

// WithOptions returns a pipeline sharing the classifier and logger of p.
func (p *Pipeline) WithOptions(opt Options) *Pipeline {
	return NewPipeline(p.clf, opt, p.logger)
}

// Run processes one upload. Any failure aborts the cycle and is returned as
// *Error; no partial report is produced.
func (p *Pipeline) Run(ctx context.Context, name string, data []byte) (*Report, error) {
	start := time.Now()
	log := p.logger.With("file", name, "bytes", len(data))

	tbl, err := dataset.Parse(data, p.opt.Dataset)
	if err != nil {
		log.Warn("parse upload failed", "error", err)
		return nil, wrap(KindParse, "parse", err)
	}
	filled := tbl.FillMissing()

	if !tbl.HasColumn(DescriptionColumn) {
		log.Warn("upload missing required column", "column", DescriptionColumn, "columns", tbl.Header)
		return nil, wrap(KindValidation, "validate", &MissingColumnError{Column: DescriptionColumn})
	}
	texts, err := tbl.Column(DescriptionColumn)
	if err != nil {
		return nil, wrap(KindValidation, "validate", err)
	}

	parsed := time.Now()
	res, err := classifier.Score(ctx, p.clf, texts)
	if err != nil {
		log.Error("classification failed", "rows", len(texts), "error", err)
		return nil, wrap(KindModel, "classify", err)
	}
	scored := time.Now()

	out := tbl.Clone()
	if err := annotate(out, res); err != nil {
		return nil, wrap(KindModel, "annotate", err)
	}

	rep := &Report{
		ID:          uuid.NewString(),
		Name:        name,
		CreatedAt:   start.UTC(),
		Summary:     Summarize(res.Labels),
		Histogram:   chart.NewHistogram(res.Probabilities, p.opt.Bins),
		Pie:         chart.NewLabelPie(res.Labels),
		Top:         TopSuspicious(texts, res.Probabilities, p.opt.TopN),
		FilledCells: filled,
		Table:       out,
	}
	if d, ok := p.clf.(classifier.Describer); ok {
		info := d.Describe()
		rep.Model = &info
	}

	rep.CSV, err = out.Bytes()
	if err != nil {
		return nil, wrap(KindSerialization, "encode csv", err)
	}
	rep.Timings = map[string]float64{
		"parse_ms":    ms(parsed.Sub(start)),
		"classify_ms": ms(scored.Sub(parsed)),
		"total_ms":    ms(time.Since(start)),
	}
	log.Info("report ready",
		"id", rep.ID,
		"rows", rep.Summary.TotalJobs,
		"fraudulent", rep.Summary.FraudCount,
		"filled_cells", filled,
		"classify_ms", rep.Timings["classify_ms"],
		"total_ms", rep.Timings["total_ms"],
	)
	return rep, nil
}

func annotate(t *dataset.Table, res *classifier.Result) error {
	labels := make([]string, len(res.Labels))
	for i, l := range res.Labels {
		labels[i] = strconv.Itoa(l)
	}
	probs := make([]string, len(res.Probabilities))
	for i, v := range res.Probabilities {
		probs[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if err := t.SetColumn(LabelColumn, labels); err != nil {
		return err
	}
	return t.SetColumn(ProbabilityColumn, probs)
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
