// Package chart builds the two report charts as plain data specifications and
// renders them to SVG or PNG.
package chart

import (
	"fmt"
	"math"
	"sort"
)

// Defaults for the fraud probability histogram.
const (
	DefaultBins      = 20
	HistogramTitle   = "Fraud Probability Distribution"
	HistogramXLabel  = "Fraud Probability"
	HistogramYLabel  = "Frequency"
	HistogramColor   = "#87ceeb"
	DensityColor     = "#1f77b4"
	PieTitle         = "Fraud vs Genuine Overview"
	PieStartAngle    = 140.0
	kdeGridPoints    = 200
	percentFormatPie = "%.1f%%"
)

// Label names and colours. Colours follow the label, not slice position.
var (
	labelNames  = map[int]string{0: "Genuine", 1: "Fraudulent"}
	labelColors = map[int]string{0: "#66bb6a", 1: "#ef5350"}
)

// Point is one (x, y) sample of a curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Histogram is a fixed-width histogram over [0,1] with an optional density
// curve scaled to counts.
type Histogram struct {
	Title    string    `json:"title"`
	XLabel   string    `json:"x_label"`
	YLabel   string    `json:"y_label"`
	Edges    []float64 `json:"edges"`
	Counts   []int     `json:"counts"`
	BinWidth float64   `json:"bin_width"`
	Density  []Point   `json:"density,omitempty"`
	Color    string    `json:"color"`
	N        int       `json:"n"`
}

// NewHistogram bins values into bins equal-width bins over [0,1]. The last bin
// is closed so that 1.0 is counted. Values outside the range are clamped.
func NewHistogram(values []float64, bins int) Histogram {
	if bins <= 0 {
		bins = DefaultBins
	}
	width := 1.0 / float64(bins)
	h := Histogram{
		Title:    HistogramTitle,
		XLabel:   HistogramXLabel,
		YLabel:   HistogramYLabel,
		Edges:    make([]float64, bins+1),
		Counts:   make([]int, bins),
		BinWidth: width,
		Color:    HistogramColor,
	}
	for i := range h.Edges {
		h.Edges[i] = float64(i) * width
	}
	h.Edges[bins] = 1
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		h.Counts[binIndex(v, bins)]++
		h.N++
	}
	h.Density = scaledKDE(values, h.N, width)
	return h
}

func binIndex(v float64, bins int) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return bins - 1
	}
	i := int(v * float64(bins))
	if i >= bins {
		i = bins - 1
	}
	return i
}

// MaxCount returns the tallest bar, or 0.
func (h Histogram) MaxCount() int {
	m := 0
	for _, c := range h.Counts {
		if c > m {
			m = c
		}
	}
	return m
}

// Slice is one pie wedge.
type Slice struct {
	Label      string  `json:"label"`
	Value      int     `json:"value"`
	Count      int     `json:"count"`
	Percent    float64 `json:"percent"`
	Annotation string  `json:"annotation"`
	Color      string  `json:"color"`
}

// Pie is the label distribution chart.
type Pie struct {
	Title      string  `json:"title"`
	StartAngle float64 `json:"start_angle"`
	Total      int     `json:"total"`
	Slices     []Slice `json:"slices"`
}

// NewLabelPie counts labels and returns one slice per label present, sorted by
// label value.
func NewLabelPie(labels []int) Pie {
	counts := make(map[int]int)
	for _, l := range labels {
		counts[l]++
	}
	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	p := Pie{Title: PieTitle, StartAngle: PieStartAngle, Total: len(labels), Slices: make([]Slice, 0, len(keys))}
	for _, k := range keys {
		pct := 100 * float64(counts[k]) / float64(len(labels))
		name, ok := labelNames[k]
		if !ok {
			name = fmt.Sprintf("Label %d", k)
		}
		color, ok := labelColors[k]
		if !ok {
			color = "#9e9e9e"
		}
		p.Slices = append(p.Slices, Slice{
			Label:      name,
			Value:      k,
			Count:      counts[k],
			Percent:    pct,
			Annotation: fmt.Sprintf(percentFormatPie, pct),
			Color:      color,
		})
	}
	return p
}
