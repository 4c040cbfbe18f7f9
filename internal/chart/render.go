package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an image output format.
type Format string

const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("chart has no data")

// Default canvas size in pixels.
const (
	Width  = 640
	Height = 400
)

// ParseFormat accepts "svg" or "png" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case SVG:
		return SVG, nil
	case PNG:
		return PNG, nil
	}
	return "", fmt.Errorf("unsupported chart format %q", s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) provider() gochart.RendererProvider {
	if f == PNG {
		return gochart.PNG
	}
	return gochart.SVG
}

// RenderHistogram draws the bars as a filled step outline over [0,1] and the
// density overlay as a line. An all-zero histogram still renders empty axes.
func RenderHistogram(w io.Writer, h Histogram, f Format) error {
	if len(h.Counts) == 0 {
		return ErrNoData
	}
	fill := hexColor(h.Color)
	bars := gochart.ContinuousSeries{
		Name: "Listings",
		Style: gochart.Style{
			StrokeColor: fill.WithAlpha(255),
			StrokeWidth: 1,
			FillColor:   fill.WithAlpha(200),
		},
	}
	for i, c := range h.Counts {
		lo, hi, y := h.Edges[i], h.Edges[i+1], float64(c)
		bars.XValues = append(bars.XValues, lo, lo, hi, hi)
		bars.YValues = append(bars.YValues, 0, y, y, 0)
	}
	series := []gochart.Series{bars}

	yMax := float64(h.MaxCount())
	if len(h.Density) > 0 {
		kde := gochart.ContinuousSeries{
			Name:  "Density",
			Style: gochart.Style{StrokeColor: hexColor(DensityColor), StrokeWidth: 2},
		}
		for _, p := range h.Density {
			kde.XValues = append(kde.XValues, p.X)
			kde.YValues = append(kde.YValues, p.Y)
			if p.Y > yMax {
				yMax = p.Y
			}
		}
		series = append(series, kde)
	}
	if yMax < 1 {
		yMax = 1
	}

	ch := gochart.Chart{
		Title:      h.Title,
		Width:      Width,
		Height:     Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:  h.XLabel,
			Range: &gochart.ContinuousRange{Min: 0, Max: 1},
		},
		YAxis: gochart.YAxis{
			Name:  h.YLabel,
			Range: &gochart.ContinuousRange{Min: 0, Max: yMax * 1.05},
		},
		Series: series,
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	if err := ch.Render(f.provider(), w); err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}
	return nil
}

// RenderPie draws one wedge per slice. go-chart always starts at 0 degrees, so
// StartAngle is kept in the Pie data but not applied to the image.
func RenderPie(w io.Writer, p Pie, f Format) error {
	if p.Total == 0 || len(p.Slices) == 0 {
		return ErrNoData
	}
	values := make([]gochart.Value, 0, len(p.Slices))
	palette := slicePalette{ColorPalette: gochart.AlternateColorPalette}
	for _, s := range p.Slices {
		palette.colors = append(palette.colors, hexColor(s.Color))
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s %s", s.Label, s.Annotation),
			Value: float64(s.Count),
			Style: gochart.Style{
				FillColor:   hexColor(s.Color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
				FontColor:   drawing.ColorBlack,
			},
		})
	}
	pie := gochart.PieChart{
		Title:        p.Title,
		Width:        Height,
		Height:       Height,
		Values:       values,
		ColorPalette: palette,
	}
	if err := pie.Render(f.provider(), w); err != nil {
		return fmt.Errorf("render pie: %w", err)
	}
	return nil
}

// slicePalette hands out the slice colours as series colours. go-chart draws a
// single-value pie from the palette alone and ignores the value style.
type slicePalette struct {
	gochart.ColorPalette
	colors []drawing.Color
}

func (p slicePalette) GetSeriesColor(index int) drawing.Color {
	if index >= 0 && index < len(p.colors) {
		return p.colors[index]
	}
	return p.ColorPalette.GetSeriesColor(index)
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
