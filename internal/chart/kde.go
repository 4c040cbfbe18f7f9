package chart

import "math"

// ScottBandwidth returns the Gaussian kernel bandwidth by Scott's rule,
// std(ddof=1) * n^(-1/5). It returns 0 when it is undefined: fewer than two
// samples or zero variance.
func ScottBandwidth(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return std * math.Pow(float64(n), -0.2)
}

// scaledKDE evaluates a Gaussian KDE on an even grid over [0,1] and scales the
// density to histogram counts (density * n * binWidth). Returns nil when the
// bandwidth is undefined.
func scaledKDE(values []float64, n int, binWidth float64) []Point {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	bw := ScottBandwidth(clean)
	if bw == 0 {
		return nil
	}
	norm := 1 / (float64(len(clean)) * bw * math.Sqrt(2*math.Pi))
	scale := float64(n) * binWidth
	out := make([]Point, kdeGridPoints)
	for i := range out {
		x := float64(i) / float64(kdeGridPoints-1)
		var sum float64
		for _, v := range clean {
			z := (x - v) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = Point{X: x, Y: sum * norm * scale}
	}
	return out
}
