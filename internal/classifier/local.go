package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormatTFIDFLogReg identifies a TF-IDF vectorizer followed by a binary
// logistic regression, the layout exported from an sklearn pipeline.
const FormatTFIDFLogReg = "tfidf-logreg"

// Artifact is the on-disk model description (JSON or YAML).
type Artifact struct {
	Format      string         `json:"format" yaml:"format"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty"`
	Lowercase   *bool          `json:"lowercase,omitempty" yaml:"lowercase,omitempty"`
	NgramRange  []int          `json:"ngram_range,omitempty" yaml:"ngram_range,omitempty"`
	StopWords   []string       `json:"stop_words,omitempty" yaml:"stop_words,omitempty"`
	Vocabulary  map[string]int `json:"vocabulary" yaml:"vocabulary"`
	IDF         []float64      `json:"idf" yaml:"idf"`
	SublinearTF bool           `json:"sublinear_tf,omitempty" yaml:"sublinear_tf,omitempty"`
	Norm        string         `json:"norm,omitempty" yaml:"norm,omitempty"`
	Coef        []float64      `json:"coef" yaml:"coef"`
	Intercept   float64        `json:"intercept" yaml:"intercept"`
	Classes     []int          `json:"classes,omitempty" yaml:"classes,omitempty"`
}

// tokenPattern matches runs of two or more word characters, like sklearn's
// default (?u)\b\w\w+\b.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Model is an in-memory TF-IDF + logistic regression classifier. It is
// immutable after LoadModel and safe for concurrent use.
type Model struct {
	path      string
	name      string
	lowercase bool
	minN      int
	maxN      int
	stop      map[string]struct{}
	vocab     map[string]int
	idf       []float64
	sublinear bool
	norm      string
	coef      []float64
	intercept float64
}

// LoadModel reads and validates a model artifact. The decoder is chosen by
// extension: .yaml/.yml use YAML, everything else JSON.
func LoadModel(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var a Artifact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("parse model yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("parse model json: %w", err)
		}
	}
	m, err := NewModel(a)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", filepath.Base(path), err)
	}
	m.path = path
	return m, nil
}

// NewModel validates an artifact and builds a Model from it.
func NewModel(a Artifact) (*Model, error) {
	if a.Format != "" && a.Format != FormatTFIDFLogReg {
		return nil, fmt.Errorf("unsupported model format %q (want %q)", a.Format, FormatTFIDFLogReg)
	}
	if len(a.Vocabulary) == 0 {
		return nil, errors.New("vocabulary is empty")
	}
	if len(a.IDF) != len(a.Coef) {
		return nil, fmt.Errorf("idf has %d weights but coef has %d", len(a.IDF), len(a.Coef))
	}
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= len(a.Coef) {
			return nil, fmt.Errorf("vocabulary term %q has index %d outside [0,%d)", term, idx, len(a.Coef))
		}
	}
	if len(a.Classes) != 0 && (len(a.Classes) != 2 || a.Classes[0] != LabelGenuine || a.Classes[1] != LabelFraudulent) {
		return nil, fmt.Errorf("classes must be [0 1], got %v", a.Classes)
	}
	minN, maxN := 1, 1
	if len(a.NgramRange) != 0 {
		if len(a.NgramRange) != 2 || a.NgramRange[0] < 1 || a.NgramRange[1] < a.NgramRange[0] {
			return nil, fmt.Errorf("invalid ngram_range %v", a.NgramRange)
		}
		minN, maxN = a.NgramRange[0], a.NgramRange[1]
	}
	norm := strings.ToLower(a.Norm)
	switch norm {
	case "":
		norm = "l2"
	case "l1", "l2", "none":
	default:
		return nil, fmt.Errorf("unsupported norm %q", a.Norm)
	}
	m := &Model{
		name:      a.Name,
		lowercase: a.Lowercase == nil || *a.Lowercase,
		minN:      minN,
		maxN:      maxN,
		stop:      make(map[string]struct{}, len(a.StopWords)),
		vocab:     a.Vocabulary,
		idf:       a.IDF,
		sublinear: a.SublinearTF,
		norm:      norm,
		coef:      a.Coef,
		intercept: a.Intercept,
	}
	for _, w := range a.StopWords {
		m.stop[w] = struct{}{}
	}
	return m, nil
}

// Predict returns 1 where the decision function is positive.
func (m *Model) Predict(ctx context.Context, texts []string) ([]int, error) {
	out := make([]int, len(texts))
	for i, t := range texts {
		if i%256 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if m.decision(t) > 0 {
			out[i] = LabelFraudulent
		}
	}
	return out, nil
}

// PredictProba returns [P(genuine), P(fraudulent)] per text.
func (m *Model) PredictProba(ctx context.Context, texts []string) ([][2]float64, error) {
	out := make([][2]float64, len(texts))
	for i, t := range texts {
		if i%256 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p := sigmoid(m.decision(t))
		out[i] = [2]float64{1 - p, p}
	}
	return out, nil
}

// Describe reports artifact metadata.
func (m *Model) Describe() Info {
	return Info{
		Backend: BackendLocal,
		Name:    m.name,
		Details: map[string]string{
			"format":      FormatTFIDFLogReg,
			"path":        m.path,
			"vocabulary":  strconv.Itoa(len(m.vocab)),
			"ngram_range": fmt.Sprintf("%d-%d", m.minN, m.maxN),
			"norm":        m.norm,
			"intercept":   strconv.FormatFloat(m.intercept, 'g', 6, 64),
		},
	}
}

func (m *Model) decision(text string) float64 {
	vec := m.vectorize(text)
	d := m.intercept
	for idx, w := range vec {
		d += w * m.coef[idx]
	}
	return d
}

// vectorize returns the sparse TF-IDF vector of text.
func (m *Model) vectorize(text string) map[int]float64 {
	if m.lowercase {
		text = strings.ToLower(text)
	}
	tokens := tokenPattern.FindAllString(text, -1)
	if len(m.stop) > 0 {
		kept := tokens[:0]
		for _, tok := range tokens {
			if _, ok := m.stop[tok]; !ok {
				kept = append(kept, tok)
			}
		}
		tokens = kept
	}
	vec := make(map[int]float64)
	for n := m.minN; n <= m.maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := tokens[i]
			if n > 1 {
				term = strings.Join(tokens[i:i+n], " ")
			}
			if idx, ok := m.vocab[term]; ok {
				vec[idx]++
			}
		}
	}
	var norm float64
	for idx, tf := range vec {
		if m.sublinear {
			tf = 1 + math.Log(tf)
		}
		w := tf * m.idf[idx]
		vec[idx] = w
		switch m.norm {
		case "l2":
			norm += w * w
		case "l1":
			norm += math.Abs(w)
		}
	}
	if m.norm == "l2" {
		norm = math.Sqrt(norm)
	}
	if m.norm != "none" && norm > 0 {
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}
