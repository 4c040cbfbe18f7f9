package classifier

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testArtifact() Artifact {
	return Artifact{
		Format:     FormatTFIDFLogReg,
		Name:       "fraud-test",
		NgramRange: []int{1, 2},
		StopWords:  []string{"the"},
		Vocabulary: map[string]int{
			"free": 0, "money": 1, "engineer": 2, "senior": 3, "prize": 4, "free money": 5,
		},
		IDF:       []float64{1, 1, 1, 1, 1, 1},
		Coef:      []float64{1.5, 1.5, -2, -2, 2, 1},
		Intercept: -0.5,
		Classes:   []int{0, 1},
	}
}

func writeArtifact(t *testing.T, name string, a Artifact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var (
		b   []byte
		err error
	)
	if filepath.Ext(name) == ".json" {
		b, err = json.Marshal(a)
	} else {
		b, err = yaml.Marshal(a)
	}
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestLocalModelPredict(t *testing.T) {
	m, err := LoadModel(writeArtifact(t, "model.json", testArtifact()))
	require.NoError(t, err)

	texts := []string{"FREE money now", "Senior engineer role", "", "claim the prize"}
	labels, err := m.Predict(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 0, 1}, labels)

	probs, err := m.PredictProba(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, probs, len(texts))
	for i, p := range probs {
		assert.InDelta(t, 1.0, p[0]+p[1], 1e-12, "pair %d", i)
		assert.Equal(t, labels[i] == 1, p[1] > 0.5, "label/proba agree at %d", i)
	}

	// free, money and "free money" weigh in; l2 normalised over three terms.
	want := sigmoid(-0.5 + 4/math.Sqrt(3))
	assert.InDelta(t, want, probs[0][1], 1e-12)
	assert.InDelta(t, sigmoid(-0.5), probs[2][1], 1e-12)
}

func TestLocalModelYAMLMatchesJSON(t *testing.T) {
	a := testArtifact()
	jm, err := LoadModel(writeArtifact(t, "model.json", a))
	require.NoError(t, err)
	ym, err := LoadModel(writeArtifact(t, "model.yaml", a))
	require.NoError(t, err)

	texts := []string{"free money", "senior engineer"}
	jp, err := jm.PredictProba(context.Background(), texts)
	require.NoError(t, err)
	yp, err := ym.PredictProba(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, jp, yp)
}

func TestLocalModelSublinearAndNorms(t *testing.T) {
	a := testArtifact()
	a.SublinearTF = true
	a.Norm = "none"
	m, err := NewModel(a)
	require.NoError(t, err)
	// "free free": tf 2 -> 1+ln2, no normalisation.
	assert.InDelta(t, -0.5+1.5*(1+math.Log(2)), m.decision("free free"), 1e-12)

	a.Norm = "l1"
	a.SublinearTF = false
	m, err = NewModel(a)
	require.NoError(t, err)
	assert.InDelta(t, -0.5+(1.5+(-2))/2, m.decision("free senior"), 1e-12)
}

func TestNewModelValidation(t *testing.T) {
	cases := map[string]func(a *Artifact){
		"format":      func(a *Artifact) { a.Format = "onnx" },
		"empty vocab": func(a *Artifact) { a.Vocabulary = nil },
		"idf length":  func(a *Artifact) { a.IDF = a.IDF[:2] },
		"index range": func(a *Artifact) { a.Vocabulary["bogus"] = 99 },
		"classes":     func(a *Artifact) { a.Classes = []int{1, 2} },
		"ngram":       func(a *Artifact) { a.NgramRange = []int{2, 1} },
		"norm":        func(a *Artifact) { a.Norm = "max" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := testArtifact()
			mutate(&a)
			_, err := NewModel(a)
			assert.Error(t, err)
		})
	}
}

func TestLoadModelErrors(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadModel(bad)
	assert.ErrorContains(t, err, "parse model json")
}

func TestLocalModelDescribe(t *testing.T) {
	m, err := NewModel(testArtifact())
	require.NoError(t, err)
	info := m.Describe()
	assert.Equal(t, BackendLocal, info.Backend)
	assert.Equal(t, "6", info.Details["vocabulary"])
	assert.Equal(t, "1-2", info.Details["ngram_range"])
}

func TestLocalModelHonorsCanceledContext(t *testing.T) {
	m, err := NewModel(testArtifact())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Predict(ctx, []string{"free"})
	assert.ErrorIs(t, err, context.Canceled)
}
