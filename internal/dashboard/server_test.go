package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/fraudlens/internal/analysis"
	"github.com/KaramelBytes/fraudlens/internal/classifier"
	"github.com/KaramelBytes/fraudlens/internal/dataset"
)

// keywordModel flags descriptions containing "wire".
type keywordModel struct{}

func (keywordModel) score(t string) float64 {
	if strings.Contains(strings.ToLower(t), "wire") {
		return 0.9
	}
	return 0.2
}

func (m keywordModel) Predict(_ context.Context, texts []string) ([]int, error) {
	out := make([]int, len(texts))
	for i, t := range texts {
		if m.score(t) > 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

func (m keywordModel) PredictProba(_ context.Context, texts []string) ([][2]float64, error) {
	out := make([][2]float64, len(texts))
	for i, t := range texts {
		out[i] = [2]float64{1 - m.score(t), m.score(t)}
	}
	return out, nil
}

func newTestServer(t *testing.T, holder *classifier.Holder) *Server {
	t.Helper()
	s, err := New(Config{
		GinMode:        gin.TestMode,
		MaxUploadBytes: 1 << 20,
		ResultTTL:      time.Minute,
		Analysis:       analysis.DefaultOptions(),
	}, holder, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func readyServer(t *testing.T) *Server {
	return newTestServer(t, classifier.NewReadyHolder(keywordModel{}))
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

const jobsCSV = "title,description\nAnalyst,Wire the fee first\nEngineer,Build services\nClerk,Wire transfer needed\n"

func TestIndexPage(t *testing.T) {
	s := readyServer(t)
	w := do(t, s, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Job Fraud Detection Dashboard")
	assert.Contains(t, w.Body.String(), "👆 Upload a CSV file to get started.")
}

func TestUploadRendersReport(t *testing.T) {
	s := readyServer(t)
	body, ct := multipartBody(t, "jobs.csv", jobsCSV)
	w := do(t, s, http.MethodPost, "/upload", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	html := w.Body.String()
	assert.Contains(t, html, "✅ File uploaded and loaded successfully!")
	assert.Contains(t, html, "🚨 Alert: 66.67% of job listings are likely fraudulent!")
	assert.Contains(t, html, "/histogram.svg")
	assert.Contains(t, html, "Download Results as CSV")
	assert.Equal(t, 1, s.Store().Len())
}

func TestUploadMissingColumn(t *testing.T) {
	s := readyServer(t)
	body, ct := multipartBody(t, "jobs.csv", "title,text\nA,B\n")
	w := do(t, s, http.MethodPost, "/upload", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	html := w.Body.String()
	assert.Contains(t, html, "Column &#39;description&#39; not found in uploaded CSV.")
	assert.NotContains(t, html, "Alert:")
	ok := strings.Index(html, UploadedMessage)
	require.GreaterOrEqual(t, ok, 0, "the file itself loaded")
	assert.Less(t, ok, strings.Index(html, "not found in uploaded CSV."))
	assert.Zero(t, s.Store().Len())
}

func TestUploadRejectsNonCSV(t *testing.T) {
	s := readyServer(t)
	body, ct := multipartBody(t, "photo.png", "\x89PNG")
	w := do(t, s, http.MethodPost, "/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "❌ Error:")

	// The server keeps serving afterwards.
	w = do(t, s, http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadGarbageCSV(t *testing.T) {
	s := readyServer(t)
	body, ct := multipartBody(t, "jobs.csv", "\xff\xfe\x00garbage")
	w := do(t, s, http.MethodPost, "/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "❌ Error: input is not valid UTF-8 text")
	assert.NotContains(t, w.Body.String(), UploadedMessage)
}

func TestUploadTooLarge(t *testing.T) {
	s := readyServer(t)
	big := "description\n" + strings.Repeat("x", 2<<20) + "\n"
	body, ct := multipartBody(t, "jobs.csv", big)
	w := do(t, s, http.MethodPost, "/upload", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "1 MB limit")
}

func TestPredictAPIAndDownload(t *testing.T) {
	s := readyServer(t)
	body, ct := multipartBody(t, "jobs.csv", jobsCSV)
	w := do(t, s, http.MethodPost, "/api/v1/predict", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 66.67, resp.Summary.FraudPercent)
	assert.Equal(t, 3, resp.Summary.TotalJobs)
	require.Len(t, resp.Top, 3)
	assert.Equal(t, 1, resp.Top[0].Row)
	assert.Equal(t, 3, resp.Top[1].Row)
	assert.Equal(t, 2, resp.Top[2].Row)
	assert.Equal(t, "/download/"+resp.ID, resp.DownloadURL)

	w = do(t, s, http.MethodGet, resp.DownloadURL, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "fraud_predictions.csv")

	tbl, err := dataset.Parse(w.Body.Bytes(), dataset.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"title", "description", "fraudulent", "fraud_probability"}, tbl.Header)

	w = do(t, s, http.MethodGet, "/api/v1/reports/"+resp.ID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPredictAPIRawBody(t *testing.T) {
	s := readyServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/predict?name=raw.csv", strings.NewReader("description\n"), "text/csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Summary.HasData)
	assert.Equal(t, analysis.NoDataMessage, resp.Alert)
	assert.Equal(t, "raw.csv", resp.Name)

	// No slices to draw for an empty upload.
	w = do(t, s, http.MethodGet, resp.Charts["pie"], nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPredictAPIValidationError(t *testing.T) {
	s := readyServer(t)
	body, ct := multipartBody(t, "jobs.csv", "title\nA\n")
	w := do(t, s, http.MethodPost, "/api/v1/predict", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp.Kind)
	assert.Equal(t, "❌ Column 'description' not found in uploaded CSV.", resp.Message)
}

func TestCharts(t *testing.T) {
	s := readyServer(t)
	body, ct := multipartBody(t, "jobs.csv", jobsCSV)
	w := do(t, s, http.MethodPost, "/api/v1/predict", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	var resp PredictResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	for _, name := range []string{"histogram", "pie"} {
		w = do(t, s, http.MethodGet, resp.Charts[name], nil, "")
		require.Equal(t, http.StatusOK, w.Code, name)
		assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "<svg")
	}

	w = do(t, s, http.MethodGet, "/charts/"+resp.ID+"/radar.svg", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s, http.MethodGet, "/charts/unknown/pie.svg", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadUnknown(t *testing.T) {
	s := readyServer(t)
	w := do(t, s, http.MethodGet, "/download/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := readyServer(t)
	w := do(t, s, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"status": "OK", "service": "fraudlens", "model": "ready"}, body)
}

func TestNotReadyModel(t *testing.T) {
	s := newTestServer(t, classifier.NewHolder(classifier.BackendLocal, classifier.Config{}))

	w := do(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_loaded")

	body, ct := multipartBody(t, "jobs.csv", jobsCSV)
	w = do(t, s, http.MethodPost, "/api/v1/predict", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Kind)
}

func TestResultStoreEvictsOldest(t *testing.T) {
	st := NewResultStore(time.Minute, 2)
	st.Put(&analysis.Report{ID: "a"})
	st.Put(&analysis.Report{ID: "b"})
	st.Put(&analysis.Report{ID: "a"})
	assert.Equal(t, 2, st.Len(), "re-put does not grow the store")

	st.Put(&analysis.Report{ID: "c"})
	assert.Equal(t, 2, st.Len())
	_, ok := st.Get("a")
	assert.False(t, ok, "oldest entry evicted")
	_, ok = st.Get("b")
	assert.True(t, ok)
	_, ok = st.Get("c")
	assert.True(t, ok)
}

func TestResultStoreExpiry(t *testing.T) {
	st := NewResultStore(time.Minute, 0)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	st.Put(&analysis.Report{ID: "a"})
	_, ok := st.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = st.Get("a")
	assert.False(t, ok)
	assert.Zero(t, st.Len())
}
