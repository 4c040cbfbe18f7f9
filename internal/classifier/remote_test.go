package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModelServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemotePredictAndProba(t *testing.T) {
	var auth atomic.Value
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		var req textsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		switch r.URL.Path {
		case "/predict":
			labels := make([]int, len(req.Texts))
			for i := range labels {
				labels[i] = i % 2
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"labels": labels})
		case "/predict_proba":
			probs := make([][2]float64, len(req.Texts))
			for i := range probs {
				probs[i] = [2]float64{0.25, 0.75}
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"probabilities": probs})
		default:
			http.NotFound(w, r)
		}
	})

	c := NewRemoteClient(srv.URL+"/", "secret", 2*time.Second, 1, time.Millisecond, time.Millisecond)
	res, err := Score(context.Background(), c, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 0}, res.Labels)
	assert.Equal(t, []float64{0.75, 0.75, 0.75}, res.Probabilities)
	assert.Equal(t, "Bearer secret", auth.Load())
}

func TestRemoteEmptyInputSkipsNetwork(t *testing.T) {
	c := NewRemoteClient("http://127.0.0.1:1", "", time.Second, 1, time.Millisecond, time.Millisecond)
	labels, err := c.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, labels)
	probs, err := c.PredictProba(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, probs)
}

func TestRemoteRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "warming up"}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"labels": []int{1}})
	})
	c := NewRemoteClient(srv.URL, "", 2*time.Second, 3, time.Millisecond, 5*time.Millisecond)
	labels, err := c.Predict(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, labels)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRemoteClassifiesErrors(t *testing.T) {
	cases := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			var e *AuthError
			assert.True(t, errors.As(err, &e), "got %T", err)
		}},
		{http.StatusBadRequest, func(t *testing.T, err error) {
			var e *BadRequestError
			require.True(t, errors.As(err, &e), "got %T", err)
			assert.Equal(t, "texts must not be null", e.Message)
		}},
		{http.StatusInternalServerError, func(t *testing.T, err error) {
			var e *ServerError
			assert.True(t, errors.As(err, &e), "got %T", err)
		}},
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			var e *RateLimitError
			require.True(t, errors.As(err, &e), "got %T", err)
			assert.Equal(t, time.Second, e.RetryAfter)
		}},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := newModelServer(t, func(w http.ResponseWriter, r *http.Request) {
				if tc.status == http.StatusTooManyRequests {
					w.Header().Set("Retry-After", "1")
				}
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]any{"detail": "texts must not be null"})
			})
			c := NewRemoteClient(srv.URL, "", 2*time.Second, 1, time.Millisecond, time.Millisecond)
			_, err := c.PredictProba(context.Background(), []string{"x"})
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewRemoteClient(url, "", time.Second, 2, time.Millisecond, time.Millisecond)
	_, err := c.Predict(context.Background(), []string{"x"})
	var ue *UnreachableError
	require.True(t, errors.As(err, &ue), "got %T: %v", err, err)

	assert.Error(t, c.Ping(context.Background()))
}

func TestRemotePingAcceptsMissingHealthRoute(t *testing.T) {
	srv := newModelServer(t, http.NotFound)
	c := NewRemoteClient(srv.URL, "", time.Second, 1, time.Millisecond, time.Millisecond)
	assert.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, BackendRemote, c.Describe().Backend)
}

func TestScoreRejectsContractViolations(t *testing.T) {
	cases := map[string]fakeClassifier{
		"short labels": {labels: []int{1}, probs: [][2]float64{{0, 1}, {0, 1}}},
		"bad label":    {labels: []int{2, 0}, probs: [][2]float64{{0, 1}, {0, 1}}},
		"short proba":  {labels: []int{1, 0}, probs: [][2]float64{{0, 1}}},
		"out of range": {labels: []int{1, 0}, probs: [][2]float64{{0, 1}, {-0.5, 1.5}}},
	}
	for name, fc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Score(context.Background(), fc, []string{"a", "b"})
			var oe *OutputError
			assert.True(t, errors.As(err, &oe), "got %v", err)
		})
	}
}

type fakeClassifier struct {
	labels []int
	probs  [][2]float64
	err    error
}

func (f fakeClassifier) Predict(context.Context, []string) ([]int, error) { return f.labels, f.err }
func (f fakeClassifier) PredictProba(context.Context, []string) ([][2]float64, error) {
	return f.probs, f.err
}
