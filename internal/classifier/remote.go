package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RemoteClient talks to an HTTP model server exposing /predict and /predict_proba.
type RemoteClient struct {
	httpClient       *http.Client
	apiKey           string
	baseURL          string
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
}

type textsRequest struct {
	Texts []string `json:"texts"`
}

type predictResponse struct {
	Labels []int `json:"labels"`
}

type probaResponse struct {
	Probabilities [][2]float64 `json:"probabilities"`
}

// NewRemoteClient returns a client with the given timeout and retry/backoff behavior.
func NewRemoteClient(baseURL, apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *RemoteClient {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 4 * time.Second
	}
	return &RemoteClient{
		httpClient:       &http.Client{Timeout: httpTimeout},
		apiKey:           apiKey,
		baseURL:          strings.TrimRight(baseURL, "/"),
		retryMaxAttempts: retryMax,
		retryBaseDelay:   baseDelay,
		retryMaxDelay:    maxDelay,
	}
}

// Predict posts texts to {base}/predict.
func (c *RemoteClient) Predict(ctx context.Context, texts []string) ([]int, error) {
	if len(texts) == 0 {
		return []int{}, nil
	}
	var out predictResponse
	if err := c.post(ctx, "/predict", textsRequest{Texts: texts}, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

// PredictProba posts texts to {base}/predict_proba.
func (c *RemoteClient) PredictProba(ctx context.Context, texts []string) ([][2]float64, error) {
	if len(texts) == 0 {
		return [][2]float64{}, nil
	}
	var out probaResponse
	if err := c.post(ctx, "/predict_proba", textsRequest{Texts: texts}, &out); err != nil {
		return nil, err
	}
	return out.Probabilities, nil
}

// Ping checks that the server answers at all. Any HTTP response below 500,
// including 404 from servers without a health route, counts as reachable.
func (c *RemoteClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UnreachableError{Host: c.host(), Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode >= 500 {
		return &ServerError{APIError: &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp)}}
	}
	return nil
}

// Describe reports the endpoint in use.
func (c *RemoteClient) Describe() Info {
	return Info{
		Backend: BackendRemote,
		Name:    c.host(),
		Details: map[string]string{
			"url":          c.baseURL,
			"retry_max":    strconv.Itoa(c.retryMaxAttempts),
			"http_timeout": c.httpClient.Timeout.String(),
		},
	}
}

func (c *RemoteClient) host() string {
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return c.baseURL
}

func (c *RemoteClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

// post sends payload as JSON and decodes a 2xx body into out, retrying on
// 429/5xx and transient network errors with capped exponential backoff.
func (c *RemoteClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + path
	backoff := c.retryBaseDelay

	var lastErr error
	for attempt := 1; attempt <= c.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		c.setHeaders(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = &UnreachableError{Host: c.host(), Err: err}
			if isRetryableNetErr(err) && attempt < c.retryMaxAttempts {
				c.sleep(ctx, c.capped(withJitter(backoff)))
				backoff *= 2
				continue
			}
			return lastErr
		}

		retry, wait, err := c.handle(resp, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry || attempt == c.retryMaxAttempts {
			break
		}
		if wait <= 0 {
			wait = c.capped(withJitter(backoff))
			backoff *= 2
		}
		c.sleep(ctx, wait)
	}
	return lastErr
}

// handle consumes resp. It reports whether the failure is retryable and how long
// the server asked to wait.
func (c *RemoteClient) handle(resp *http.Response, out any) (bool, time.Duration, error) {
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, 0, fmt.Errorf("decode response: %w", err)
		}
		return false, 0, nil
	}
	apiErr := decodeAPIError(resp)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var wait time.Duration
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := parseRetryAfterSeconds(ra); err == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
		}
		return true, wait, classifyAPIError(apiErr, resp)
	}
	return false, 0, classifyAPIError(apiErr, resp)
}

func (c *RemoteClient) capped(d time.Duration) time.Duration {
	if c.retryMaxDelay > 0 && d > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return d
}

func (c *RemoteClient) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	apiErr := &APIError{StatusCode: resp.StatusCode, Raw: raw, RequestID: extractRequestID(resp)}
	src := raw
	if v, ok := raw["error"].(map[string]any); ok {
		src = v
	} else if s, ok := raw["error"].(string); ok {
		apiErr.Message = s
	}
	if msg, ok := src["message"].(string); ok {
		apiErr.Message = msg
	}
	if msg, ok := src["detail"].(string); ok && apiErr.Message == "" {
		apiErr.Message = msg
	}
	if code, ok := src["code"].(string); ok {
		apiErr.Code = code
	}
	if apiErr.Message == "" && raw == nil {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// classifyAPIError maps a generic APIError to a typed error.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := parseRetryAfterSeconds(v); err == nil && secs > 0 {
				ra = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusBadRequest || sc == http.StatusUnprocessableEntity:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func isRetryableNetErr(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// parseRetryAfterSeconds interprets a Retry-After header value as seconds or HTTP date.
func parseRetryAfterSeconds(v string) (int, error) {
	if s, err := strconv.Atoi(v); err == nil {
		return s, nil
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return int(d.Seconds()), nil
	}
	return 0, fmt.Errorf("invalid Retry-After: %q", v)
}

// extractRequestID pulls a best-effort request ID from common headers.
func extractRequestID(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	for _, k := range []string{"X-Request-Id", "X-Amzn-Requestid", "X-Correlation-Id"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// withJitter returns a backoff duration with +/- 20% jitter applied.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 500 * time.Millisecond
	}
	f := 0.8 + rand.Float64()*0.4
	out := time.Duration(float64(d) * f)
	if out <= 0 {
		return d
	}
	return out
}
