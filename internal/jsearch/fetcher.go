// Package jsearch talks to the JSearch job-search API and translates its
// heterogeneous records into canonical jobs.
package jsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://jsearch.p.rapidapi.com/search"
	DefaultAPIHost = "jsearch.p.rapidapi.com"
	DefaultQuery   = "Software Engineer"

	httpTimeout        = 15 * time.Second
	defaultMaxAttempts = 3
	defaultBackoff     = 500 * time.Millisecond
	maxBackoff         = 10 * time.Second
	maxErrorBody       = 512
)

var (
	// ErrSourceUnavailable covers every failure to obtain a usable response
	// from the provider: transport errors, non-2xx statuses, error envelopes,
	// malformed JSON and missing credentials.
	ErrSourceUnavailable = errors.New("job source unavailable")
	// ErrRecordInvalid marks a single raw record that cannot be normalized.
	ErrRecordInvalid = errors.New("invalid job record")
)

// RawJob is one external record exactly as the provider returned it.
type RawJob json.RawMessage

// ExternalID extracts job_id on a best-effort basis, for log attribution.
func (r RawJob) ExternalID() string {
	var probe struct {
		JobID any `json:"job_id"`
	}
	if err := json.Unmarshal(r, &probe); err != nil || probe.JobID == nil {
		return ""
	}
	return fmt.Sprint(probe.JobID)
}

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	APIKey      string
	APIHost     string
	HTTPClient  *http.Client
	MaxAttempts int
	Backoff     time.Duration
}

// Fetcher performs single-page searches against JSearch.
type Fetcher struct {
	baseURL     string
	apiKey      string
	apiHost     string
	client      *http.Client
	maxAttempts int
	backoff     time.Duration
}

// NewFetcher constructs a Fetcher with a shared HTTP client.
func NewFetcher(opts Options) *Fetcher {
	f := &Fetcher{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		apiHost:     opts.APIHost,
		client:      opts.HTTPClient,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
	if f.baseURL == "" {
		f.baseURL = DefaultBaseURL
	}
	if f.apiHost == "" {
		f.apiHost = DefaultAPIHost
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: httpTimeout}
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = defaultMaxAttempts
	}
	if f.backoff <= 0 {
		f.backoff = defaultBackoff
	}
	return f
}

// searchResponse mirrors the top-level JSearch JSON response. Records stay
// raw: their shape varies between publishers.
type searchResponse struct {
	Status string            `json:"status"`
	Error  *providerFault    `json:"error"`
	Data   []json.RawMessage `json:"data"`
}

// providerFault is the error envelope JSearch returns with HTTP 200.
type providerFault struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// providerError is a response whose status field reports a failure.
type providerError struct {
	status string
	fault  *providerFault
}

func (e *providerError) Error() string {
	if e.fault == nil || e.fault.Message == "" {
		return fmt.Sprintf("jsearch reported status %q", e.status)
	}
	return fmt.Sprintf("jsearch reported status %q: %s (code %d)", e.status, e.fault.Message, e.fault.Code)
}

// statusError is a non-2xx answer from the provider.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("jsearch returned %d: %s", e.code, e.body)
}

// Fetch runs one search for query (page 1, a single page) and returns the
// raw records. An empty result is not an error. Every failure wraps
// ErrSourceUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, query string) ([]RawJob, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("%w: JSEARCH_API_KEY not set", ErrSourceUnavailable)
	}
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := f.backoffFor(attempt - 1)
			slog.Warn("jsearch fetch failed, retrying",
				"attempt", attempt-1, "wait", wait, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, ctx.Err())
			case <-time.After(wait):
			}
		}

		jobs, err := f.fetchPage(ctx, query)
		if err == nil {
			return jobs, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, lastErr)
}

func (f *Fetcher) backoffFor(retry int) time.Duration {
	d := f.backoff * time.Duration(1<<(retry-1))
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// retryable reports whether another attempt may succeed: transport errors,
// throttling and server-side failures.
func retryable(err error) bool {
	var pe *providerError
	if errors.As(err, &pe) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (f *Fetcher) fetchPage(ctx context.Context, query string) ([]RawJob, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("num_pages", "1")

	reqURL := f.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-RapidAPI-Key", f.apiKey)
	req.Header.Set("X-RapidAPI-Host", f.apiHost)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	var apiResp searchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if apiResp.Status != "" && !strings.EqualFold(apiResp.Status, "OK") {
		return nil, &providerError{status: apiResp.Status, fault: apiResp.Error}
	}

	jobs := make([]RawJob, 0, len(apiResp.Data))
	for _, r := range apiResp.Data {
		jobs = append(jobs, RawJob(r))
	}
	return jobs, nil
}
