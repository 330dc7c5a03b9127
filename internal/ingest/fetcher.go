package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"
)

// Retry policy for transient fetch failures.
const (
	fetchMaxAttempts   = 3
	fetchBaseDelay     = 1 * time.Second
	fetchBackoffFactor = 2
)

// Default timeout budgets per source kind.
const (
	ConnectTimeout  = 10 * time.Second
	HTMLTotalBudget = 30 * time.Second
	RSSTotalBudget  = 10 * time.Second
)

// ErrFetchCanceled marks a fetch aborted by its context rather than a
// transport failure. Canceled fetches are never retried.
var ErrFetchCanceled = errors.New("fetch canceled")

// FetchResult carries one HTTP response back to the extractor.
type FetchResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
	URL         string
}

// FetchOptions tunes a single fetch.
type FetchOptions struct {
	Timeout time.Duration
	Headers map[string]string
}

// Fetcher fetches one URL. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error)
}

// httpFetcher issues requests through one shared pooled transport.
type httpFetcher struct {
	client *http.Client
	logger *logger.Logger
}

// NewFetcher creates the process-wide HTTP fetcher. The transport keeps up to
// 100 pooled connections, 30 per host, with 30s keep-alive. A non-positive
// connectTimeout falls back to ConnectTimeout.
func NewFetcher(log *logger.Logger, connectTimeout time.Duration) Fetcher {
	if connectTimeout <= 0 {
		connectTimeout = ConnectTimeout
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 30,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: connectTimeout,
	}
	return &httpFetcher{
		client: &http.Client{Transport: transport},
		logger: log,
	}
}

// Fetch performs an HTTP GET with retries and exponential backoff.
// Non-2xx responses and transport failures become NetworkError after the
// retry budget; context cancellation yields ErrFetchCanceled immediately.
func (f *httpFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*FetchResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = HTMLTotalBudget
	}

	var lastErr error
	delay := fetchBaseDelay

	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		result, err := f.fetchOnce(ctx, url, timeout, opts.Headers)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrFetchCanceled) {
			return nil, err
		}
		lastErr = err

		f.logger.Warn("Fetch attempt failed",
			logger.StringField("url", url),
			logger.IntField("attempt", attempt),
			logger.ErrorField(err),
		)

		if attempt == fetchMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrFetchCanceled, ctx.Err())
		case <-time.After(delay):
		}
		delay *= fetchBackoffFactor
	}

	return nil, entity.NewAppError(entity.KindNetwork, "fetch", url, lastErr)
}

func (f *httpFetcher) fetchOnce(ctx context.Context, url string, timeout time.Duration, headers map[string]string) (*FetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchCanceled, ctx.Err())
		}
		return nil, fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchCanceled, ctx.Err())
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	return &FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		URL:         url,
	}, nil
}
