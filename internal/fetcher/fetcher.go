package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"sitecrawl/internal/limiter"
)

const (
	baseRetryDelay      = 100 * time.Millisecond
	maxRetryDelay       = 2 * time.Second
	defaultMaxRedirects = 10
	defaultMaxBodyBytes = 5 * 1024 * 1024
)

var errInvalidRequest = errors.New("invalid request")

// Result contains the HTTP response data.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string
}

// Options configures a Fetcher.
// An empty UserAgent rotates through browser user agents.
// Retries is the number of retries after the first attempt.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	MaxRedirects int
	Retries      int
	RetryDelay   time.Duration
	MaxBodyBytes int64
	Pacer        *limiter.Pacer
	Clock        limiter.Timer
}

// Fetcher performs GET requests with retries for temporary failures.
// Any HTTP status is returned as a Result; only transport-level failures are errors.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	userAgent    string
	pacer        *limiter.Pacer
	retries      int
	retryDelay   time.Duration
	maxBodyBytes int64
	clock        limiter.Timer
}

// New creates a Fetcher. The client is copied so the redirect limit does not leak
// into the caller's client.
func New(client *http.Client, opts Options) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}

	if opts.RetryDelay <= 0 {
		opts.RetryDelay = baseRetryDelay
	}

	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}

	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	if opts.Retries < 0 {
		opts.Retries = 0
	}

	if opts.Clock == nil {
		opts.Clock = limiter.NewClock()
	}

	return &Fetcher{
		client:       withRedirectLimit(client, opts.MaxRedirects),
		timeout:      opts.Timeout,
		userAgent:    opts.UserAgent,
		pacer:        opts.Pacer,
		retries:      opts.Retries,
		retryDelay:   opts.RetryDelay,
		maxBodyBytes: opts.MaxBodyBytes,
		clock:        opts.Clock,
	}
}

func withRedirectLimit(client *http.Client, maxRedirects int) *http.Client {
	limited := *client
	limited.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}

		return nil
	}

	return &limited
}

// Fetch performs a GET request, retrying network errors, 429 and 5xx.
// It returns the result from the last attempt.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	attempts := f.retries + 1
	var lastResult Result
	var lastErr error

	for attempt := range attempts {
		result, err := f.fetchOnce(ctx, rawURL)
		lastResult = result
		lastErr = err

		if !isRetryable(result.StatusCode, err) {
			return result, err
		}

		if attempt == attempts-1 {
			break
		}

		if ctx.Err() != nil {
			return result, coalesceError(err, ctx.Err())
		}

		if sleepErr := f.clock.Sleep(ctx, f.retryDelayFor(attempt+1)); sleepErr != nil {
			return result, coalesceError(err, sleepErr)
		}
	}

	return lastResult, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (Result, error) {
	if err := f.pacer.Wait(ctx); err != nil {
		return Result{}, err
	}

	return f.doRequest(ctx, rawURL)
}

func (f *Fetcher) doRequest(ctx context.Context, rawURL string) (Result, error) {
	requestCtx := ctx
	var cancel context.CancelFunc
	if f.timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, f.timeout)
	}
	if cancel != nil {
		defer cancel()
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	if parsedURL.Path == "" {
		parsedURL.Path = "/"
	}

	request, err := http.NewRequestWithContext(requestCtx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	setBrowserHeaders(request.Header, f.userAgent)

	response, err := f.client.Do(request)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		_ = response.Body.Close()
	}()

	result := Result{
		StatusCode: response.StatusCode,
		Header:     response.Header,
		FinalURL:   parsedURL.String(),
	}

	if response.Request != nil && response.Request.URL != nil {
		result.FinalURL = response.Request.URL.String()
	}

	body, err := readBody(response, f.maxBodyBytes)
	if err != nil {
		return result, err
	}

	result.Body = body

	return result, nil
}

func isRetryable(statusCode int, err error) bool {
	if err != nil {
		return isRetryableError(err)
	}

	if statusCode == http.StatusTooManyRequests {
		return true
	}

	return statusCode >= http.StatusInternalServerError
}

func isRetryableError(err error) bool {
	if isContextCanceled(err) {
		return false
	}

	if errors.Is(err, errInvalidRequest) || errors.Is(err, errBodyTooLarge) {
		return false
	}

	if isEOFLike(err) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return isRetryableURLError(urlErr)
	}

	// Non-url errors are retryable only if they look like a temporary transport/network issue.
	return isNetError(err)
}

func isRetryableURLError(urlErr *url.Error) bool {
	if urlErr == nil {
		return false
	}

	err := urlErr.Err
	for err != nil {
		if isContextCanceled(err) {
			return false
		}

		if isEOFLike(err) {
			return true
		}

		var inner *url.Error
		if errors.As(err, &inner) {
			err = inner.Err

			continue
		}

		return isNetError(err)
	}

	return false
}

func isContextCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func isNetError(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr)
}

func isEOFLike(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func coalesceError(primary, fallback error) error {
	if primary != nil {
		return primary
	}

	return fallback
}

func (f *Fetcher) retryDelayFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := f.retryDelay
	for i := 1; i < attempt; i++ {
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}

		delay *= 2
	}

	if delay > maxRetryDelay {
		return maxRetryDelay
	}

	return delay
}
