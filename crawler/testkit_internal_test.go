package crawler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"sitecrawl/internal/fetcher"
)

const fixtureBaseURL = "https://example.com"

var fixtureTime = time.Date(2024, time.June, 1, 12, 34, 56, 0, time.UTC)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return fn(req) }

type roundTripResponder func(*http.Request) (*http.Response, error)

// newFixtureClientWithRoutes returns an http.Client that routes by URL.Path for host "example.com".
// Unknown paths and other hosts get a 404; a "*" route handles every request.
func newFixtureClientWithRoutes(t *testing.T, routes map[string]roundTripResponder) *http.Client {
	t.Helper()

	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if h, ok := routes["*"]; ok {
				return h(req)
			}

			if !strings.EqualFold(req.URL.Host, "example.com") {
				return responseForRequest(req, http.StatusNotFound, "not found", nil), nil
			}

			path := req.URL.EscapedPath()
			if path == "" {
				path = "/"
			}

			h, ok := routes[path]
			if !ok {
				return responseForRequest(req, http.StatusNotFound, "not found", nil), nil
			}

			return h(req)
		}),
	}
}

func htmlRoute(body string) roundTripResponder {
	return func(req *http.Request) (*http.Response, error) {
		header := http.Header{"Content-Type": []string{"text/html; charset=utf-8"}}

		return responseForRequest(req, http.StatusOK, body, header), nil
	}
}

func statusRoute(status int, body string) roundTripResponder {
	return func(req *http.Request) (*http.Response, error) {
		return responseForRequest(req, status, body, nil), nil
	}
}

func responseWithBody(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}

	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func responseForRequest(req *http.Request, status int, body string, header http.Header) *http.Response {
	resp := responseWithBody(status, []byte(body), header)
	resp.Request = req

	return resp
}

// testClock advances on every Sleep and records the requested durations.
type testClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newTestClock() *testClock {
	return &testClock{now: fixtureTime}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)

	return nil
}

func (c *testClock) sleepDurations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.sleeps...)
}

// stubFetcher serves canned results keyed by URL and counts calls.
type stubFetcher struct {
	mu      sync.Mutex
	results map[string]fetcher.Result
	errs    map[string]error
	calls   []string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (fetcher.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, rawURL)

	if err, ok := f.errs[rawURL]; ok {
		return fetcher.Result{}, err
	}

	result, ok := f.results[rawURL]
	if !ok {
		return fetcher.Result{StatusCode: http.StatusNotFound, FinalURL: rawURL}, nil
	}

	if result.FinalURL == "" {
		result.FinalURL = rawURL
	}

	return result, nil
}

func (f *stubFetcher) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func htmlResult(body string) fetcher.Result {
	return fetcher.Result{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       []byte(body),
	}
}

// stubRobots serves robots.txt bodies keyed by origin; unknown origins fail.
type stubRobots struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  map[string]int
}

func (s *stubRobots) FetchRobots(_ context.Context, origin string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[origin]++

	body, ok := s.bodies[origin]
	if !ok {
		return nil, errors.New("robots.txt not found")
	}

	return []byte(body), nil
}

func (s *stubRobots) callsFor(origin string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[origin]
}

func stubOptions(fetch *stubFetcher, robotsSource *stubRobots, clock *testClock) Options {
	return Options{
		URL:          fixtureBaseURL,
		MaxDepth:     2,
		MaxPages:     10,
		Clock:        clock,
		Fetcher:      fetch,
		RobotsSource: robotsSource,
	}
}
