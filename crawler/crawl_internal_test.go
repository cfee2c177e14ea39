package crawler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sitecrawl/internal/fetcher"
)

func TestCrawlSinglePageWithoutLinks(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com": htmlResult(`<html><head><title>Home</title></head><body>nothing here</body></html>`),
	}}
	clock := newTestClock()
	opts := stubOptions(fetch, &stubRobots{}, clock)
	opts.MaxDepth = 1
	opts.MaxPages = 5

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	require.Equal(t, fixtureBaseURL, result.StartURL)
	require.Equal(t, 1, result.PagesVisited)
	require.Len(t, result.PagesCrawled, 1)
	require.Equal(t, 0, result.TotalLinks)
	require.Empty(t, result.Errors)
	require.NotNil(t, result.Errors)

	page := result.PagesCrawled[0]
	require.Equal(t, "https://example.com", page.URL)
	require.Equal(t, "Home", page.Title)
	require.Equal(t, 0, page.Depth)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, "2024-06-01T12:34:56Z", page.Timestamp)
	require.Equal(t, []string{}, page.OutgoingLinks)

	require.Empty(t, clock.sleepDurations())
}

func TestCrawlSeedNotFound(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{}
	opts := stubOptions(fetch, &stubRobots{}, newTestClock())
	opts.URL = "https://example.com/"

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	require.Empty(t, result.PagesCrawled)
	require.Equal(t, 1, result.PagesVisited)
	require.Equal(t, map[string]string{"https://example.com": "Not Found (404)"}, result.Errors)
	require.Equal(t, "https://example.com/", result.StartURL)
}

func TestCrawlRobotsDisallowedSeedIsNeverFetched(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com": htmlResult(`<html><body>secret</body></html>`),
	}}
	robotsSource := &stubRobots{bodies: map[string]string{
		"https://example.com": "User-agent: *\nDisallow: /\n",
	}}

	result, err := Crawl(context.Background(), stubOptions(fetch, robotsSource, newTestClock()))
	require.NoError(t, err)

	require.Empty(t, result.PagesCrawled)
	require.Equal(t, map[string]string{"https://example.com": "blocked by robots.txt"}, result.Errors)
	require.Empty(t, fetch.called())
}

func TestCrawlRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	tests := []string{"", "example.com", "ftp://example.com", "  https://example.com", "HTTPS://example.com"}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			t.Parallel()

			fetch := &stubFetcher{}
			robotsSource := &stubRobots{}
			opts := stubOptions(fetch, robotsSource, newTestClock())
			opts.URL = raw

			_, err := Crawl(context.Background(), opts)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidInput))
			require.Empty(t, fetch.called())
			require.Equal(t, 0, robotsSource.callsFor(fixtureBaseURL))
		})
	}
}

func TestCrawlBreadthFirstOrderAndDepth(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com":   htmlResult(`<a href="/a">a</a><a href="/b">b</a>`),
		"https://example.com/a": htmlResult(`<a href="/c">c</a><a href="/">home</a>`),
		"https://example.com/b": htmlResult(`<a href="/a">a</a><a href="/d">d</a>`),
		"https://example.com/c": htmlResult(`<a href="/e">e</a>`),
		"https://example.com/d": htmlResult(`<title>D</title>`),
		"https://example.com/e": htmlResult(`<title>E</title>`),
	}}

	result, err := Crawl(context.Background(), stubOptions(fetch, &stubRobots{}, newTestClock()))
	require.NoError(t, err)

	urls := make([]string, 0, len(result.PagesCrawled))
	depths := make([]int, 0, len(result.PagesCrawled))
	for _, page := range result.PagesCrawled {
		urls = append(urls, page.URL)
		depths = append(depths, page.Depth)
	}

	require.Equal(t, []string{
		"https://example.com",
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/c",
		"https://example.com/d",
	}, urls)
	require.Equal(t, []int{0, 1, 1, 2, 2}, depths)
	require.NotContains(t, fetch.called(), "https://example.com/e")
	require.Equal(t, 7, result.TotalLinks)
	require.Equal(t, 5, result.PagesVisited)
}

func TestCrawlDepthZeroCrawlsSeedOnly(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com": htmlResult(`<a href="/a">a</a><a href="/b">b</a>`),
	}}
	opts := stubOptions(fetch, &stubRobots{}, newTestClock())
	opts.MaxDepth = 0

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, result.PagesCrawled, 1)
	require.Equal(t, 2, result.TotalLinks)
	require.Equal(t, []string{"https://example.com"}, fetch.called())
}

func TestCrawlPageBudget(t *testing.T) {
	t.Parallel()

	results := map[string]fetcher.Result{
		"https://example.com": htmlResult(`
			<a href="/1"></a><a href="/2"></a><a href="/3"></a><a href="/4"></a>
			<a href="/5"></a><a href="/6"></a><a href="/7"></a><a href="/8"></a>`),
	}
	for _, path := range []string{"/1", "/2", "/3", "/4", "/5", "/6", "/7", "/8"} {
		results["https://example.com"+path] = htmlResult(`<a href="/">home</a>`)
	}

	fetch := &stubFetcher{results: results}
	opts := stubOptions(fetch, &stubRobots{}, newTestClock())
	opts.MaxPages = 3

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, result.PagesCrawled, 3)
	require.Len(t, fetch.called(), 3)
}

func TestCrawlZeroPageBudgetCrawlsNothing(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{}
	opts := stubOptions(fetch, &stubRobots{}, newTestClock())
	opts.MaxPages = 0

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	require.Empty(t, result.PagesCrawled)
	require.Equal(t, 0, result.PagesVisited)
	require.Empty(t, fetch.called())
}

func TestCrawlInvariants(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{
		results: map[string]fetcher.Result{
			"https://example.com":   htmlResult(`<a href="/a"></a><a href="/b"></a><a href="/missing"></a><a href="/a#top"></a>`),
			"https://example.com/a": htmlResult(`<a href="/b"></a><a href="/"></a><a href="/boom"></a>`),
			"https://example.com/b": htmlResult(`<a href="/a"></a><a href="/missing"></a><a href="https://other.org/"></a>`),
			"https://other.org":     htmlResult(`<a href="https://example.com/"></a>`),
		},
		errs: map[string]error{
			"https://example.com/boom": errors.New("connection reset"),
		},
	}
	opts := stubOptions(fetch, &stubRobots{}, newTestClock())
	opts.MaxDepth = 3

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for _, page := range result.PagesCrawled {
		_, dup := seen[page.URL]
		require.False(t, dup, "duplicate page %s", page.URL)
		seen[page.URL] = struct{}{}

		require.LessOrEqual(t, page.Depth, opts.MaxDepth)

		_, failed := result.Errors[page.URL]
		require.False(t, failed, "page %s is both crawled and failed", page.URL)
	}

	require.LessOrEqual(t, len(result.PagesCrawled), opts.MaxPages)
	require.Equal(t, "Not Found (404)", result.Errors["https://example.com/missing"])
	require.Equal(t, "connection reset", result.Errors["https://example.com/boom"])
	require.Equal(t, len(result.PagesCrawled)+len(result.Errors), result.PagesVisited)

	counts := map[string]int{}
	for _, u := range fetch.called() {
		counts[u]++
	}
	for u, n := range counts {
		require.Equal(t, 1, n, "fetched %s more than once", u)
	}
}

func TestCrawlFetchesRobotsOncePerOrigin(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com":   htmlResult(`<a href="/a"></a><a href="/b"></a><a href="https://other.org/x"></a><a href="https://other.org/y"></a>`),
		"https://example.com/a": htmlResult(``),
		"https://example.com/b": htmlResult(``),
		"https://other.org/x":   htmlResult(``),
		"https://other.org/y":   htmlResult(``),
	}}
	robotsSource := &stubRobots{bodies: map[string]string{
		"https://example.com": "User-agent: *\nAllow: /\n",
	}}

	result, err := Crawl(context.Background(), stubOptions(fetch, robotsSource, newTestClock()))
	require.NoError(t, err)

	require.Len(t, result.PagesCrawled, 5)
	require.Equal(t, 1, robotsSource.callsFor("https://example.com"))
	require.Equal(t, 1, robotsSource.callsFor("https://other.org"))
}

func TestCrawlRobotsCacheIsPerCall(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com": htmlResult(``),
	}}
	robotsSource := &stubRobots{}
	opts := stubOptions(fetch, robotsSource, newTestClock())

	for range 2 {
		_, err := Crawl(context.Background(), opts)
		require.NoError(t, err)
	}

	require.Equal(t, 2, robotsSource.callsFor("https://example.com"))
}

func TestCrawlPacesBetweenPages(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com":   htmlResult(`<a href="/a"></a><a href="/b"></a>`),
		"https://example.com/a": htmlResult(``),
		"https://example.com/b": htmlResult(``),
	}}
	clock := newTestClock()

	result, err := Crawl(context.Background(), stubOptions(fetch, &stubRobots{}, clock))
	require.NoError(t, err)

	require.Equal(t, []time.Duration{DefaultDelay, DefaultDelay}, clock.sleepDurations())
	require.Equal(t, int64(1000), result.DurationMS)
	require.Equal(t, "2024-06-01T12:34:57Z", result.Timestamp)
}

func TestCrawlNegativeDelayDisablesPacing(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com":   htmlResult(`<a href="/a"></a>`),
		"https://example.com/a": htmlResult(``),
	}}
	clock := newTestClock()
	opts := stubOptions(fetch, &stubRobots{}, clock)
	opts.Delay = -1

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, result.PagesCrawled, 2)
	require.Empty(t, clock.sleepDurations())
	require.Equal(t, int64(0), result.DurationMS)
}

type cancelingFetcher struct {
	*stubFetcher
	cancel context.CancelFunc
}

func (f cancelingFetcher) Fetch(ctx context.Context, rawURL string) (fetcher.Result, error) {
	result, err := f.stubFetcher.Fetch(ctx, rawURL)
	f.cancel()

	return result, err
}

func TestCrawlCancellationReturnsPartialReport(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stub := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com":   htmlResult(`<a href="/a"></a><a href="/b"></a>`),
		"https://example.com/a": htmlResult(``),
	}}
	opts := stubOptions(nil, &stubRobots{}, newTestClock())
	opts.Fetcher = cancelingFetcher{stubFetcher: stub, cancel: cancel}

	result, err := Crawl(ctx, opts)
	require.NoError(t, err)

	require.Len(t, result.PagesCrawled, 1)
	require.Equal(t, []string{"https://example.com"}, stub.called())
}

func TestCrawlOverHTTPClient(t *testing.T) {
	t.Parallel()

	client := newFixtureClientWithRoutes(t, map[string]roundTripResponder{
		"/robots.txt": statusRoute(http.StatusOK, "User-agent: *\nDisallow: /private\n"),
		"/": htmlRoute(`<html><head><title>Home</title>
			<meta name="description" content="Landing page"></head>
			<body><a href="/public">p</a><a href="/private">x</a><a href="/missing">m</a>
			<a href="mailto:someone@example.com">mail</a><a href="/teapot">t</a><a href="/forbidden">f</a></body></html>`),
		"/public":    htmlRoute(`<html><head><title>Public</title></head></html>`),
		"/private":   htmlRoute(`<html><head><title>Private</title></head></html>`),
		"/teapot":    statusRoute(http.StatusTeapot, "short and stout"),
		"/forbidden": statusRoute(http.StatusForbidden, `<html><head><title>Still here</title></head></html>`),
	})

	opts := Options{
		URL:        fixtureBaseURL,
		MaxDepth:   1,
		MaxPages:   10,
		Delay:      -1,
		UserAgent:  "sitecrawl-test",
		HTTPClient: client,
		Clock:      newTestClock(),
	}

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	titles := map[string]string{}
	for _, page := range result.PagesCrawled {
		titles[page.URL] = page.Title
	}

	require.Equal(t, map[string]string{
		"https://example.com":           "Home",
		"https://example.com/public":    "Public",
		"https://example.com/forbidden": "Still here",
	}, titles)
	require.Equal(t, map[string]string{
		"https://example.com/private": "blocked by robots.txt",
		"https://example.com/missing": "Not Found (404)",
		"https://example.com/teapot":  "HTTP error 418",
	}, result.Errors)
	require.Equal(t, "Landing page", result.PagesCrawled[0].Description)
	require.Equal(t, 6, result.PagesVisited)
}

func TestCrawlCustomExtractorLinksAreNormalized(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com":   htmlResult(``),
		"https://example.com/a": htmlResult(``),
	}}
	opts := stubOptions(fetch, &stubRobots{}, newTestClock())
	opts.MaxDepth = 1
	opts.Extractor = fixedLinksExtractor{links: []string{"/a#x", "/a#y", "/a", "mailto:me@example.com"}}

	result, err := Crawl(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, result.PagesCrawled, 2)
	require.Equal(t, []string{"https://example.com/a"}, result.PagesCrawled[0].OutgoingLinks)
	require.Empty(t, result.Errors)
	require.Equal(t, []string{"https://example.com", "https://example.com/a"}, fetch.called())
}

func TestCrawlRobotsOriginIgnoresHostCase(t *testing.T) {
	t.Parallel()

	fetch := &stubFetcher{results: map[string]fetcher.Result{
		"https://example.com":   htmlResult(`<a href="https://Example.com/x"></a><a href="https://EXAMPLE.com/y"></a>`),
		"https://Example.com/x": htmlResult(``),
		"https://EXAMPLE.com/y": htmlResult(``),
	}}
	robotsSource := &stubRobots{}

	result, err := Crawl(context.Background(), stubOptions(fetch, robotsSource, newTestClock()))
	require.NoError(t, err)

	require.Len(t, result.PagesCrawled, 3)
	require.Equal(t, 1, robotsSource.callsFor("https://example.com"))
	require.Equal(t, 0, robotsSource.callsFor("https://Example.com"))
}
