package crawler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitecrawl/internal/fetcher"
	"sitecrawl/internal/limiter"
	"sitecrawl/internal/parser"
	"sitecrawl/internal/robots"
	"sitecrawl/internal/urlutil"
)

// Crawl performs a breadth-first crawl from opts.URL and returns the report.
// Only malformed input is an error; per-page failures are recorded in the report.
func Crawl(ctx context.Context, opts Options) (CrawlResult, error) {
	if err := validateURL(opts.URL); err != nil {
		return CrawlResult{}, err
	}

	eng := newEngine(opts)
	state := eng.run(ctx, opts.URL, nil)

	return CrawlResult{
		StartURL:     opts.URL,
		PagesVisited: len(state.visited),
		PagesCrawled: state.pages,
		TotalLinks:   state.totalLinks(),
		Errors:       state.errors,
		DurationMS:   durationMS(state.duration()),
		Timestamp:    formatTime(state.finishedAt),
	}, nil
}

func validateURL(rawURL string) error {
	if !urlutil.HasHTTPScheme(rawURL) {
		return invalidInput("url %q must start with http:// or https://", rawURL)
	}

	return nil
}

func newEngine(opts Options) *engine {
	clock := opts.Clock
	if clock == nil {
		clock = limiter.NewClock()
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	fetch := opts.Fetcher
	if fetch == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}

		maxRedirects := opts.MaxRedirects
		if maxRedirects <= 0 {
			maxRedirects = DefaultMaxRedirects
		}

		fetch = fetcher.New(client, fetcher.Options{
			Timeout:      timeout,
			UserAgent:    opts.UserAgent,
			MaxRedirects: maxRedirects,
			Retries:      opts.Retries,
			Pacer:        limiter.NewPacer(limiter.FromRPS(opts.RPS), clock),
			Clock:        clock,
		})
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = parser.HTMLExtractor{}
	}

	source := opts.RobotsSource
	if source == nil {
		robotsTimeout := opts.RobotsTimeout
		if robotsTimeout <= 0 {
			robotsTimeout = DefaultRobotsTimeout
		}

		source = robots.NewHTTPSource(client, robotsTimeout, opts.UserAgent)
	}

	delay := opts.Delay
	if delay == 0 {
		delay = DefaultDelay
	}

	maxDepth := opts.MaxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}

	return &engine{
		processor: &processor{
			fetcher:   fetch,
			extractor: extractor,
			now:       func() string { return formatTime(clock.Now()) },
		},
		newRobots: func() robotsChecker {
			return robots.New(source, robots.DefaultAgent, logger)
		},
		pacer:    limiter.NewPacer(delay, clock),
		clock:    clock,
		logger:   logger,
		maxDepth: maxDepth,
		maxPages: opts.MaxPages,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
