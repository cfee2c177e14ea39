package crawler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"sitecrawl/internal/limiter"
	"sitecrawl/internal/robots"
)

const (
	// DefaultDelay is the pause between two processed pages.
	DefaultDelay = 500 * time.Millisecond
	// DefaultTimeout bounds a single page fetch.
	DefaultTimeout = 12 * time.Second
	// DefaultRobotsTimeout bounds a robots.txt fetch.
	DefaultRobotsTimeout = 5 * time.Second
	// DefaultMaxRedirects caps redirect hops per fetch.
	DefaultMaxRedirects = 10
)

// Options configures one crawl.
// MaxDepth counts link hops from the seed (0 crawls the seed only).
// MaxPages caps successfully crawled pages.
// Delay is the pause between pages: zero uses DefaultDelay, negative disables it.
// RPS additionally spaces individual HTTP requests, retries included.
// Retries is the number of fetch retries after the first attempt.
// Fetcher, Extractor and RobotsSource replace the built-in collaborators when set.
type Options struct {
	URL           string
	MaxDepth      int
	MaxPages      int
	Delay         time.Duration
	Timeout       time.Duration
	RobotsTimeout time.Duration
	Retries       int
	RPS           float64
	UserAgent     string
	MaxRedirects  int
	HTTPClient    *http.Client
	Clock         limiter.Timer
	Logger        *zap.Logger
	Fetcher       Fetcher
	Extractor     Extractor
	RobotsSource  robots.Source
}

// CrawlPage describes a successfully crawled page.
type CrawlPage struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	OutgoingLinks []string `json:"outgoing_links"`
	Depth         int      `json:"depth"`
	StatusCode    int      `json:"status_code"`
	Timestamp     string   `json:"timestamp"`
}

// CrawlResult is the report returned by Crawl.
// Errors maps every URL that failed to the reason it failed.
type CrawlResult struct {
	StartURL     string            `json:"start_url"`
	PagesVisited int               `json:"pages_visited"`
	PagesCrawled []CrawlPage       `json:"pages_crawled"`
	TotalLinks   int               `json:"total_links"`
	Errors       map[string]string `json:"errors"`
	DurationMS   int64             `json:"duration_ms"`
	Timestamp    string            `json:"timestamp"`
}

// SearchResult is a crawled page whose title or description matched the term.
type SearchResult struct {
	SourceURL  string `json:"source_url"`
	PageTitle  string `json:"page_title"`
	Excerpt    string `json:"excerpt"`
	MatchCount int    `json:"match_count"`
	Timestamp  string `json:"timestamp"`
}

// SearchResultCompilation is the report returned by Search.
type SearchResultCompilation struct {
	SearchTerm    string            `json:"search_term"`
	StartURL      string            `json:"start_url"`
	ResultsFound  int               `json:"results_found"`
	Results       []SearchResult    `json:"results"`
	PagesSearched int               `json:"pages_searched"`
	TotalLinks    int               `json:"total_links"`
	Errors        map[string]string `json:"errors"`
	DurationMS    int64             `json:"duration_ms"`
	Timestamp     string            `json:"timestamp"`
}
