package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"sitecrawl/internal/fetcher"
	"sitecrawl/internal/parser"
	"sitecrawl/internal/urlutil"
)

// Fetcher retrieves a page. Any HTTP status is a successful fetch.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetcher.Result, error)
}

// Extractor parses a fetched body into title, description and outgoing links.
type Extractor interface {
	Extract(body []byte, contentType, baseURL string) (parser.Page, error)
}

type robotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

type processor struct {
	fetcher   Fetcher
	extractor Extractor
	now       func() string
}

func (p *processor) process(ctx context.Context, robots robotsChecker, pageURL string, depth int) (CrawlPage, error) {
	if !robots.Allowed(ctx, pageURL) {
		return CrawlPage{}, &PageError{Kind: KindRobotsBlocked, URL: pageURL}
	}

	result, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return CrawlPage{}, &PageError{Kind: KindFetchFailure, URL: pageURL, Err: err}
	}

	if err := statusError(pageURL, result); err != nil {
		return CrawlPage{}, err
	}

	page, err := p.extract(result, pageURL)
	if err != nil {
		return CrawlPage{}, &PageError{Kind: KindParseFailure, URL: pageURL, Err: err}
	}

	return CrawlPage{
		URL:           pageURL,
		Title:         page.Title,
		Description:   page.Description,
		OutgoingLinks: page.Links,
		Depth:         depth,
		StatusCode:    result.StatusCode,
		Timestamp:     p.now(),
	}, nil
}

// statusError returns nil when the body should be parsed.
// 403 and 451 responses often carry a usable page, so they are parsed when non-empty.
func statusError(pageURL string, result fetcher.Result) error {
	code := result.StatusCode

	switch {
	case code == http.StatusNotFound:
		return &PageError{Kind: KindNotFound, URL: pageURL, StatusCode: code}
	case code == http.StatusForbidden || code == http.StatusUnavailableForLegalReasons:
		if len(result.Body) > 0 {
			return nil
		}

		return &PageError{Kind: KindHTTPError, URL: pageURL, StatusCode: code}
	case code >= http.StatusBadRequest:
		return &PageError{Kind: KindHTTPError, URL: pageURL, StatusCode: code}
	default:
		return nil
	}
}

// extract parses the body relative to the final URL after redirects.
func (p *processor) extract(result fetcher.Result, pageURL string) (page parser.Page, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("extractor panic: %v", recovered)
		}
	}()

	baseURL := result.FinalURL
	if baseURL == "" {
		baseURL = pageURL
	}

	contentType := ""
	if result.Header != nil {
		contentType = result.Header.Get("Content-Type")
	}

	page, err = p.extractor.Extract(result.Body, contentType, baseURL)
	if err != nil {
		return parser.Page{}, err
	}

	page.Links = cleanLinks(page.Links, baseURL)

	return page, nil
}

// cleanLinks resolves links against baseURL and keeps the first occurrence of each
// normalized HTTP(S) URL.
func cleanLinks(links []string, baseURL string) []string {
	cleaned := []string{}

	base, err := url.Parse(baseURL)
	if err != nil {
		return cleaned
	}

	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		if !urlutil.IsValid(link, baseURL) {
			continue
		}

		resolved, ok := urlutil.Resolve(base, link)
		if !ok {
			continue
		}

		if _, dup := seen[resolved]; dup {
			continue
		}

		seen[resolved] = struct{}{}
		cleaned = append(cleaned, resolved)
	}

	return cleaned
}
