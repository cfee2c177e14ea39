package crawler

import (
	"context"
	"regexp"
	"unicode/utf8"
)

const (
	excerptLimit         = 150
	excerptEllipsis      = "..."
	untitledPage         = "Untitled"
	noDescriptionExcerpt = "No description available"
)

// Search crawls like Crawl and collects every page whose title or description
// contains term, matched literally and case-insensitively.
func Search(ctx context.Context, opts Options, term string) (SearchResultCompilation, error) {
	if isBlank(term) {
		return SearchResultCompilation{}, invalidInput("search term is required")
	}

	if err := validateURL(opts.URL); err != nil {
		return SearchResultCompilation{}, err
	}

	matcher := newMatcher(term)
	results := []SearchResult{}

	eng := newEngine(opts)
	state := eng.run(ctx, opts.URL, func(page CrawlPage) {
		if result, ok := matcher.match(page); ok {
			results = append(results, result)
		}
	})

	return SearchResultCompilation{
		SearchTerm:    term,
		StartURL:      opts.URL,
		ResultsFound:  len(results),
		Results:       results,
		PagesSearched: len(state.visited),
		TotalLinks:    state.totalLinks(),
		Errors:        state.errors,
		DurationMS:    durationMS(state.duration()),
		Timestamp:     formatTime(state.finishedAt),
	}, nil
}

type matcher struct {
	pattern *regexp.Regexp
}

func newMatcher(term string) matcher {
	return matcher{pattern: regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))}
}

func (m matcher) count(text string) int {
	if text == "" {
		return 0
	}

	return len(m.pattern.FindAllStringIndex(text, -1))
}

func (m matcher) match(page CrawlPage) (SearchResult, bool) {
	matches := m.count(page.Title) + m.count(page.Description)
	if matches == 0 {
		return SearchResult{}, false
	}

	title := page.Title
	if title == "" {
		title = untitledPage
	}

	return SearchResult{
		SourceURL:  page.URL,
		PageTitle:  title,
		Excerpt:    excerpt(page),
		MatchCount: matches,
		Timestamp:  page.Timestamp,
	}, true
}

func excerpt(page CrawlPage) string {
	text := page.Description
	if text == "" {
		text = page.Title
	}

	if text == "" {
		return noDescriptionExcerpt
	}

	return truncate(text, excerptLimit)
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)

	return string(runes[:limit]) + excerptEllipsis
}
