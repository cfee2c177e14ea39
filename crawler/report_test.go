package crawler_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"sitecrawl/crawler"
)

func TestMarshalReport(t *testing.T) {
	t.Parallel()

	report := crawler.CrawlResult{
		StartURL:     "https://example.com",
		PagesVisited: 1,
		PagesCrawled: []crawler.CrawlPage{{
			URL:           "https://example.com",
			Title:         "Home",
			OutgoingLinks: []string{},
			StatusCode:    200,
			Timestamp:     "2024-06-01T12:34:56Z",
		}},
		Errors:    map[string]string{},
		Timestamp: "2024-06-01T12:34:56Z",
	}

	compact := crawler.MarshalReport(report, false)
	indented := crawler.MarshalReport(report, true)

	require.Equal(t, byte('\n'), compact[len(compact)-1])
	require.Equal(t, byte('\n'), indented[len(indented)-1])
	require.Contains(t, string(indented), "\n  \"start_url\"")
	require.JSONEq(t, string(compact), string(indented))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(compact, &decoded))
	require.Contains(t, decoded, "pages_crawled")
	require.Contains(t, decoded, "duration_ms")
	require.Contains(t, decoded, "total_links")
}
