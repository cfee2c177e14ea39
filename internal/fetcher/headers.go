package fetcher

import (
	"math/rand/v2"
	"net/http"
)

var browserUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0",
}

// RandomUserAgent picks one of the built-in browser user agents.
func RandomUserAgent() string {
	return browserUserAgents[rand.IntN(len(browserUserAgents))]
}

func setBrowserHeaders(header http.Header, userAgent string) {
	if userAgent == "" {
		userAgent = RandomUserAgent()
	}

	header.Set("User-Agent", userAgent)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.9")
	header.Set("Accept-Encoding", "gzip, deflate, br")
	header.Set("DNT", "1")
	header.Set("Upgrade-Insecure-Requests", "1")
	header.Set("Sec-Fetch-Dest", "document")
	header.Set("Sec-Fetch-Mode", "navigate")
	header.Set("Sec-Fetch-Site", "none")
	header.Set("Cache-Control", "max-age=0")
}
