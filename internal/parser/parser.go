package parser

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"sitecrawl/internal/urlutil"
)

// Page is the structured content extracted from an HTML document.
// Links are absolute, normalized, HTTP(S) only, unique, in document order.
type Page struct {
	Title       string
	Description string
	Links       []string
}

// HTMLExtractor extracts Page data with goquery.
type HTMLExtractor struct{}

// Extract implements the crawler's extractor contract.
func (HTMLExtractor) Extract(body []byte, contentType, baseURL string) (Page, error) {
	return ParsePage(body, contentType, baseURL)
}

// ParsePage decodes body using the charset advertised by contentType (or sniffed
// from the document) and extracts title, meta description and outgoing links
// resolved against baseURL. Missing elements yield empty strings.
func ParsePage(body []byte, contentType, baseURL string) (Page, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse base url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(decode(body, contentType))
	if err != nil {
		return Page{}, err
	}

	return Page{
		Title:       parseTitle(doc),
		Description: parseDescription(doc),
		Links:       parseLinks(doc, base),
	}, nil
}

func decode(body []byte, contentType string) io.Reader {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}

	return reader
}

func parseTitle(doc *goquery.Document) string {
	return cleanHumanText(doc.Find("title").First().Text())
}

func parseDescription(doc *goquery.Document) string {
	var description string

	doc.Find("meta[name]").EachWithBreak(func(_ int, selection *goquery.Selection) bool {
		name, _ := selection.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}

		content, _ := selection.Attr("content")
		description = cleanHumanText(content)

		return false
	})

	return description
}

func parseLinks(doc *goquery.Document, base *url.URL) []string {
	links := []string{}
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")

		absoluteURL, ok := urlutil.Resolve(base, href)
		if !ok || seen[absoluteURL] {
			return
		}

		seen[absoluteURL] = true
		links = append(links, absoluteURL)
	})

	return links
}

func cleanHumanText(value string) string {
	unescaped := html.UnescapeString(value)

	return strings.TrimSpace(collapseSpaces(unescaped))
}

func collapseSpaces(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))

	previousSpace := false
	for _, r := range value {
		if unicode.IsSpace(r) {
			if previousSpace {
				continue
			}

			builder.WriteRune(' ')
			previousSpace = true

			continue
		}

		builder.WriteRune(r)
		previousSpace = false
	}

	return builder.String()
}
