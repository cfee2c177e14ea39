package server

import (
	"net/url"
	"regexp"

	"sitecrawl/crawler"
)

var fileTypePatterns = map[string]*regexp.Regexp{
	"images":    regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|svg)$`),
	"audio":     regexp.MustCompile(`(?i)\.(mp3|wav|ogg|m4a)$`),
	"documents": regexp.MustCompile(`(?i)\.(pdf|doc|docx|xls|xlsx|ppt|pptx)$`),
}

func validFileType(fileType string) bool {
	if fileType == "" || fileType == "default" || fileType == "texts" {
		return true
	}

	_, ok := fileTypePatterns[fileType]

	return ok
}

// filterLinks keeps only outgoing links whose path ends in an extension of fileType.
// The report is modified in place; TotalLinks still counts the unfiltered links.
func filterLinks(result *crawler.CrawlResult, fileType string) {
	pattern, ok := fileTypePatterns[fileType]
	if !ok {
		return
	}

	for i := range result.PagesCrawled {
		page := &result.PagesCrawled[i]
		kept := []string{}

		for _, link := range page.OutgoingLinks {
			if pattern.MatchString(linkPath(link)) {
				kept = append(kept, link)
			}
		}

		page.OutgoingLinks = kept
	}
}

func linkPath(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}

	return parsed.Path
}
