package crawler

import (
	"time"
)

type frontierEntry struct {
	url   string
	depth int
}

// frontier is a FIFO of pending entries. A URL is held at most once at a time.
type frontier struct {
	queue   []frontierEntry
	head    int
	pending map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{pending: map[string]struct{}{}}
}

func (f *frontier) push(entry frontierEntry) bool {
	if _, ok := f.pending[entry.url]; ok {
		return false
	}

	f.pending[entry.url] = struct{}{}
	f.queue = append(f.queue, entry)

	return true
}

func (f *frontier) pop() (frontierEntry, bool) {
	if f.head >= len(f.queue) {
		return frontierEntry{}, false
	}

	entry := f.queue[f.head]
	f.queue[f.head] = frontierEntry{}
	f.head++

	if f.head == len(f.queue) {
		f.queue = f.queue[:0]
		f.head = 0
	}

	delete(f.pending, entry.url)

	return entry, true
}

func (f *frontier) len() int {
	return len(f.queue) - f.head
}

// crawlState is owned by a single run and discarded when it returns.
type crawlState struct {
	frontier   *frontier
	visited    map[string]struct{}
	pages      []CrawlPage
	errors     map[string]string
	robots     robotsChecker
	startedAt  time.Time
	finishedAt time.Time
}

func newCrawlState(startedAt time.Time, robots robotsChecker) *crawlState {
	return &crawlState{
		frontier:  newFrontier(),
		visited:   map[string]struct{}{},
		pages:     []CrawlPage{},
		errors:    map[string]string{},
		robots:    robots,
		startedAt: startedAt,
	}
}

func (s *crawlState) isVisited(url string) bool {
	_, ok := s.visited[url]
	return ok
}

func (s *crawlState) markVisited(url string) {
	s.visited[url] = struct{}{}
}

func (s *crawlState) budgetLeft(maxPages int) bool {
	return len(s.pages) < maxPages
}

func (s *crawlState) enqueueLinks(links []string, depth, maxPages int) {
	for _, link := range links {
		if !s.budgetLeft(maxPages) {
			return
		}

		if s.isVisited(link) {
			continue
		}

		s.frontier.push(frontierEntry{url: link, depth: depth})
	}
}

func (s *crawlState) totalLinks() int {
	total := 0
	for _, page := range s.pages {
		total += len(page.OutgoingLinks)
	}

	return total
}

func (s *crawlState) duration() time.Duration {
	return s.finishedAt.Sub(s.startedAt)
}
