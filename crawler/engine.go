package crawler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"sitecrawl/internal/limiter"
	"sitecrawl/internal/urlutil"
)

type engine struct {
	processor *processor
	newRobots func() robotsChecker
	pacer     *limiter.Pacer
	clock     limiter.Timer
	logger    *zap.Logger
	maxDepth  int
	maxPages  int
}

// run drives one breadth-first traversal from seed. onPage is called for every
// crawled page in crawl order. Cancellation stops the loop and keeps what was
// collected so far.
func (e *engine) run(ctx context.Context, seed string, onPage func(CrawlPage)) *crawlState {
	state := newCrawlState(e.clock.Now(), e.newRobots())
	state.frontier.push(frontierEntry{url: urlutil.Normalize(seed), depth: 0})

	e.logger.Info("crawl started",
		zap.String("url", seed),
		zap.Int("max_depth", e.maxDepth),
		zap.Int("max_pages", e.maxPages),
	)

	for state.frontier.len() > 0 && state.budgetLeft(e.maxPages) {
		if ctx.Err() != nil {
			break
		}

		entry, _ := state.frontier.pop()
		if entry.depth > e.maxDepth || state.isVisited(entry.url) {
			continue
		}

		state.markVisited(entry.url)
		e.visit(ctx, state, entry, onPage)

		if !e.hasNext(state) {
			break
		}

		if err := e.pacer.Pause(ctx); err != nil {
			break
		}
	}

	state.finishedAt = e.clock.Now()

	e.logger.Info("crawl finished",
		zap.String("url", seed),
		zap.Int("pages_visited", len(state.visited)),
		zap.Int("pages_crawled", len(state.pages)),
		zap.Int("errors", len(state.errors)),
		zap.Duration("duration", state.duration()),
	)

	return state
}

func (e *engine) visit(ctx context.Context, state *crawlState, entry frontierEntry, onPage func(CrawlPage)) {
	page, err := e.processor.process(ctx, state.robots, entry.url, entry.depth)
	if err != nil {
		state.errors[entry.url] = err.Error()

		fields := []zap.Field{zap.String("url", entry.url), zap.Int("depth", entry.depth), zap.Error(err)}
		var pageErr *PageError
		if errors.As(err, &pageErr) {
			fields = append(fields, zap.String("kind", string(pageErr.Kind)))
		}

		e.logger.Debug("page failed", fields...)

		return
	}

	state.pages = append(state.pages, page)
	if onPage != nil {
		onPage(page)
	}

	e.logger.Debug("page crawled",
		zap.String("url", page.URL),
		zap.Int("depth", page.Depth),
		zap.Int("status", page.StatusCode),
		zap.Int("links", len(page.OutgoingLinks)),
	)

	if entry.depth < e.maxDepth {
		state.enqueueLinks(page.OutgoingLinks, entry.depth+1, e.maxPages)
	}
}

func (e *engine) hasNext(state *crawlState) bool {
	return state.frontier.len() > 0 && state.budgetLeft(e.maxPages)
}

func durationMS(d time.Duration) int64 {
	if d < 0 {
		return 0
	}

	return d.Milliseconds()
}
