package server

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sitecrawl/crawler"
)

const (
	defaultDepth = 2
	minDepth     = 1
	maxDepth     = 5
	defaultPages = 50
	minPages     = 5
	maxPages     = 200
)

type crawlRequest struct {
	URL        string `json:"url"`
	MaxDepth   int    `json:"maxDepth"`
	MaxPages   int    `json:"maxPages"`
	FileType   string `json:"fileType"`
	SearchTerm string `json:"searchTerm"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) crawl(c *gin.Context) {
	req, ok := bindCrawlRequest(c)
	if !ok {
		return
	}

	if !validFileType(req.FileType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported fileType"})
		return
	}

	if !s.acquire(c) {
		return
	}
	defer s.slots.Release(1)

	log := loggerFor(c, s.logger)
	result, err := s.engine.Crawl(c.Request.Context(), s.optionsFor(c, req))
	if err != nil {
		s.fail(c, log, err)
		return
	}

	filterLinks(&result, req.FileType)
	c.JSON(http.StatusOK, result)
}

func (s *Server) search(c *gin.Context) {
	req, ok := bindCrawlRequest(c)
	if !ok {
		return
	}

	if req.SearchTerm == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search term is required"})
		return
	}

	if !s.acquire(c) {
		return
	}
	defer s.slots.Release(1)

	log := loggerFor(c, s.logger)
	result, err := s.engine.Search(c.Request.Context(), s.optionsFor(c, req), req.SearchTerm)
	if err != nil {
		s.fail(c, log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func bindCrawlRequest(c *gin.Context) (crawlRequest, bool) {
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return crawlRequest{}, false
	}

	if req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return crawlRequest{}, false
	}

	if parsed, err := url.Parse(req.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL"})
		return crawlRequest{}, false
	}

	return req, true
}

func (s *Server) acquire(c *gin.Context) bool {
	if s.slots.TryAcquire(1) {
		return true
	}

	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many concurrent crawls"})

	return false
}

func (s *Server) optionsFor(c *gin.Context, req crawlRequest) crawler.Options {
	opts := s.base
	opts.URL = req.URL
	opts.MaxDepth = clamp(req.MaxDepth, defaultDepth, minDepth, maxDepth)
	opts.MaxPages = clamp(req.MaxPages, defaultPages, minPages, maxPages)
	opts.Logger = loggerFor(c, s.logger)

	return opts
}

func (s *Server) fail(c *gin.Context, log *zap.Logger, err error) {
	if errors.Is(err, crawler.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Error("crawl failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// clamp maps a missing or zero value to def and bounds the rest to [lo, hi].
func clamp(value, def, lo, hi int) int {
	if value == 0 {
		value = def
	}

	return min(max(value, lo), hi)
}
