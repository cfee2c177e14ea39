package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"sitecrawl/crawler"
)

const shutdownTimeout = 10 * time.Second

// Engine runs crawls on behalf of the HTTP handlers.
type Engine interface {
	Crawl(ctx context.Context, opts crawler.Options) (crawler.CrawlResult, error)
	Search(ctx context.Context, opts crawler.Options, term string) (crawler.SearchResultCompilation, error)
}

// CrawlerEngine runs crawls with the crawler package.
type CrawlerEngine struct{}

func (CrawlerEngine) Crawl(ctx context.Context, opts crawler.Options) (crawler.CrawlResult, error) {
	return crawler.Crawl(ctx, opts)
}

func (CrawlerEngine) Search(ctx context.Context, opts crawler.Options, term string) (crawler.SearchResultCompilation, error) {
	return crawler.Search(ctx, opts, term)
}

// Options configures a Server.
// Base is the template for every crawl; URL, MaxDepth and MaxPages are set per request.
type Options struct {
	Base                crawler.Options
	Engine              Engine
	Logger              *zap.Logger
	MaxConcurrentCrawls int64
	Mode                string
	Now                 func() time.Time
}

// Server is the HTTP boundary in front of the crawl engine.
type Server struct {
	base   crawler.Options
	engine Engine
	logger *zap.Logger
	slots  *semaphore.Weighted
	now    func() time.Time
	router *gin.Engine
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = CrawlerEngine{}
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if opts.MaxConcurrentCrawls < 1 {
		opts.MaxConcurrentCrawls = 1
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	s := &Server{
		base:   opts.Base,
		engine: opts.Engine,
		logger: opts.Logger,
		slots:  semaphore.NewWeighted(opts.MaxConcurrentCrawls),
		now:    opts.Now,
		router: gin.New(),
	}

	s.registerRoutes()

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.Use(requestID(), requestLogger(s.logger), gin.Recovery())

	api := s.router.Group("/api")
	api.GET("/health", s.health)
	api.POST("/crawl", s.crawl)
	api.POST("/crawl/search", s.search)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
