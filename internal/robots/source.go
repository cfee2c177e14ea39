package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultFetchTimeout = 5 * time.Second
	maxRobotsBytes      = 512 * 1024
)

// Source retrieves the raw robots.txt body for an origin.
type Source interface {
	FetchRobots(ctx context.Context, origin string) ([]byte, error)
}

// HTTPSource fetches {origin}/robots.txt over HTTP.
type HTTPSource struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewHTTPSource creates an HTTPSource. A non-positive timeout uses 5s.
func NewHTTPSource(client *http.Client, timeout time.Duration, userAgent string) *HTTPSource {
	if client == nil {
		client = &http.Client{}
	}

	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	return &HTTPSource{
		client:    client,
		timeout:   timeout,
		userAgent: userAgent,
	}
}

// FetchRobots returns the body of a 200 response; any other outcome is an error.
func (s *HTTPSource) FetchRobots(ctx context.Context, origin string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	robotsURL := origin + "/robots.txt"

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}

	if s.userAgent != "" {
		request.Header.Set("User-Agent", s.userAgent)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("robots.txt returned status %d", response.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	return body, nil
}
