package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidInput rejects a crawl or search before any network activity.
var ErrInvalidInput = errors.New("invalid input")

// ErrorKind classifies a per-page failure.
type ErrorKind string

const (
	KindRobotsBlocked ErrorKind = "robots_blocked"
	KindNotFound      ErrorKind = "not_found"
	KindHTTPError     ErrorKind = "http_error"
	KindFetchFailure  ErrorKind = "fetch_failure"
	KindParseFailure  ErrorKind = "parse_failure"
)

// PageError is a labeled failure for one URL. It is recorded in the report and
// never aborts the crawl.
type PageError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *PageError) Error() string {
	switch e.Kind {
	case KindRobotsBlocked:
		return "blocked by robots.txt"
	case KindNotFound:
		return fmt.Sprintf("Not Found (%d)", http.StatusNotFound)
	case KindHTTPError:
		return fmt.Sprintf("HTTP error %d", e.StatusCode)
	case KindParseFailure:
		return fmt.Sprintf("parse html: %v", e.Err)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}

		return "fetch failed"
	}
}

func (e *PageError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
