package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

var errBodyTooLarge = errors.New("response body too large")

// readBody decodes the Content-Encoding the server applied and enforces maxBytes.
func readBody(response *http.Response, maxBytes int64) ([]byte, error) {
	if response.Body == nil {
		return nil, nil
	}

	reader := io.Reader(response.Body)

	switch strings.ToLower(strings.TrimSpace(response.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(response.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		defer func() {
			_ = gz.Close()
		}()

		reader = gz
	case "deflate":
		fl := flate.NewReader(response.Body)
		defer func() {
			_ = fl.Close()
		}()

		reader = fl
	case "br":
		reader = brotli.NewReader(response.Body)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", errBodyTooLarge, maxBytes)
	}

	return body, nil
}
