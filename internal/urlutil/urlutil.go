package urlutil

import (
	"errors"
	"net/url"
	"strings"
)

var errNoHost = errors.New("missing scheme or host")

// Normalize strips the fragment and canonicalizes a bare root path.
// Unparseable input is returned unchanged so the failure surfaces at fetch time.
func Normalize(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	canonicalizeRootPath(parsed)

	return parsed.String()
}

// IsValid reports whether raw, resolved against base, is an HTTP(S) URL.
// Cross-domain targets are valid.
func IsValid(raw, base string) bool {
	baseURL, err := url.Parse(base)
	if err != nil {
		return false
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}

	resolved := baseURL.ResolveReference(parsed)

	return isHTTPScheme(resolved.Scheme)
}

// Resolve resolves href against base and returns a normalized absolute HTTP(S) URL.
func Resolve(base *url.URL, href string) (string, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}

	resolved := base.ResolveReference(parsed)
	if !isHTTPScheme(resolved.Scheme) {
		return "", false
	}

	return Normalize(resolved.String()), true
}

// Origin returns scheme://host[:port] for raw.
func Origin(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errNoHost
	}

	return strings.ToLower(parsed.Scheme + "://" + parsed.Host), nil
}

// HasHTTPScheme reports whether raw starts with http:// or https://.
func HasHTTPScheme(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

func isHTTPScheme(scheme string) bool {
	scheme = strings.ToLower(scheme)

	return scheme == "http" || scheme == "https"
}

func canonicalizeRootPath(u *url.URL) {
	if u.Path == "/" && u.RawQuery == "" && !u.ForceQuery {
		u.Path = ""
		u.RawPath = ""
	}
}
