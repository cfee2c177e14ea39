package robots

import (
	"net/url"

	"github.com/temoto/robotstxt"
)

// Policy answers whether a URL may be crawled by an agent.
type Policy interface {
	Allowed(rawURL, agent string) bool
}

// PermissivePolicy allows everything. It stands in for origins whose
// robots.txt is missing, unreachable, or unparseable.
type PermissivePolicy struct{}

// Allowed always returns true.
func (PermissivePolicy) Allowed(string, string) bool {
	return true
}

// ParsedPolicy evaluates rules parsed from a robots.txt body.
type ParsedPolicy struct {
	data *robotstxt.RobotsData
}

// Parse builds a ParsedPolicy from a robots.txt body.
func Parse(body []byte) (*ParsedPolicy, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}

	return &ParsedPolicy{data: data}, nil
}

// Allowed tests the URL's path and query against the group matching agent.
func (p *ParsedPolicy) Allowed(rawURL, agent string) bool {
	if p == nil || p.data == nil {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	return p.data.TestAgent(parsed.RequestURI(), agent)
}
