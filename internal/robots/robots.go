package robots

import (
	"context"

	"go.uber.org/zap"

	"sitecrawl/internal/cache"
	"sitecrawl/internal/urlutil"
)

// DefaultAgent is the identity robots rules are evaluated for.
const DefaultAgent = "Mozilla"

// Cache memoizes one Policy per origin. A robots.txt body is fetched at most
// once per origin for the lifetime of the Cache, whatever the outcome.
type Cache struct {
	source   Source
	agent    string
	logger   *zap.Logger
	policies *cache.Cache[Policy]
}

// New creates a Cache. An empty agent uses DefaultAgent.
func New(source Source, agent string, logger *zap.Logger) *Cache {
	if agent == "" {
		agent = DefaultAgent
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		source:   source,
		agent:    agent,
		logger:   logger,
		policies: cache.New[Policy](),
	}
}

// Allowed reports whether rawURL may be crawled. Unknown origins are resolved
// lazily; any failure along the way allows the URL.
func (c *Cache) Allowed(ctx context.Context, rawURL string) bool {
	origin, err := urlutil.Origin(rawURL)
	if err != nil {
		return true
	}

	policy := c.policies.GetOrLoad(origin, func() Policy {
		return c.load(ctx, origin)
	})

	return policy.Allowed(rawURL, c.agent)
}

// Origins returns how many origins have a cached policy.
func (c *Cache) Origins() int {
	return c.policies.Len()
}

func (c *Cache) load(ctx context.Context, origin string) Policy {
	if c.source == nil {
		return PermissivePolicy{}
	}

	body, err := c.source.FetchRobots(ctx, origin)
	if err != nil {
		c.logger.Debug("robots.txt unavailable, allowing origin",
			zap.String("origin", origin), zap.Error(err))

		return PermissivePolicy{}
	}

	policy, err := Parse(body)
	if err != nil {
		c.logger.Debug("robots.txt unparseable, allowing origin",
			zap.String("origin", origin), zap.Error(err))

		return PermissivePolicy{}
	}

	return policy
}
