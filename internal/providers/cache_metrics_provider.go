package providers

import "cftracker/internal/structures"

// MetricsCacheProvider wraps a CacheProviderInterface and increments
// hit/miss counters on every Get call.
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits()
	} else {
		c.metrics.IncCacheMisses()
	}
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

func (c *MetricsCacheProvider) Purge() {
	c.inner.Purge()
}

// NewInstrumentedCacheProvider picks the configured cache backend and wraps it
// with hit/miss counters. A disabled cache is returned unwrapped so that no
// phantom misses are counted. An unreachable redis falls back to the
// in-process cache instead of failing startup.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface) CacheProviderInterface {
	if !conf.Cache.Enabled {
		return NewCacheProvider(conf, logger)
	}

	var inner CacheProviderInterface
	if conf.Cache.Driver == "redis" {
		rc, err := NewRedisCacheProvider(conf, logger)
		if err != nil {
			logger.Errorf(TypeApp, "Redis cache unavailable, using in-process cache: %s", err)
		} else {
			inner = rc
		}
	}
	if inner == nil {
		inner = NewCacheProvider(conf, logger)
	}

	return &MetricsCacheProvider{
		inner:   inner,
		metrics: metrics,
	}
}
