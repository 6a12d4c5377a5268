package lambda

import "context"

// DefaultDepthLimit bounds the active frames of a single evaluation unless
// WithDepthLimit says otherwise.
const DefaultDepthLimit = 1 << 14

type config struct {
	depthLimit int64
	cacheSize  int
	metricsCtx context.Context
}

type Option func(*config)

// WithDepthLimit bounds the number of term evaluations active at once within
// one top-level evaluation. Every node under evaluation counts, including the
// bodies of closures invoked by predicates, so recursion through host
// predicates is caught. A predicate running closures in several goroutines
// adds up their frames. Zero disables the limit.
func WithDepthLimit(limit uint) Option {
	return func(c *config) {
		c.depthLimit = int64(limit)
	}
}

// WithResolveCache caches up to size predicate resolutions.
func WithResolveCache(size int) Option {
	return func(c *config) {
		c.cacheSize = size
	}
}

// WithMetricsContext sets the go-metrics-interface scope used for the
// resolution cache counters.
func WithMetricsContext(ctx context.Context) Option {
	return func(c *config) {
		c.metricsCtx = ctx
	}
}
