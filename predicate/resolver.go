package predicate

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	metrics "github.com/ipfs/go-metrics-interface"
)

// Resolver resolves names against a fixed Set and remembers successful
// resolutions in a 2Q cache. Failed lookups are not cached.
// A Resolver is safe for concurrent use as long as its Set is not modified.
type Resolver struct {
	set   Set
	cache *lru.TwoQueueCache

	hits  metrics.Counter
	total metrics.Counter
}

// NewResolver creates a Resolver over set. A cacheSize of zero or less
// disables caching. Cache counters are registered on the metrics scope
// carried by ctx.
func NewResolver(ctx context.Context, set Set, cacheSize int) (*Resolver, error) {
	r := &Resolver{set: set}
	if cacheSize > 0 {
		cache, err := lru.New2Q(cacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	r.hits = metrics.NewCtx(ctx, "resolve.hits_total", "Number of predicate resolution cache hits").Counter()
	r.total = metrics.NewCtx(ctx, "resolve_total", "Total number of cached predicate resolutions").Counter()
	return r, nil
}

// Set returns the set the resolver was built with.
func (r *Resolver) Set() Set {
	return r.set
}

// Resolve is the cached equivalent of the package level Resolve.
func (r *Resolver) Resolve(name string) (Callable, error) {
	if r.cache == nil {
		return Resolve(r.set, name)
	}

	r.total.Inc()
	if v, ok := r.cache.Get(name); ok {
		r.hits.Inc()
		return v.(Callable), nil
	}

	c, err := Resolve(r.set, name)
	if err != nil {
		return nil, err
	}
	r.cache.Add(name, c)
	return c, nil
}
