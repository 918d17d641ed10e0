package pipeline

import (
	"github.com/golang/groupcache/lru"

	"github.com/TFMV/flightline/config"
)

// derived holds the computed columns appended to the cleaned table.
type derived struct {
	routes  []string
	buckets []string
}

// routeInterner memoizes route keys so repeated origin-dest pairs share one
// string. Monthly extracts repeat a few thousand routes across hundreds of
// thousands of rows.
type routeInterner struct {
	cache *lru.Cache
}

func newRouteInterner(maxEntries int) *routeInterner {
	return &routeInterner{cache: lru.New(maxEntries)}
}

func (r *routeInterner) key(origin, dest string) string {
	k := origin + "-" + dest
	if v, ok := r.cache.Get(k); ok {
		return v.(string)
	}
	r.cache.Add(k, k)
	return k
}

// bucketFor assigns the first bucket whose upper bound is >= delay; the
// open-ended tail bucket catches the rest. Pure in (delay, buckets).
func bucketFor(delay float64, buckets []config.Bucket) string {
	for _, b := range buckets {
		if b.Upper != nil && delay <= *b.Upper {
			return b.Label
		}
	}
	return buckets[len(buckets)-1].Label
}

// derive computes the route key and delay-severity bucket for every
// surviving row.
func derive(cols *cleanColumns, buckets []config.Bucket) *derived {
	interner := newRouteInterner(4096)
	d := &derived{
		routes:  make([]string, 0, cols.len()),
		buckets: make([]string, 0, cols.len()),
	}
	for i := 0; i < cols.len(); i++ {
		d.routes = append(d.routes, interner.key(cols.origin[i], cols.dest[i]))
		d.buckets = append(d.buckets, bucketFor(cols.arrDelay[i], buckets))
	}
	return d
}
