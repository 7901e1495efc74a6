package datasource

import "github.com/five82/gridsync/internal/span"

// CacheStrategy decides which rows to keep cached around a viewport.
type CacheStrategy interface {
	WorkingSet(viewport span.Range) span.Range
}

const (
	defaultPrefetchFactor = 1.0
	defaultMinPrefetch    = 20
)

// PrefetchStrategy extends the viewport by Factor viewport lengths on each
// side, and by at least Min rows.
type PrefetchStrategy struct {
	Factor float64
	Min    int
}

// DefaultStrategy prefetches one viewport in each direction, at least 20 rows.
func DefaultStrategy() PrefetchStrategy {
	return PrefetchStrategy{Factor: defaultPrefetchFactor, Min: defaultMinPrefetch}
}

// WorkingSet implements CacheStrategy.
func (s PrefetchStrategy) WorkingSet(viewport span.Range) span.Range {
	extra := int(float64(viewport.Len()) * s.Factor)
	if extra < s.Min {
		extra = s.Min
	}
	if extra < 0 {
		extra = 0
	}
	return viewport.ExpandBy(extra, extra)
}

// NoPrefetch caches exactly the viewport.
type NoPrefetch struct{}

// WorkingSet implements CacheStrategy.
func (NoPrefetch) WorkingSet(viewport span.Range) span.Range {
	return viewport
}
