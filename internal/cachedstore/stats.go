package cachedstore

import "sync/atomic"

// stats holds the cache's monotonic counters. No consistency between
// counters is needed, only that each one is itself safe under concurrent
// access, so plain atomic.Uint64 increments suffice.
type stats struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	inserts   atomic.Uint64
	evictions atomic.Uint64
}

// Stats is a point-in-time snapshot of the cache's counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Inserts   uint64
	Evictions uint64
}

// HitRatio returns Hits / (Hits + Misses), or 0 if there have been no
// lookups at all.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s *stats) snapshot() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Inserts:   s.inserts.Load(),
		Evictions: s.evictions.Load(),
	}
}
