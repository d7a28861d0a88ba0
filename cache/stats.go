package cache

// counters is the internal mutable tally, guarded by MultiLevel.mu.
type counters struct {
	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
	corruptions uint64
}

func (c counters) snapshot(size, maxSize int) Stats {
	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Corruptions: c.corruptions,
		Size:        size,
		MaxSize:     maxSize,
	}
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
	Corruptions uint64
	Size        int
	MaxSize     int
}

// HitRate returns hits / (hits + misses), or 0 when the cache is untouched.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Sizer is an adaptive sizing policy. It receives the current stats and
// returns the desired L1 capacity; returning the current MaxSize (or a
// non-positive value) leaves the capacity unchanged.
type Sizer func(Stats) int

// HitRateSizer returns a Sizer that grows the cache toward max while the
// hit rate is poor (the working set does not fit) and shrinks it toward min
// once the hit rate is comfortably high.
func HitRateSizer(min, max int) Sizer {
	return func(s Stats) int {
		if s.Hits+s.Misses < 100 {
			// not enough signal yet
			return s.MaxSize
		}
		switch rate := s.HitRate(); {
		case rate < 0.5 && s.MaxSize < max:
			grown := s.MaxSize + s.MaxSize/4 + 1
			if grown > max {
				grown = max
			}
			return grown
		case rate > 0.9 && s.MaxSize > min:
			shrunk := s.MaxSize - s.MaxSize/10
			if shrunk < min {
				shrunk = min
			}
			return shrunk
		default:
			return s.MaxSize
		}
	}
}
