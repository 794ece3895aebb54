package models

import "time"

// CacheOutcome reports how a cached lookup was satisfied.
type CacheOutcome string

const (
	// OutcomeHit means the value was already cached.
	OutcomeHit CacheOutcome = "hit"
	// OutcomeMiss means this caller ran the computation.
	OutcomeMiss CacheOutcome = "miss"
	// OutcomeShared means the caller joined a computation already in flight.
	OutcomeShared CacheOutcome = "shared"
)

// CacheEntry stores one computed advisory result.
type CacheEntry struct {
	Key       CacheKey       `json:"-"`
	Value     AdvisoryResult `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries   map[QueryKind]int `json:"entries"`
	Capacity  map[QueryKind]int `json:"capacity"`
	Hits      int64             `json:"hits"`
	Misses    int64             `json:"misses"`
	Shared    int64             `json:"shared"`
	Evictions int64             `json:"evictions"`
}

// HitRate returns hits over all lookups, or zero when nothing was looked up.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses + s.Shared
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
