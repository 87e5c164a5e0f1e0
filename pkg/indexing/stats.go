package indexing

import "github.com/mdbase/mdbase/pkg/domain"

// Statistics holds per-index cardinality data from an explicit Analyze run.
// The planner uses it for numeric selectivity estimates; without it the
// planner falls back to an ordinal heuristic.
type Statistics struct {
	DistinctKeys int         `json:"distinct_keys"`
	TotalIDs     int         `json:"total_ids"`
	MinKey       interface{} `json:"min_key,omitempty"`
	MaxKey       interface{} `json:"max_key,omitempty"`
}

// gatherStats computes statistics from the current entries.
func gatherStats(idx *Index) *Statistics {
	stats := &Statistics{DistinctKeys: len(idx.entries)}
	for _, entry := range idx.entries {
		stats.TotalIDs += len(entry.IDs)
	}
	if min, max, ok := idx.Bounds(); ok {
		stats.MinKey = min
		stats.MaxKey = max
	}
	return stats
}

// KeySpan returns the numeric width of the key range, ok=false when the
// index is empty or its keys are not numeric.
func (s *Statistics) KeySpan() (float64, bool) {
	min, okMin := domain.ToFloat64(s.MinKey)
	max, okMax := domain.ToFloat64(s.MaxKey)
	if !okMin || !okMax || max <= min {
		return 0, false
	}
	return max - min, true
}
