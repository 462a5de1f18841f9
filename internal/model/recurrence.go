package model

import (
	"time"
)

// NextAfter returns the first occurrence of one of the segment's ranges that
// has not ended at from. A window already in progress at from is returned
// as is.
func (s TimeSegment) NextAfter(from time.Time) (Range, error) {
	if err := s.Validate(); err != nil {
		return Range{}, err
	}
	var best Range
	found := false
	for _, r := range s.Ranges {
		// Smallest number of periods that moves r.End strictly past from.
		steps := floorDiv(from.Sub(r.End), s.Period) + 1
		candidate := r.shift(time.Duration(steps) * s.Period)
		if !found || candidate.Start.Before(best.Start) {
			best = candidate
			found = true
		}
	}
	return best, nil
}

// Preview lists the next count windows starting from from.
func (s TimeSegment) Preview(from time.Time, count int) ([]Range, error) {
	if count <= 0 {
		return []Range{}, nil
	}
	out := make([]Range, 0, count)
	cursor := from
	for i := 0; i < count; i++ {
		next, err := s.NextAfter(cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cursor = next.End
	}
	return out, nil
}

func floorDiv(a, b time.Duration) int64 {
	q := int64(a / b)
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
