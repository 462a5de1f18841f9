package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPeriod = errors.New("model: invalid time segment period")
	ErrInvalidRange  = errors.New("model: invalid time segment range")
	ErrInvalidHue    = errors.New("model: invalid time segment hue")
)

// HueCount bounds TimeSegment.Hue: hues are degrees in [0, HueCount).
const HueCount = 360

// Range is one availability window, End exclusive.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Duration() time.Duration { return r.End.Sub(r.Start) }

func (r Range) shift(d time.Duration) Range {
	return Range{Start: r.Start.Add(d), End: r.End.Add(d)}
}

// TimeSegment is a named set of availability windows that repeats every
// Period, counted from Start.
type TimeSegment struct {
	Name   string
	Start  time.Time
	Period time.Duration
	Ranges []Range
	Hue    int
}

func (s TimeSegment) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("model: time segment name is required")
	}
	if s.Start.IsZero() {
		return errors.New("model: time segment start is required")
	}
	if s.Period < time.Second || s.Period%time.Second != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPeriod, s.Period)
	}
	if len(s.Ranges) == 0 {
		return errors.New("model: time segment needs at least one range")
	}
	for i, r := range s.Ranges {
		if !r.End.After(r.Start) {
			return fmt.Errorf("%w: range %d ends at %s, not after %s", ErrInvalidRange, i,
				r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
		}
	}
	if s.Hue < 0 || s.Hue >= HueCount {
		return fmt.Errorf("%w: %d", ErrInvalidHue, s.Hue)
	}
	return nil
}
