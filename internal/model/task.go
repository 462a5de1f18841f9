package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDuration   = errors.New("model: invalid task duration")
	ErrInvalidImportance = errors.New("model: invalid task importance")
)

// Task is something to do before Deadline, scheduled inside the windows of
// the time segment it belongs to.
type Task struct {
	Content       string
	Deadline      time.Time
	Duration      time.Duration
	Importance    int
	TimeSegmentID ID
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Content) == "" {
		return errors.New("model: task content is required")
	}
	if t.Deadline.IsZero() {
		return errors.New("model: task deadline is required")
	}
	// Durations are stored in whole seconds.
	if t.Duration < time.Second || t.Duration%time.Second != 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, t.Duration)
	}
	if t.Importance < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidImportance, t.Importance)
	}
	return t.TimeSegmentID.Validate()
}
