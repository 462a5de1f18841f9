package reminder

import (
	"fmt"
	"sort"
	"time"

	"github.com/sandeepkv93/eva/internal/datetime"
	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/schedule"
)

type Kind string

const (
	KindStart    Kind = "start"
	KindDeadline Kind = "deadline"
)

// Reminder is due at At for the task TaskID.
type Reminder struct {
	TaskID  model.ID
	Content string
	Kind    Kind
	At      time.Time
	// Starts is the planned start of a KindStart reminder, At plus the lead.
	Starts time.Time
}

func (r Reminder) String() string {
	switch r.Kind {
	case KindStart:
		return fmt.Sprintf("%q starts %s", r.Content, datetime.FormatDatetime(r.Starts))
	case KindDeadline:
		return fmt.Sprintf("Deadline of %q reached", r.Content)
	default:
		return r.Content
	}
}

// Plan turns a schedule into reminders: one lead before each planned start
// and one at each deadline. Reminders due before now are left out.
func Plan(scheduled []schedule.Scheduled, now time.Time, lead time.Duration) []Reminder {
	out := make([]Reminder, 0, 2*len(scheduled))
	for _, s := range scheduled {
		start := Reminder{TaskID: s.Task.ID, Content: s.Task.Body.Content, Kind: KindStart, At: s.When.Add(-lead), Starts: s.When}
		deadline := Reminder{TaskID: s.Task.ID, Content: s.Task.Body.Content, Kind: KindDeadline, At: s.Task.Body.Deadline}
		for _, r := range []Reminder{start, deadline} {
			if !r.At.Before(now) {
				out = append(out, r)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}
