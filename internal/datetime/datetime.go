// Package datetime holds the calendar arithmetic used to seed time segments
// and to present deadlines and schedules. Weeks start on Monday: day index 0
// is Monday and 6 is Sunday.
package datetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	OneWeekSeconds = 7 * 24 * 60 * 60
	OneWeek        = OneWeekSeconds * time.Second
)

var dayNames = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Day is a Monday-based day of the week.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

func (d Day) IsValid() bool { return d >= Monday && d <= Sunday }

func (d Day) String() string {
	if !d.IsValid() {
		return "Day(" + strconv.Itoa(int(d)) + ")"
	}
	return dayNames[d]
}

func (d Day) Next() Day { return (d + 1) % 7 }

// ParseDay accepts a day name or its three-letter abbreviation, in any case.
func ParseDay(s string) (Day, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if len(name) >= 3 {
		for i, short := range dayNames {
			if strings.HasPrefix(name, strings.ToLower(short)) {
				return Day(i), nil
			}
		}
	}
	return 0, fmt.Errorf("datetime: unknown day %q", s)
}

// WeekdayOf returns the Monday-based day of t in t's location.
func WeekdayOf(t time.Time) Day {
	return Day((int(t.Weekday()) + 6) % 7)
}

// Hour is an hour of the day in [0, 24).
type Hour int

func (h Hour) Next() Hour     { return (h + 1) % 24 }
func (h Hour) Previous() Hour { return (h + 23) % 24 }
func (h Hour) String() string { return fmt.Sprintf("%d:00", int(h)) }

func stripTime(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddHours moves t by n hours of wall-clock time, so 9:00 plus 8 hours is
// 17:00 even across a DST switch.
func AddHours(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour()+n, t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

func addMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// Today returns the start of the current local day.
func Today() time.Time {
	return todayAt(time.Now())
}

func todayAt(now time.Time) time.Time {
	return stripTime(now)
}

func InNDays(n int) time.Time   { return AddDays(Today(), n) }
func Tomorrow() time.Time       { return InNDays(1) }
func Yesterday() time.Time      { return InNDays(-1) }
func InNWeeks(n int) time.Time  { return AddDays(Today(), 7*n) }
func InNMonths(n int) time.Time { return addMonths(Today(), n) }

// LastDayOfMonth returns the start of the last day of the current month.
func LastDayOfMonth() time.Time {
	t := Today()
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59 on t's day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 0, 0, t.Location())
}

// firstDayOfWeekAfter returns the start of the first day on or after t that
// falls on day.
func firstDayOfWeekAfter(t time.Time, day Day) time.Time {
	offset := (int(day) - int(WeekdayOf(t)) + 7) % 7
	return AddDays(stripTime(t), offset)
}

// FirstDayOfWeek returns today, or the day within the next six days, that
// falls on day.
func FirstDayOfWeek(day Day) time.Time {
	return firstDayOfWeekAfter(Today(), day)
}

// FirstDayAndHourAfter returns the first instant at or after t that falls on
// day at hour:00. When t is already on day but past hour:00 the result is a
// week later. The result is built on t's wall clock, so it lies before
// t.AddDate(0, 0, 7); across a DST change that can be more or less than
// 7*24h of elapsed time.
func FirstDayAndHourAfter(t time.Time, day Day, hour Hour) time.Time {
	var base time.Time
	if day == WeekdayOf(t) {
		base = stripTime(t)
		passed := int(hour) < t.Hour() ||
			(int(hour) == t.Hour() && (t.Minute() > 0 || t.Second() > 0 || t.Nanosecond() > 0))
		if passed {
			base = AddDays(base, 7)
		}
	} else {
		base = firstDayOfWeekAfter(t, day)
	}
	y, m, d := base.Date()
	return time.Date(y, m, d, int(hour), 0, 0, 0, t.Location())
}

// FormatDatetime renders t relative to the current day: "Today",
// "Tomorrow 9:00", "Wed 14:30", "Past Mon", "3/11 8:15". A time of 23:59
// means the whole day and is left out.
func FormatDatetime(t time.Time) string {
	return formatDatetimeAt(t, time.Now())
}

func formatDatetimeAt(t, now time.Time) string {
	today := todayAt(now.In(t.Location()))
	date := stripTime(t)
	nativeNames := [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

	var dateStr string
	switch {
	case date.Equal(today):
		dateStr = ""
	case date.Equal(AddDays(today, 1)):
		dateStr = "Tomorrow"
	case today.Before(date) && date.Before(AddDays(today, 7)):
		dateStr = nativeNames[date.Weekday()]
	case date.Equal(AddDays(today, -1)):
		dateStr = "Yesterday"
	case AddDays(today, -7).Before(date) && date.Before(today):
		dateStr = "Past " + nativeNames[date.Weekday()]
	default:
		dateStr = fmt.Sprintf("%d/%d", date.Day(), int(date.Month()))
	}

	timeStr := fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
	if timeStr == "23:59" {
		timeStr = ""
	}

	switch {
	case dateStr == "" && timeStr == "":
		return "Today"
	case dateStr == "":
		return timeStr
	case timeStr == "":
		return dateStr
	default:
		return dateStr + " " + timeStr
	}
}

// FormatDuration renders a duration in seconds as "2h", "1h30" or "45m".
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds / 60) % 60
	if hours > 0 {
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%d", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
