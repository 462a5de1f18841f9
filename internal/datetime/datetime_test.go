package datetime

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestAddHoursKeepsWallClock(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	// 2026-03-29 is the spring DST switch in Paris.
	start := time.Date(2026, 3, 29, 1, 0, 0, 0, loc)
	got := AddHours(start, 8)
	if got.Hour() != 9 || got.Day() != 29 {
		t.Fatalf("unexpected wall clock after AddHours: %s", got)
	}
}

func TestAddDays(t *testing.T) {
	start := time.Date(2026, 2, 26, 10, 15, 0, 0, time.UTC)
	got := AddDays(start, 42)
	if got.Format("2006-01-02 15:04") != "2026-04-09 10:15" {
		t.Fatalf("unexpected AddDays result: %s", got)
	}
}

func TestTodayIsStartOfDay(t *testing.T) {
	got := Today()
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
		t.Fatalf("today is not midnight: %s", got)
	}
	now := time.Now()
	if d := now.Sub(got); d < 0 || d >= 25*time.Hour {
		t.Fatalf("today %s is not the current day %s", got, now)
	}
}

func TestLastDayOfMonth(t *testing.T) {
	got := LastDayOfMonth()
	if got.AddDate(0, 0, 1).Day() != 1 {
		t.Fatalf("day after %s is not the first of a month", got)
	}
	if got.Hour() != 0 {
		t.Fatalf("expected midnight, got %s", got)
	}
}

func TestEndOfDay(t *testing.T) {
	got := EndOfDay(time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC))
	if got.Format("2006-01-02 15:04") != "2026-05-04 23:59" {
		t.Fatalf("unexpected end of day: %s", got)
	}
}

func TestWeekdayOfIsMondayBased(t *testing.T) {
	monday := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	if WeekdayOf(monday) != Monday {
		t.Fatalf("expected Monday, got %s", WeekdayOf(monday))
	}
	if WeekdayOf(monday.AddDate(0, 0, 6)) != Sunday {
		t.Fatalf("expected Sunday, got %s", WeekdayOf(monday.AddDate(0, 0, 6)))
	}
	if Sunday.Next() != Monday || Hour(0).Previous() != 23 || Hour(23).Next() != 0 {
		t.Fatal("day or hour wrap-around is wrong")
	}
}

func TestFirstDayAndHourAfter(t *testing.T) {
	// Wednesday 2026-02-11 10:00 UTC.
	wed10 := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		from time.Time
		day  Day
		hour Hour
		want string
	}{
		{"exact match", wed10, Wednesday, 10, "2026-02-11 10:00"},
		{"later hour same day", wed10, Wednesday, 15, "2026-02-11 15:00"},
		{"earlier hour same day", wed10, Wednesday, 9, "2026-02-18 09:00"},
		{"same hour with minutes", wed10.Add(time.Minute), Wednesday, 10, "2026-02-18 10:00"},
		{"same hour with seconds", wed10.Add(time.Second), Wednesday, 10, "2026-02-18 10:00"},
		{"later day", wed10, Friday, 9, "2026-02-13 09:00"},
		{"earlier day", wed10, Monday, 9, "2026-02-16 09:00"},
	}
	for _, tc := range cases {
		got := FirstDayAndHourAfter(tc.from, tc.day, tc.hour)
		if got.Format("2006-01-02 15:04") != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got.Format("2006-01-02 15:04"), tc.want)
		}
	}
}

func TestFirstDayAndHourAfterWithinAWeek(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2000; i++ {
		from := base.Add(time.Duration(rng.Int64N(int64(365 * 24 * time.Hour))))
		day := Day(rng.IntN(7))
		hour := Hour(rng.IntN(24))
		got := FirstDayAndHourAfter(from, day, hour)
		if got.Before(from) || !got.Before(from.AddDate(0, 0, 7)) {
			t.Fatalf("FirstDayAndHourAfter(%s, %s, %s) = %s outside [t, t+7d)", from, day, hour, got)
		}
		if WeekdayOf(got) != day || got.Hour() != int(hour) || got.Minute() != 0 {
			t.Fatalf("FirstDayAndHourAfter(%s, %s, %s) = %s has wrong day or hour", from, day, hour, got)
		}
		if got.Equal(from) && (WeekdayOf(from) != day || from.Hour() != int(hour)) {
			t.Fatalf("equality with input for non-matching day/hour: %s", from)
		}
	}
}

func TestFormatDatetime(t *testing.T) {
	// Wednesday.
	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, 2, 11, 23, 59, 0, 0, time.UTC), "Today"},
		{time.Date(2026, 2, 11, 14, 5, 0, 0, time.UTC), "14:05"},
		{time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC), "Tomorrow 9:00"},
		{time.Date(2026, 2, 14, 23, 59, 0, 0, time.UTC), "Sat"},
		{time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC), "Yesterday 8:00"},
		{time.Date(2026, 2, 6, 23, 59, 0, 0, time.UTC), "Past Fri"},
		{time.Date(2026, 3, 20, 8, 15, 0, 0, time.UTC), "20/3 8:15"},
	}
	for _, tc := range cases {
		if got := formatDatetimeAt(tc.in, now); got != tc.want {
			t.Fatalf("formatDatetimeAt(%s) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:    "0m",
		45:   "0m",
		2700: "45m",
		3600: "1h",
		5400: "1h30",
		3900: "1h5",
		7200: "2h",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q want %q", in, got, want)
		}
	}
}

func TestParseDay(t *testing.T) {
	cases := map[string]Day{"Mon": Monday, "tuesday": Tuesday, " SUN ": Sunday, "fri": Friday}
	for in, want := range cases {
		got, err := ParseDay(in)
		if err != nil || got != want {
			t.Fatalf("ParseDay(%q) = %v, %v want %v", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "mo", "someday"} {
		if _, err := ParseDay(bad); err == nil {
			t.Fatalf("ParseDay(%q) should fail", bad)
		}
	}
}

func TestFirstDayAndHourAfterAcrossFallBack(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no tz database: %v", err)
	}
	from := time.Date(2026, 10, 26, 9, 30, 0, 0, loc)
	got := FirstDayAndHourAfter(from, Monday, 9)
	want := time.Date(2026, 11, 2, 9, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
	if !got.Before(from.AddDate(0, 0, 7)) {
		t.Fatalf("%s should be within seven wall-clock days of %s", got, from)
	}
	if elapsed := got.Sub(from); elapsed != 7*24*time.Hour+30*time.Minute {
		t.Fatalf("unexpected elapsed time across fall back: %s", elapsed)
	}
}

func TestFirstDayOfWeek(t *testing.T) {
	for day := Monday; day <= Sunday; day++ {
		today := Today()
		got := FirstDayOfWeek(day)
		if WeekdayOf(got) != day {
			t.Fatalf("FirstDayOfWeek(%s) = %s falls on %s", day, got, WeekdayOf(got))
		}
		if got.Before(today) || !got.Before(AddDays(today, 7)) {
			t.Fatalf("FirstDayOfWeek(%s) = %s not within six days of %s", day, got, today)
		}
		if got.Hour() != 0 || got.Minute() != 0 {
			t.Fatalf("FirstDayOfWeek(%s) = %s is not a start of day", day, got)
		}
		if day == WeekdayOf(today) && !got.Equal(today) {
			t.Fatalf("FirstDayOfWeek(%s) = %s, want today %s", day, got, today)
		}
	}
}
