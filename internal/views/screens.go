package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sandeepkv93/eva/internal/datetime"
	"github.com/sandeepkv93/eva/internal/docstore"
	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/reminder"
	"github.com/sandeepkv93/eva/internal/schedule"
)

const panelWidth = 58

func TaskLine(task docstore.Doc[model.Task]) string {
	return fmt.Sprintf("[%s] %s (due %s, %s, importance %d)",
		task.ID,
		task.Body.Content,
		datetime.FormatDatetime(task.Body.Deadline.Local()),
		datetime.FormatDuration(int64(task.Body.Duration/time.Second)),
		task.Body.Importance,
	)
}

func RangeLine(r model.Range) string {
	start, end := r.Start.Local(), r.End.Local()
	return fmt.Sprintf("%s %s-%s (%s)",
		datetime.WeekdayOf(start),
		start.Format("15:04"),
		end.Format("15:04"),
		datetime.FormatDatetime(start),
	)
}

func SegmentLines(seg docstore.Doc[model.TimeSegment]) string {
	var b strings.Builder
	fmt.Fprintf(&b, "every %s from %s\n", formatPeriod(seg.Body.Period), datetime.FormatDatetime(seg.Body.Start.Local()))
	for _, r := range seg.Body.Ranges {
		b.WriteString("  " + RangeLine(r) + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatPeriod(d time.Duration) string {
	switch {
	case d == datetime.OneWeek:
		return "week"
	case d%(24*time.Hour) == 0:
		return fmt.Sprintf("%d days", d/(24*time.Hour))
	default:
		return datetime.FormatDuration(int64(d / time.Second))
	}
}

// AgendaMarkdown lists every time segment with its tasks.
func AgendaMarkdown(groups []docstore.SegmentTasks) string {
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "## %s\n\n", g.Segment.Body.Name)
		if len(g.Tasks) == 0 {
			b.WriteString("_no tasks_\n\n")
			continue
		}
		for _, task := range g.Tasks {
			b.WriteString("- " + TaskLine(task) + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// RenderAgenda draws one panel per time segment in the segment's colour.
func RenderAgenda(groups []docstore.SegmentTasks) string {
	if len(groups) == 0 {
		return "(no time segments)"
	}
	panels := make([]string, 0, len(groups))
	for _, g := range groups {
		lines := make([]string, 0, len(g.Tasks))
		for _, task := range g.Tasks {
			lines = append(lines, TaskLine(task))
		}
		body := "(no tasks)"
		if len(lines) > 0 {
			body = strings.Join(lines, "\n")
		}
		title := fmt.Sprintf("%s [%s]", g.Segment.Body.Name, g.Segment.ID)
		panels = append(panels, RenderPanel(title, body, g.Segment.Body.Hue, panelWidth))
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

func ScheduleText(scheduled []schedule.Scheduled) string {
	if len(scheduled) == 0 {
		return "(nothing scheduled)"
	}
	var b strings.Builder
	for _, s := range scheduled {
		fmt.Fprintf(&b, "%-16s %s (%s)\n",
			datetime.FormatDatetime(s.When.Local()),
			s.Task.Body.Content,
			datetime.FormatDuration(int64(s.Task.Body.Duration/time.Second)),
		)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderReminder(r reminder.Reminder) string {
	level := "START"
	if r.Kind == reminder.KindDeadline {
		level = "DEADLINE"
	}
	return fmt.Sprintf("[%s] %s", level, r)
}
