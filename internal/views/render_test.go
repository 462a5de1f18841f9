package views

import (
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/eva/internal/docstore"
	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/reminder"
	"github.com/sandeepkv93/eva/internal/schedule"
)

func sampleGroups() []docstore.SegmentTasks {
	start := time.Date(2020, 2, 17, 9, 0, 0, 0, time.Local)
	return []docstore.SegmentTasks{
		{
			Segment: docstore.Doc[model.TimeSegment]{ID: 0, Body: model.TimeSegment{
				Name: "Default", Start: start, Period: 7 * 24 * time.Hour, Hue: 210,
				Ranges: []model.Range{{Start: start, End: start.Add(8 * time.Hour)}},
			}},
			Tasks: []docstore.Doc[model.Task]{{ID: 11, Body: model.Task{
				Content:    "Write report",
				Deadline:   time.Date(2020, 2, 20, 18, 0, 0, 0, time.Local),
				Duration:   90 * time.Minute,
				Importance: 7,
			}}},
		},
		{
			Segment: docstore.Doc[model.TimeSegment]{ID: 9, Body: model.TimeSegment{Name: "Evenings", Hue: 30}},
		},
	}
}

func TestSegmentColor(t *testing.T) {
	if got := string(SegmentColor(0)); got != "#d96262" {
		t.Fatalf("unexpected colour for hue 0: %s", got)
	}
	if SegmentColor(0) == SegmentColor(180) {
		t.Fatal("different hues should give different colours")
	}
}

func TestTaskLine(t *testing.T) {
	got := TaskLine(sampleGroups()[0].Tasks[0])
	want := "[11] Write report (due 20/2 18:00, 1h30, importance 7)"
	if got != want {
		t.Fatalf("unexpected task line:\n got %q\nwant %q", got, want)
	}
}

func TestAgendaMarkdown(t *testing.T) {
	md := AgendaMarkdown(sampleGroups())
	for _, want := range []string{"## Default", "- [11] Write report", "## Evenings", "_no tasks_"} {
		if !strings.Contains(md, want) {
			t.Fatalf("agenda missing %q:\n%s", want, md)
		}
	}
	if strings.Index(md, "## Default") > strings.Index(md, "## Evenings") {
		t.Fatalf("segments out of order:\n%s", md)
	}
}

func TestRenderAgendaKeepsEverySegment(t *testing.T) {
	out := RenderAgenda(sampleGroups())
	for _, want := range []string{"Default [0]", "Evenings [9]", "Write report", "(no tasks)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered agenda missing %q:\n%s", want, out)
		}
	}
	if RenderAgenda(nil) != "(no time segments)" {
		t.Fatal("expected placeholder for an empty agenda")
	}
}

func TestSegmentLines(t *testing.T) {
	out := SegmentLines(sampleGroups()[0].Segment)
	if !strings.HasPrefix(out, "every week from ") || !strings.Contains(out, "Mon 09:00-17:00") {
		t.Fatalf("unexpected segment lines:\n%s", out)
	}
}

func TestScheduleTextAndReminder(t *testing.T) {
	task := sampleGroups()[0].Tasks[0]
	text := ScheduleText([]schedule.Scheduled{{Task: task, When: time.Date(2020, 2, 18, 9, 0, 0, 0, time.Local)}})
	if !strings.Contains(text, "18/2 9:00") || !strings.Contains(text, "Write report (1h30)") {
		t.Fatalf("unexpected schedule text: %q", text)
	}
	if ScheduleText(nil) != "(nothing scheduled)" {
		t.Fatal("expected placeholder for an empty schedule")
	}

	got := RenderReminder(reminder.Reminder{TaskID: 11, Content: "Write report", Kind: reminder.KindDeadline})
	if got != `[DEADLINE] Deadline of "Write report" reached` {
		t.Fatalf("unexpected reminder: %q", got)
	}
}

func TestRenderPage(t *testing.T) {
	out := RenderPage(Page{Header: "eva", Body: "body", Status: "error: nope", Footer: "q to quit"})
	for _, want := range []string{"eva", "body", "error: nope", "q to quit"} {
		if !strings.Contains(out, want) {
			t.Fatalf("page missing %q:\n%s", want, out)
		}
	}
	if RenderMarkdown("  ") != "" {
		t.Fatal("expected empty markdown to render empty")
	}
}
