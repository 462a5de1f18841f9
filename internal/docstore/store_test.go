package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/storage"
)

var testNow = time.Date(2026, 2, 11, 10, 30, 0, 0, time.Local)

func setupRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "eva-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// counter hands out ids from first upwards.
func counter(first model.ID) func() model.ID {
	next := first
	return func() model.ID {
		id := next
		next++
		return id
	}
}

func testOptions() Options {
	return Options{
		Logger: DiscardLogger(),
		Now:    func() time.Time { return testNow },
		Hue:    func() int { return 123 },
		NextID: counter(9),
	}
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), setupRepo(t), testOptions())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func sampleTask(segment model.ID, content string) model.Task {
	return model.Task{
		Content:       content,
		Deadline:      time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC),
		Duration:      90 * time.Minute,
		Importance:    5,
		TimeSegmentID: segment,
	}
}

func sampleSegment(name string) model.TimeSegment {
	start := time.Date(2026, 2, 9, 18, 0, 0, 0, time.UTC)
	return model.TimeSegment{
		Name:   name,
		Start:  start,
		Period: 7 * 24 * time.Hour,
		Ranges: []model.Range{{Start: start, End: start.Add(2 * time.Hour)}},
	}
}

func TestAddTaskAssignsDistinctIDs(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	first, err := store.AddTask(ctx, sampleTask(DefaultTimeSegmentID, "Write report"))
	if err != nil {
		t.Fatalf("add first task: %v", err)
	}
	second, err := store.AddTask(ctx, sampleTask(DefaultTimeSegmentID, "Write report"))
	if err != nil {
		t.Fatalf("add second task: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("identical tasks share id %s", first.ID)
	}

	tasks, err := store.AllTasks(ctx)
	if err != nil {
		t.Fatalf("all tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestDefaultIDSourceIsStrictlyIncreasing(t *testing.T) {
	src := newIDSource(func() time.Time { return testNow })
	prev := src.next()
	for i := 0; i < 100; i++ {
		id := src.next()
		if id <= prev {
			t.Fatalf("id %s not after %s", id, prev)
		}
		prev = id
	}
}

func TestCreateRejectsTakenID(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	if _, err := store.Create(ctx, 42, sampleTask(DefaultTimeSegmentID, "a")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, 42, sampleTask(DefaultTimeSegmentID, "b")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got: %v", err)
	}
	if _, err := store.Create(ctx, DefaultTimeSegmentID, sampleSegment("Evenings")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on the default segment id, got: %v", err)
	}
}

func TestGetMissingDocument(t *testing.T) {
	store := setupStore(t)
	if _, err := store.Get(t.Context(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	if err := store.DeleteRegardlessOfRevision(t.Context(), 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got: %v", err)
	}
}

func TestUpdateRevisionContract(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	rev1, err := store.Create(ctx, 1, sampleTask(DefaultTimeSegmentID, "draft"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	rev2, err := store.Update(ctx, Document{ID: 1, Rev: rev1, Body: sampleTask(DefaultTimeSegmentID, "second")})
	if err != nil {
		t.Fatalf("update with current revision: %v", err)
	}
	if rev2 == rev1 {
		t.Fatal("update did not change the revision")
	}

	_, err = store.Update(ctx, Document{ID: 1, Rev: rev1, Body: sampleTask(DefaultTimeSegmentID, "stale")})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale revision, got: %v", err)
	}
	if err := store.Delete(ctx, 1, rev1); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict deleting with stale revision, got: %v", err)
	}

	got, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Rev != rev2 || got.Body.(model.Task).Content != "second" {
		t.Fatalf("unexpected document after conflicts: %#v", got)
	}

	if err := store.Delete(ctx, 1, rev2); err != nil {
		t.Fatalf("delete with current revision: %v", err)
	}
	if _, err := store.Get(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got: %v", err)
	}
}

func TestUpdateRegardlessOfRevision(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	if _, err := store.Create(ctx, 1, sampleTask(DefaultTimeSegmentID, "one")); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, content := range []string{"two", "three"} {
		if _, err := store.UpdateRegardlessOfRevision(ctx, 1, sampleTask(DefaultTimeSegmentID, content)); err != nil {
			t.Fatalf("update to %q: %v", content, err)
		}
	}
	got, err := store.GetTask(ctx, 1)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Body.Content != "three" || !strings.HasPrefix(string(got.Rev), "3-") {
		t.Fatalf("unexpected task: %#v", got)
	}
}

func TestRoundTripKeepsFields(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	want := sampleTask(DefaultTimeSegmentID, "Call the bank")
	added, err := store.AddTask(ctx, want)
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	got, err := store.GetTask(ctx, added.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !got.Body.Deadline.Equal(want.Deadline) || got.Body.Duration != want.Duration ||
		got.Body.Importance != want.Importance || got.Body.Content != want.Content {
		t.Fatalf("task changed on round trip: %#v", got.Body)
	}

	seg, err := store.AddTimeSegment(ctx, sampleSegment("Evenings"))
	if err != nil {
		t.Fatalf("add time segment: %v", err)
	}
	gotSeg, err := store.GetTimeSegment(ctx, seg.ID)
	if err != nil {
		t.Fatalf("get time segment: %v", err)
	}
	if gotSeg.Body.Hue != 123 || gotSeg.Body.Period != 7*24*time.Hour || len(gotSeg.Body.Ranges) != 1 ||
		!gotSeg.Body.Ranges[0].End.Equal(sampleSegment("x").Ranges[0].End) {
		t.Fatalf("time segment changed on round trip: %#v", gotSeg.Body)
	}
}

func TestTaskRequiresExistingSegment(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	_, err := store.AddTask(ctx, sampleTask(77, "orphan"))
	var integrity *IntegrityError
	if !errors.As(err, &integrity) || integrity.Rule != RuleMissingSegment {
		t.Fatalf("expected missing segment violation, got: %v", err)
	}
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got: %v", err)
	}

	task, err := store.AddTask(ctx, sampleTask(DefaultTimeSegmentID, "homed"))
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	// A task id is not a segment id.
	if _, err := store.UpdateTask(ctx, task.ID, sampleTask(task.ID, "self")); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity pointing a task at a task, got: %v", err)
	}
}

func TestInvalidBodiesAreRejected(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	bad := sampleTask(DefaultTimeSegmentID, "zero duration")
	bad.Duration = 0
	if _, err := store.AddTask(ctx, bad); !errors.Is(err, model.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got: %v", err)
	}
	if _, err := store.Create(ctx, 5, model.Metadata{SchemaVersion: 3}); err == nil {
		t.Fatal("expected metadata writes to be refused")
	}
}

func TestKindIsFixed(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	seg, err := store.AddTimeSegment(ctx, sampleSegment("Evenings"))
	if err != nil {
		t.Fatalf("add time segment: %v", err)
	}
	_, err = store.Update(ctx, Document{ID: seg.ID, Rev: seg.Rev, Body: sampleTask(DefaultTimeSegmentID, "sneaky")})
	var integrity *IntegrityError
	if !errors.As(err, &integrity) || integrity.Rule != RuleKindChange {
		t.Fatalf("expected kind change violation, got: %v", err)
	}
	if err := store.DeleteTask(ctx, seg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting a segment as a task, got: %v", err)
	}
}

func TestUpdateTimeSegmentKeepsHue(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	seg, err := store.AddTimeSegment(ctx, sampleSegment("Evenings"))
	if err != nil {
		t.Fatalf("add time segment: %v", err)
	}
	renamed := seg.Body
	renamed.Name = "Late evenings"
	renamed.Hue = 7
	updated, err := store.UpdateTimeSegment(ctx, seg.ID, renamed)
	if err != nil {
		t.Fatalf("update time segment: %v", err)
	}
	if updated.Body.Hue != 123 {
		t.Fatalf("expected hue 123 to be kept, got %d", updated.Body.Hue)
	}

	// The generic update path keeps it as well.
	renamed.Hue = 200
	if _, err := store.Update(ctx, Document{ID: seg.ID, Rev: updated.Rev, Body: renamed}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.GetTimeSegment(ctx, seg.ID)
	if err != nil {
		t.Fatalf("get time segment: %v", err)
	}
	if got.Body.Hue != 123 || got.Body.Name != "Late evenings" {
		t.Fatalf("unexpected time segment: %#v", got.Body)
	}
}

func TestDeleteReferencedTimeSegment(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	seg, err := store.AddTimeSegment(ctx, sampleSegment("Evenings"))
	if err != nil {
		t.Fatalf("add time segment: %v", err)
	}
	first, err := store.AddTask(ctx, sampleTask(seg.ID, "one"))
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	err = store.DeleteTimeSegment(ctx, seg.ID)
	var integrity *IntegrityError
	if !errors.As(err, &integrity) || integrity.Rule != RuleSegmentInUse {
		t.Fatalf("expected segment in use violation, got: %v", err)
	}
	if !strings.Contains(integrity.Message, "There is still a task") {
		t.Fatalf("unexpected message: %q", integrity.Message)
	}

	second, err := store.AddTask(ctx, sampleTask(seg.ID, "two"))
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	err = store.DeleteTimeSegment(ctx, seg.ID)
	if !errors.As(err, &integrity) || !strings.Contains(integrity.Message, "There are still 2 tasks") {
		t.Fatalf("expected plural message, got: %v", err)
	}

	for _, id := range []model.ID{first.ID, second.ID} {
		if err := store.DeleteTask(ctx, id); err != nil {
			t.Fatalf("delete task %s: %v", id, err)
		}
	}
	if err := store.DeleteTimeSegment(ctx, seg.ID); err != nil {
		t.Fatalf("delete unreferenced time segment: %v", err)
	}
}

func TestIDsStayWithinSQLiteIntegers(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	if _, err := store.Create(ctx, model.MaxID+1, sampleSegment("Overflow")); !errors.Is(err, model.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID above MaxID, got: %v", err)
	}
	if _, err := store.Create(ctx, model.MaxID, sampleSegment("Edge")); err != nil {
		t.Fatalf("create segment at MaxID: %v", err)
	}
	if _, err := store.Create(ctx, 5, sampleTask(model.MaxID, "Edge task")); err != nil {
		t.Fatalf("create task in segment MaxID: %v", err)
	}

	tasks, err := store.TasksForTimeSegment(ctx, model.MaxID)
	if err != nil {
		t.Fatalf("tasks for segment: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != 5 {
		t.Fatalf("expected task 5 in segment MaxID, got %#v", tasks)
	}
	if err := store.DeleteRegardlessOfRevision(ctx, model.MaxID); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity deleting a referenced segment, got: %v", err)
	}
	if _, err := store.AllTasksPerTimeSegment(ctx); err != nil {
		t.Fatalf("grouping after refused delete: %v", err)
	}
}

func TestDeleteLastTimeSegment(t *testing.T) {
	store := setupStore(t)
	ctx := t.Context()

	err := store.DeleteTimeSegment(ctx, DefaultTimeSegmentID)
	var integrity *IntegrityError
	if !errors.As(err, &integrity) || integrity.Rule != RuleLastSegment {
		t.Fatalf("expected last segment violation, got: %v", err)
	}

	segments, err := store.AllTimeSegments(ctx)
	if err != nil {
		t.Fatalf("all time segments: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected the default segment to survive, got %d segments", len(segments))
	}

	if _, err := store.AddTimeSegment(ctx, sampleSegment("Evenings")); err != nil {
		t.Fatalf("add time segment: %v", err)
	}
	if err := store.DeleteTimeSegment(ctx, DefaultTimeSegmentID); err != nil {
		t.Fatalf("delete default segment once another exists: %v", err)
	}
}

func TestStoresAreIndependent(t *testing.T) {
	a := setupStore(t)
	b := setupStore(t)
	ctx := t.Context()

	if _, err := a.AddTask(ctx, sampleTask(DefaultTimeSegmentID, "only in a")); err != nil {
		t.Fatalf("add task: %v", err)
	}
	tasks, err := b.AllTasks(ctx)
	if err != nil {
		t.Fatalf("all tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected an empty second store, got %d tasks", len(tasks))
	}
}
