package docstore

import (
	"context"

	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/storage"
)

// SegmentTasks pairs a time segment with the tasks scheduled in it.
type SegmentTasks struct {
	Segment Doc[model.TimeSegment]
	Tasks   []Doc[model.Task]
}

var byNumericID = storage.SortKey{Field: storage.IDField, Numeric: true}

func ofKind(kind model.Kind) storage.Condition {
	return storage.Condition{Field: fieldKind, Value: string(kind)}
}

func tasksInSegment(id model.ID) storage.Query {
	return storage.Query{Where: []storage.Condition{
		{Field: fieldTimeSegmentID, Value: int64(id)},
		ofKind(model.KindTask),
	}}
}

func (s *Store) AllTasks(ctx context.Context) ([]Doc[model.Task], error) {
	docs, err := s.repo.Find(ctx, storage.Query{
		Where:   []storage.Condition{ofKind(model.KindTask)},
		OrderBy: []storage.SortKey{byNumericID},
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Task](docs)
}

// TasksForTimeSegment uses the (time_segment_id, kind) index.
func (s *Store) TasksForTimeSegment(ctx context.Context, id model.ID) ([]Doc[model.Task], error) {
	q := tasksInSegment(id)
	q.OrderBy = []storage.SortKey{byNumericID}
	docs, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Task](docs)
}

func (s *Store) AllTimeSegments(ctx context.Context) ([]Doc[model.TimeSegment], error) {
	docs, err := s.repo.Find(ctx, storage.Query{
		Where:   []storage.Condition{ofKind(model.KindTimeSegment)},
		OrderBy: []storage.SortKey{byNumericID},
	})
	if err != nil {
		return nil, err
	}
	return decodeAll[model.TimeSegment](docs)
}

// AllTasksPerTimeSegment returns every time segment in id order with its
// tasks, including segments that have none. It merges tasks sorted by time
// segment id with segments sorted by id, and reports an IntegrityError when
// either side is out of order or a task points at no segment.
func (s *Store) AllTasksPerTimeSegment(ctx context.Context) ([]SegmentTasks, error) {
	taskDocs, err := s.repo.Find(ctx, storage.Query{
		Where: []storage.Condition{ofKind(model.KindTask)},
		OrderBy: []storage.SortKey{
			{Field: fieldTimeSegmentID, Numeric: true},
			byNumericID,
		},
	})
	if err != nil {
		return nil, err
	}
	tasks, err := decodeAll[model.Task](taskDocs)
	if err != nil {
		return nil, err
	}
	segments, err := s.AllTimeSegments(ctx)
	if err != nil {
		return nil, err
	}
	return mergeSegmentTasks(segments, tasks)
}

func mergeSegmentTasks(segments []Doc[model.TimeSegment], tasks []Doc[model.Task]) ([]SegmentTasks, error) {
	for i := 1; i < len(segments); i++ {
		if segments[i-1].ID >= segments[i].ID {
			return nil, integrityf(RuleUnsortedIDs, "time segment %s sorted before %s",
				segments[i-1].ID, segments[i].ID)
		}
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1].Body.TimeSegmentID > tasks[i].Body.TimeSegmentID {
			return nil, integrityf(RuleUnsortedIDs, "task %s sorted before task %s",
				tasks[i-1].ID, tasks[i].ID)
		}
	}

	out := make([]SegmentTasks, 0, len(segments))
	next := 0
	for _, seg := range segments {
		if next < len(tasks) && tasks[next].Body.TimeSegmentID < seg.ID {
			return nil, dangling(tasks[next])
		}
		start := next
		for next < len(tasks) && tasks[next].Body.TimeSegmentID == seg.ID {
			next++
		}
		out = append(out, SegmentTasks{Segment: seg, Tasks: tasks[start:next:next]})
	}
	if next < len(tasks) {
		return nil, dangling(tasks[next])
	}
	return out, nil
}

func dangling(task Doc[model.Task]) error {
	return integrityf(RuleDanglingTask, "task %s belongs to missing time segment %s",
		task.ID, task.Body.TimeSegmentID)
}
