package docstore

import (
	"context"
	"fmt"

	"github.com/sandeepkv93/eva/internal/model"
)

// Task and time segment operations with store-assigned ids. Updates and
// deletes here go through the regardless-of-revision paths.

func (s *Store) AddTask(ctx context.Context, task model.Task) (Doc[model.Task], error) {
	id := s.opts.NextID()
	rev, err := s.Create(ctx, id, task)
	if err != nil {
		return Doc[model.Task]{}, err
	}
	s.opts.Logger.Printf("added task %s to time segment %s", id, task.TimeSegmentID)
	return Doc[model.Task]{ID: id, Rev: rev, Body: task}, nil
}

func (s *Store) GetTask(ctx context.Context, id model.ID) (Doc[model.Task], error) {
	return getAs[model.Task](ctx, s, id)
}

func (s *Store) UpdateTask(ctx context.Context, id model.ID, task model.Task) (Doc[model.Task], error) {
	if _, err := s.GetTask(ctx, id); err != nil {
		return Doc[model.Task]{}, err
	}
	rev, err := s.UpdateRegardlessOfRevision(ctx, id, task)
	if err != nil {
		return Doc[model.Task]{}, err
	}
	return Doc[model.Task]{ID: id, Rev: rev, Body: task}, nil
}

func (s *Store) DeleteTask(ctx context.Context, id model.ID) error {
	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	if err := s.DeleteRegardlessOfRevision(ctx, id); err != nil {
		return err
	}
	s.opts.Logger.Printf("deleted task %s", id)
	return nil
}

// AddTimeSegment draws the segment's hue; whatever Hue seg carries is
// ignored.
func (s *Store) AddTimeSegment(ctx context.Context, seg model.TimeSegment) (Doc[model.TimeSegment], error) {
	seg.Hue = s.opts.Hue()
	id := s.opts.NextID()
	rev, err := s.Create(ctx, id, seg)
	if err != nil {
		return Doc[model.TimeSegment]{}, err
	}
	s.opts.Logger.Printf("added time segment %s (%q)", id, seg.Name)
	return Doc[model.TimeSegment]{ID: id, Rev: rev, Body: seg}, nil
}

func (s *Store) GetTimeSegment(ctx context.Context, id model.ID) (Doc[model.TimeSegment], error) {
	return getAs[model.TimeSegment](ctx, s, id)
}

// UpdateTimeSegment replaces everything but the hue.
func (s *Store) UpdateTimeSegment(ctx context.Context, id model.ID, seg model.TimeSegment) (Doc[model.TimeSegment], error) {
	current, err := s.GetTimeSegment(ctx, id)
	if err != nil {
		return Doc[model.TimeSegment]{}, err
	}
	seg.Hue = current.Body.Hue
	rev, err := s.UpdateRegardlessOfRevision(ctx, id, seg)
	if err != nil {
		return Doc[model.TimeSegment]{}, err
	}
	return Doc[model.TimeSegment]{ID: id, Rev: rev, Body: seg}, nil
}

// DeleteTimeSegment refuses segments that still hold tasks and the last
// remaining segment.
func (s *Store) DeleteTimeSegment(ctx context.Context, id model.ID) error {
	if _, err := s.GetTimeSegment(ctx, id); err != nil {
		return err
	}
	if err := s.DeleteRegardlessOfRevision(ctx, id); err != nil {
		return err
	}
	s.opts.Logger.Printf("deleted time segment %s", id)
	return nil
}

func getAs[T model.Body](ctx context.Context, s *Store, id model.ID) (Doc[T], error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Doc[T]{}, err
	}
	body, ok := doc.Body.(T)
	if !ok {
		var want T
		return Doc[T]{}, fmt.Errorf("%w: %s is a %s, not a %s", ErrNotFound, id, doc.Body.Kind(), want.Kind())
	}
	return Doc[T]{ID: doc.ID, Rev: doc.Rev, Body: body}, nil
}
