// Package schedule is the boundary to the external scheduling algorithm. It
// sends every time segment with its tasks, timestamps in ISO-8601, and reads
// back the tasks in scheduled order, each with the instant it should start.
package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/eva/internal/docstore"
	"github.com/sandeepkv93/eva/internal/model"
)

var ErrMalformedResponse = errors.New("schedule: malformed response")

const timeLayout = time.RFC3339

type taskJSON struct {
	ID            model.ID `json:"id"`
	Content       string   `json:"content"`
	Deadline      string   `json:"deadline"`
	Duration      int64    `json:"duration"`
	Importance    int      `json:"importance"`
	TimeSegmentID model.ID `json:"time_segment_id"`
}

type rangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type segmentJSON struct {
	ID     model.ID    `json:"id"`
	Name   string      `json:"name"`
	Start  string      `json:"start"`
	Period int64       `json:"period"`
	Ranges []rangeJSON `json:"ranges"`
	Hue    int         `json:"hue"`
	Tasks  []taskJSON  `json:"tasks"`
}

type requestJSON struct {
	TimeSegments []segmentJSON `json:"time_segments"`
}

type scheduledJSON struct {
	Task taskJSON `json:"task"`
	When string   `json:"when"`
}

// Scheduled is a task and the instant it is planned to start.
type Scheduled struct {
	Task docstore.Doc[model.Task]
	When time.Time
}

func iso(t time.Time) string { return t.UTC().Format(timeLayout) }

func encodeTask(doc docstore.Doc[model.Task]) taskJSON {
	return taskJSON{
		ID:            doc.ID,
		Content:       doc.Body.Content,
		Deadline:      iso(doc.Body.Deadline),
		Duration:      int64(doc.Body.Duration / time.Second),
		Importance:    doc.Body.Importance,
		TimeSegmentID: doc.Body.TimeSegmentID,
	}
}

// EncodeRequest renders groups as the scheduler's input document.
func EncodeRequest(groups []docstore.SegmentTasks) ([]byte, error) {
	req := requestJSON{TimeSegments: make([]segmentJSON, 0, len(groups))}
	for _, g := range groups {
		seg := g.Segment.Body
		out := segmentJSON{
			ID:     g.Segment.ID,
			Name:   seg.Name,
			Start:  iso(seg.Start),
			Period: int64(seg.Period / time.Second),
			Ranges: make([]rangeJSON, 0, len(seg.Ranges)),
			Hue:    seg.Hue,
			Tasks:  make([]taskJSON, 0, len(g.Tasks)),
		}
		for _, r := range seg.Ranges {
			out.Ranges = append(out.Ranges, rangeJSON{Start: iso(r.Start), End: iso(r.End)})
		}
		for _, task := range g.Tasks {
			out.Tasks = append(out.Tasks, encodeTask(task))
		}
		req.TimeSegments = append(req.TimeSegments, out)
	}
	return json.Marshal(req)
}

// DecodeResponse parses the scheduler's output, keeping its order.
func DecodeResponse(data []byte) ([]Scheduled, error) {
	var raw []scheduledJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	out := make([]Scheduled, 0, len(raw))
	for i, item := range raw {
		when, err := time.Parse(time.RFC3339Nano, item.When)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: when: %v", ErrMalformedResponse, i, err)
		}
		deadline, err := time.Parse(time.RFC3339Nano, item.Task.Deadline)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: deadline: %v", ErrMalformedResponse, i, err)
		}
		out = append(out, Scheduled{
			Task: docstore.Doc[model.Task]{
				ID: item.Task.ID,
				Body: model.Task{
					Content:       item.Task.Content,
					Deadline:      deadline,
					Duration:      time.Duration(item.Task.Duration) * time.Second,
					Importance:    item.Task.Importance,
					TimeSegmentID: item.Task.TimeSegmentID,
				},
			},
			When: when,
		})
	}
	return out, nil
}
