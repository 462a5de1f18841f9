package docstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/storage"
)

// Field names of the stored JSON bodies. Queries and indexes refer to them.
const (
	fieldKind          = "kind"
	fieldTimeSegmentID = "time_segment_id"
	fieldHue           = "hue"
)

const timeLayout = time.RFC3339Nano

type taskJSON struct {
	Kind          model.Kind `json:"kind"`
	Content       string     `json:"content"`
	Deadline      string     `json:"deadline"`
	Duration      int64      `json:"duration"`
	Importance    int        `json:"importance"`
	TimeSegmentID model.ID   `json:"time_segment_id"`
}

type segmentJSON struct {
	Kind   model.Kind  `json:"kind"`
	Name   string      `json:"name"`
	Start  string      `json:"start"`
	Period int64       `json:"period"`
	Ranges []rangeJSON `json:"ranges"`
	Hue    *int        `json:"hue,omitempty"`
}

// rangeJSON is stored as a [start, end] pair.
type rangeJSON [2]string

type metadataJSON struct {
	Kind          model.Kind `json:"kind"`
	SchemaVersion int        `json:"schema_version"`
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(field, v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

func seconds(d time.Duration) int64 { return int64(d / time.Second) }

func segmentToJSON(s model.TimeSegment) segmentJSON {
	ranges := make([]rangeJSON, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		ranges = append(ranges, rangeJSON{formatTime(r.Start), formatTime(r.End)})
	}
	hue := s.Hue
	return segmentJSON{
		Kind:   model.KindTimeSegment,
		Name:   s.Name,
		Start:  formatTime(s.Start),
		Period: seconds(s.Period),
		Ranges: ranges,
		Hue:    &hue,
	}
}

func encodeBody(body model.Body) (json.RawMessage, error) {
	var v any
	switch b := body.(type) {
	case model.Task:
		v = taskJSON{
			Kind:          model.KindTask,
			Content:       b.Content,
			Deadline:      formatTime(b.Deadline),
			Duration:      seconds(b.Duration),
			Importance:    b.Importance,
			TimeSegmentID: b.TimeSegmentID,
		}
	case model.TimeSegment:
		v = segmentToJSON(b)
	case model.Metadata:
		v = metadataJSON{Kind: model.KindMetadata, SchemaVersion: b.SchemaVersion}
	default:
		return nil, fmt.Errorf("docstore: unsupported body %T", body)
	}
	return json.Marshal(v)
}

func decodeBody(id string, raw json.RawMessage) (model.Body, error) {
	var head struct {
		Kind model.Kind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, integrityf(RuleMalformedDocument, "document %s: %v", id, err)
	}
	body, err := decodeKind(head.Kind, raw)
	if err != nil {
		return nil, integrityf(RuleMalformedDocument, "document %s: %v", id, err)
	}
	return body, nil
}

func decodeKind(kind model.Kind, raw json.RawMessage) (model.Body, error) {
	switch kind {
	case model.KindTask:
		var w taskJSON
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		deadline, err := parseTime("deadline", w.Deadline)
		if err != nil {
			return nil, err
		}
		return model.Task{
			Content:       w.Content,
			Deadline:      deadline,
			Duration:      time.Duration(w.Duration) * time.Second,
			Importance:    w.Importance,
			TimeSegmentID: w.TimeSegmentID,
		}, nil
	case model.KindTimeSegment:
		var w segmentJSON
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		if w.Hue == nil {
			return nil, fmt.Errorf("time segment %q has no hue", w.Name)
		}
		start, err := parseTime("start", w.Start)
		if err != nil {
			return nil, err
		}
		seg := model.TimeSegment{
			Name:   w.Name,
			Start:  start,
			Period: time.Duration(w.Period) * time.Second,
			Ranges: make([]model.Range, 0, len(w.Ranges)),
			Hue:    *w.Hue,
		}
		for i, r := range w.Ranges {
			rs, err := parseTime(fmt.Sprintf("ranges[%d].start", i), r[0])
			if err != nil {
				return nil, err
			}
			re, err := parseTime(fmt.Sprintf("ranges[%d].end", i), r[1])
			if err != nil {
				return nil, err
			}
			seg.Ranges = append(seg.Ranges, model.Range{Start: rs, End: re})
		}
		return seg, nil
	case model.KindMetadata:
		var w metadataJSON
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		return model.Metadata{SchemaVersion: w.SchemaVersion}, nil
	case "":
		return nil, fmt.Errorf("untagged document")
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

// decodeDocument parses an engine document with a numeric id.
func decodeDocument(doc storage.Document) (Document, error) {
	id, err := model.ParseID(doc.ID)
	if err != nil {
		return Document{}, integrityf(RuleMalformedDocument, "%v", err)
	}
	body, err := decodeBody(doc.ID, doc.Body)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Rev: Revision(doc.Rev), Body: body}, nil
}

func decodeAs[T model.Body](doc storage.Document) (Doc[T], error) {
	d, err := decodeDocument(doc)
	if err != nil {
		return Doc[T]{}, err
	}
	body, ok := d.Body.(T)
	if !ok {
		var want T
		return Doc[T]{}, integrityf(RuleMalformedDocument, "document %s is a %s, not a %s",
			doc.ID, d.Body.Kind(), want.Kind())
	}
	return Doc[T]{ID: d.ID, Rev: d.Rev, Body: body}, nil
}

func decodeAll[T model.Body](docs []storage.Document) ([]Doc[T], error) {
	out := make([]Doc[T], 0, len(docs))
	for _, doc := range docs {
		d, err := decodeAs[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
