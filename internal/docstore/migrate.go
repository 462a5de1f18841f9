package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/sandeepkv93/eva/internal/datetime"
	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/storage"
)

const (
	// MetadataID is the fixed id of the metadata singleton.
	MetadataID = "metadata"
	// DefaultTimeSegmentID is the segment every pre-versioning task lands in.
	DefaultTimeSegmentID model.ID = 0
	DefaultTimeSegmentName        = "Default"
)

// Indexes created by the first migration step.
var schemaIndexes = []storage.Index{
	{Name: "kind", Fields: []string{fieldKind}},
	{Name: "id_kind", Fields: []string{storage.IDField, fieldKind}},
	{Name: "time_segment_id_kind", Fields: []string{fieldTimeSegmentID, fieldKind}},
}

type migrationStep struct {
	name  string
	apply func(m *Migrator, ctx context.Context) error
}

// steps[i] brings the schema from version i to i+1. Every step can be re-run
// after a partial failure.
var steps = []migrationStep{
	{name: "tag tasks and seed the default time segment", apply: (*Migrator).tagTasks},
	{name: "add hues to time segments", apply: (*Migrator).addHues},
}

// LatestVersion is the schema version Migrate brings a store to.
var LatestVersion = len(steps)

// Migrator applies the schema steps to a repository, recording progress in
// the metadata document.
type Migrator struct {
	repo   storage.Repository
	logger *log.Logger
	now    func() time.Time
	hue    func() int
	start  datetime.Hour
	end    datetime.Hour
}

func newMigrator(repo storage.Repository, opts Options) *Migrator {
	return &Migrator{
		repo:   repo,
		logger: opts.Logger,
		now:    opts.Now,
		hue:    opts.Hue,
		start:  opts.WorkdayStart,
		end:    opts.WorkdayEnd,
	}
}

// NewMigrator returns a migrator that is not tied to an open Store.
func NewMigrator(repo storage.Repository, opts Options) *Migrator {
	return newMigrator(repo, opts.withDefaults())
}

// CurrentVersion is 0 for a store that has never been migrated.
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	meta, _, err := m.metadata(ctx)
	if err != nil {
		return 0, err
	}
	return meta.SchemaVersion, nil
}

func (m *Migrator) Migrate(ctx context.Context) error {
	return m.MigrateTo(ctx, LatestVersion)
}

// MigrateTo applies the pending steps up to target. The version is written
// after each step completes, so an interrupted step runs again next time.
func (m *Migrator) MigrateTo(ctx context.Context, target int) error {
	if target < 0 || target > LatestVersion {
		return fmt.Errorf("%w: unknown target version %d", ErrMigration, target)
	}
	for {
		version, err := m.CurrentVersion(ctx)
		if err != nil {
			return fmt.Errorf("%w: read schema version: %w", ErrMigration, err)
		}
		if version > LatestVersion {
			return fmt.Errorf("%w: store is at schema version %d, newer than %d",
				ErrMigration, version, LatestVersion)
		}
		if version >= target {
			return nil
		}
		step := steps[version]
		if err := step.apply(m, ctx); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrMigration, version+1, step.name, err)
		}
		if err := m.setVersion(ctx, version+1); err != nil {
			return fmt.Errorf("%w: record version %d: %w", ErrMigration, version+1, err)
		}
		m.logger.Printf("migrate: schema at version %d (%s)", version+1, step.name)
	}
}

func (m *Migrator) metadata(ctx context.Context) (model.Metadata, string, error) {
	doc, err := m.repo.Get(ctx, MetadataID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Metadata{}, "", nil
	}
	if err != nil {
		return model.Metadata{}, "", err
	}
	body, err := decodeBody(doc.ID, doc.Body)
	if err != nil {
		return model.Metadata{}, "", err
	}
	meta, ok := body.(model.Metadata)
	if !ok {
		return model.Metadata{}, "", integrityf(RuleMalformedDocument, "%s document is a %s", MetadataID, body.Kind())
	}
	return meta, doc.Rev, meta.Validate()
}

func (m *Migrator) setVersion(ctx context.Context, version int) error {
	_, rev, err := m.metadata(ctx)
	if err != nil {
		return err
	}
	raw, err := encodeBody(model.Metadata{SchemaVersion: version})
	if err != nil {
		return err
	}
	_, err = m.repo.Put(ctx, storage.Document{ID: MetadataID, Rev: rev, Body: raw})
	return err
}

// tagTasks turns every untagged document into a task of the default time
// segment, creates that segment and the query indexes.
func (m *Migrator) tagTasks(ctx context.Context) error {
	docs, err := m.repo.AllDocuments(ctx)
	if err != nil {
		return err
	}
	writes := make([]storage.Document, 0, len(docs)+1)
	haveDefault := false
	for _, doc := range docs {
		if doc.ID == MetadataID {
			continue
		}
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(doc.Body, &fields); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if _, tagged := fields[fieldKind]; tagged {
			if doc.ID == DefaultTimeSegmentID.String() {
				haveDefault = true
			}
			continue
		}
		fields[fieldKind] = json.RawMessage(strconv.Quote(string(model.KindTask)))
		fields[fieldTimeSegmentID] = json.RawMessage(DefaultTimeSegmentID.String())
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		writes = append(writes, storage.Document{ID: doc.ID, Rev: doc.Rev, Body: raw})
	}
	if !haveDefault {
		raw, err := json.Marshal(defaultSegmentJSON(m.now(), m.start, m.end))
		if err != nil {
			return err
		}
		writes = append(writes, storage.Document{ID: DefaultTimeSegmentID.String(), Body: raw})
	}
	if len(writes) > 0 {
		if _, err := m.repo.BulkPut(ctx, writes); err != nil {
			return err
		}
	}
	for _, idx := range schemaIndexes {
		if err := m.repo.CreateIndex(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

// addHues draws a hue for every time segment that has none.
func (m *Migrator) addHues(ctx context.Context) error {
	docs, err := m.repo.Find(ctx, storage.Query{Where: []storage.Condition{ofKind(model.KindTimeSegment)}})
	if err != nil {
		return err
	}
	writes := make([]storage.Document, 0, len(docs))
	for _, doc := range docs {
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(doc.Body, &fields); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if _, ok := fields[fieldHue]; ok {
			continue
		}
		hue := m.hue()
		if hue < 0 || hue >= model.HueCount {
			return fmt.Errorf("%w: drawn %d", model.ErrInvalidHue, hue)
		}
		fields[fieldHue] = json.RawMessage(strconv.Itoa(hue))
		raw, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		writes = append(writes, storage.Document{ID: doc.ID, Rev: doc.Rev, Body: raw})
	}
	if len(writes) == 0 {
		return nil
	}
	_, err = m.repo.BulkPut(ctx, writes)
	return err
}

// defaultSegmentJSON is a weekly segment with one working-hours range per
// day, starting at the first upcoming range. It has no hue yet.
func defaultSegmentJSON(now time.Time, start, end datetime.Hour) segmentJSON {
	ranges := make([]model.Range, 0, 7)
	for day := datetime.Monday; day <= datetime.Sunday; day++ {
		from := datetime.FirstDayAndHourAfter(now, day, start)
		ranges = append(ranges, model.Range{Start: from, End: datetime.AddHours(from, int(end-start))})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start.Before(ranges[j].Start) })

	w := segmentToJSON(model.TimeSegment{
		Name:   DefaultTimeSegmentName,
		Start:  ranges[0].Start,
		Period: datetime.OneWeek,
		Ranges: ranges,
	})
	w.Hue = nil
	return w
}
