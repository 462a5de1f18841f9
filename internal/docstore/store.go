package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/sandeepkv93/eva/internal/datetime"
	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/storage"
)

// Revision is the opaque token of one stored version of a document.
type Revision string

// Doc is a stored body with its id and revision.
type Doc[T model.Body] struct {
	ID   model.ID
	Rev  Revision
	Body T
}

// Document is a stored body of any kind.
type Document = Doc[model.Body]

// Options configures a Store. Zero values select the defaults.
type Options struct {
	Logger *log.Logger
	// Now is the clock used to seed the default time segment.
	Now func() time.Time
	// Hue draws the hue of new and migrated time segments.
	Hue func() int
	// NextID allocates ids for AddTask and AddTimeSegment.
	NextID func() model.ID
	// Workday bounds of the default time segment's daily ranges.
	WorkdayStart datetime.Hour
	WorkdayEnd   datetime.Hour
}

const (
	DefaultWorkdayStart datetime.Hour = 9
	DefaultWorkdayEnd   datetime.Hour = 17
)

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "[docstore] ", log.LstdFlags)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Hue == nil {
		o.Hue = func() int { return rand.IntN(model.HueCount) }
	}
	if o.NextID == nil {
		o.NextID = newIDSource(o.Now).next
	}
	if o.WorkdayStart == 0 && o.WorkdayEnd == 0 {
		o.WorkdayStart, o.WorkdayEnd = DefaultWorkdayStart, DefaultWorkdayEnd
	}
	return o
}

// DiscardLogger is a logger for callers that want a silent store.
func DiscardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// Store is the typed document store. A Store is used from one goroutine at a
// time; conflicting writers are reported through revisions, not locks.
type Store struct {
	repo     storage.Repository
	opts     Options
	migrator *Migrator
}

// Open brings the schema of repo up to date and returns a store serving it.
// Any migration failure is fatal and wraps ErrMigration. Closing the store
// closes repo.
func Open(ctx context.Context, repo storage.Repository, opts Options) (*Store, error) {
	if repo == nil {
		return nil, errors.New("docstore: nil repository")
	}
	opts = opts.withDefaults()
	if opts.WorkdayEnd <= opts.WorkdayStart || opts.WorkdayEnd > 24 || opts.WorkdayStart < 0 {
		return nil, fmt.Errorf("docstore: invalid workday %s-%s", opts.WorkdayStart, opts.WorkdayEnd)
	}
	s := &Store{repo: repo, opts: opts, migrator: newMigrator(repo, opts)}
	if err := s.migrator.Migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.repo.Close()
}

// SchemaVersion reports the version recorded in the metadata document.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return s.migrator.CurrentVersion(ctx)
}

// Create stores body under a caller-chosen id. ErrConflict if the id is taken.
func (s *Store) Create(ctx context.Context, id model.ID, body model.Body) (Revision, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}
	if err := s.checkWritable(ctx, body); err != nil {
		return "", err
	}
	raw, err := encodeBody(body)
	if err != nil {
		return "", err
	}
	rev, err := s.repo.Put(ctx, storage.Document{ID: id.String(), Body: raw})
	if err != nil {
		return "", translate(err)
	}
	return Revision(rev), nil
}

func (s *Store) Get(ctx context.Context, id model.ID) (Document, error) {
	doc, err := s.repo.Get(ctx, id.String())
	if err != nil {
		return Document{}, translate(err)
	}
	return decodeDocument(doc)
}

// Update replaces the body of doc.ID if doc.Rev is still the current
// revision, otherwise ErrConflict. The kind of a document never changes and
// a time segment keeps the hue it was created with.
func (s *Store) Update(ctx context.Context, doc Document) (Revision, error) {
	if err := s.checkWritable(ctx, doc.Body); err != nil {
		return "", err
	}
	current, err := s.Get(ctx, doc.ID)
	if err != nil {
		return "", err
	}
	body, err := keepStableFields(current.Body, doc.Body)
	if err != nil {
		return "", fmt.Errorf("update %s: %w", doc.ID, err)
	}
	raw, err := encodeBody(body)
	if err != nil {
		return "", err
	}
	rev, err := s.repo.Put(ctx, storage.Document{ID: doc.ID.String(), Rev: string(doc.Rev), Body: raw})
	if err != nil {
		return "", translate(err)
	}
	return Revision(rev), nil
}

// UpdateRegardlessOfRevision reads the current revision of id and updates
// against it. A write landing between the read and the update still fails
// with ErrConflict; otherwise the last writer wins.
func (s *Store) UpdateRegardlessOfRevision(ctx context.Context, id model.ID, body model.Body) (Revision, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.Update(ctx, Document{ID: id, Rev: current.Rev, Body: body})
}

// Delete removes id at revision rev. Time segments that are still referenced
// by a task, or that are the last one left, are refused with an
// IntegrityError.
func (s *Store) Delete(ctx context.Context, id model.ID, rev Revision) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, ok := current.Body.(model.TimeSegment); ok {
		if err := s.checkSegmentRemovable(ctx, id); err != nil {
			return err
		}
	}
	return translate(s.repo.Remove(ctx, id.String(), string(rev)))
}

// DeleteRegardlessOfRevision removes id at whatever revision it has, with
// the same race window as UpdateRegardlessOfRevision.
func (s *Store) DeleteRegardlessOfRevision(ctx context.Context, id model.ID) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.Delete(ctx, id, current.Rev)
}

func (s *Store) checkWritable(ctx context.Context, body model.Body) error {
	if body == nil {
		return errors.New("docstore: nil body")
	}
	if body.Kind() == model.KindMetadata {
		return errors.New("docstore: metadata is written by migrations only")
	}
	if err := body.Validate(); err != nil {
		return err
	}
	if task, ok := body.(model.Task); ok {
		return s.checkSegmentExists(ctx, task.TimeSegmentID)
	}
	return nil
}

func (s *Store) checkSegmentExists(ctx context.Context, id model.ID) error {
	doc, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return integrityf(RuleMissingSegment, "time segment %s does not exist", id)
	}
	if err != nil {
		return err
	}
	if doc.Body.Kind() != model.KindTimeSegment {
		return integrityf(RuleMissingSegment, "document %s is a %s, not a time segment", id, doc.Body.Kind())
	}
	return nil
}

func (s *Store) checkSegmentRemovable(ctx context.Context, id model.ID) error {
	tasks, err := s.repo.Count(ctx, tasksInSegment(id))
	if err != nil {
		return err
	}
	switch {
	case tasks == 1:
		return integrityf(RuleSegmentInUse, "There is still a task in this time segment. "+
			"Please delete it or move it to another segment before deleting this segment.")
	case tasks > 1:
		return integrityf(RuleSegmentInUse, "There are still %d tasks in this time segment. "+
			"Please delete them or move them to another segment before deleting this segment.", tasks)
	}
	segments, err := s.repo.Count(ctx, storage.Query{Where: []storage.Condition{
		{Field: fieldKind, Value: string(model.KindTimeSegment)},
	}})
	if err != nil {
		return err
	}
	if segments <= 1 {
		return integrityf(RuleLastSegment, "If you remove the last time segment, when should I schedule things?")
	}
	return nil
}

// keepStableFields refuses kind changes and carries the stored hue over.
func keepStableFields(current, next model.Body) (model.Body, error) {
	if current.Kind() != next.Kind() {
		return nil, integrityf(RuleKindChange, "cannot turn a %s into a %s", current.Kind(), next.Kind())
	}
	if seg, ok := next.(model.TimeSegment); ok {
		seg.Hue = current.(model.TimeSegment).Hue
		return seg, nil
	}
	return next, nil
}

// idSource hands out millisecond timestamps, bumped to stay strictly
// increasing within the process.
type idSource struct {
	mu   sync.Mutex
	now  func() time.Time
	last model.ID
}

func newIDSource(now func() time.Time) *idSource {
	return &idSource{now: now}
}

func (s *idSource) next() model.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := model.ID(s.now().UnixMilli())
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}
