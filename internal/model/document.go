package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var ErrInvalidID = errors.New("model: invalid document id")

// Kind tags a stored document with the shape of its body.
type Kind string

const (
	KindTask        Kind = "task"
	KindTimeSegment Kind = "time-segment"
	KindMetadata    Kind = "metadata"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindTimeSegment, KindMetadata:
		return true
	default:
		return false
	}
}

// Body is the payload of a stored document. The only implementations are
// Task, TimeSegment and Metadata.
type Body interface {
	Kind() Kind
	Validate() error
	isBody()
}

func (Task) Kind() Kind        { return KindTask }
func (TimeSegment) Kind() Kind { return KindTimeSegment }
func (Metadata) Kind() Kind    { return KindMetadata }

func (Task) isBody()        {}
func (TimeSegment) isBody() {}
func (Metadata) isBody()    {}

// ID identifies a task or time segment. IDs are numeric so that documents
// sorted by id and tasks sorted by time segment id line up.
type ID uint64

// MaxID is the largest id SQLite can compare as an integer.
const MaxID ID = math.MaxInt64

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

func (id ID) Validate() error {
	if id > MaxID {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidID, id, MaxID)
	}
	return nil
}

func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	id := ID(v)
	if err := id.Validate(); err != nil {
		return 0, err
	}
	return id, nil
}

// Metadata is the store's singleton bookkeeping document.
type Metadata struct {
	SchemaVersion int
}

func (m Metadata) Validate() error {
	if m.SchemaVersion < 0 {
		return fmt.Errorf("model: negative schema version %d", m.SchemaVersion)
	}
	return nil
}
