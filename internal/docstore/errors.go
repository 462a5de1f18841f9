package docstore

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/eva/internal/storage"
)

var (
	ErrNotFound  = errors.New("docstore: not found")
	ErrConflict  = errors.New("docstore: revision conflict")
	ErrIntegrity = errors.New("docstore: integrity violation")
	ErrMigration = errors.New("docstore: migration failed")
)

// Integrity rules reported by IntegrityError.
const (
	RuleMissingSegment    = "missing-time-segment"
	RuleSegmentInUse      = "time-segment-in-use"
	RuleLastSegment       = "last-time-segment"
	RuleKindChange        = "kind-change"
	RuleMalformedDocument = "malformed-document"
	RuleUnsortedIDs       = "unsorted-ids"
	RuleDanglingTask      = "dangling-task"
)

// IntegrityError reports a write refused by an explicit check, or stored data
// that breaks the store's invariants.
type IntegrityError struct {
	Rule    string
	Message string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("docstore: %s: %s", e.Rule, e.Message)
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }

func integrityf(rule, format string, args ...any) error {
	return &IntegrityError{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// engineError keeps the storage error text while matching the docstore
// sentinel.
type engineError struct {
	sentinel error
	err      error
}

func (e *engineError) Error() string   { return e.err.Error() }
func (e *engineError) Unwrap() []error { return []error{e.sentinel, e.err} }

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return &engineError{sentinel: ErrNotFound, err: err}
	case errors.Is(err, storage.ErrConflict):
		return &engineError{sentinel: ErrConflict, err: err}
	default:
		return err
	}
}
