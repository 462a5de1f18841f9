package storage

import (
	"encoding/json"
	"time"
)

// IDField names the document id in queries, sort keys and indexes. Every
// other field name is a top-level key of the JSON body.
const IDField = "_id"

// Document is a schema-less JSON body stored under an id. Rev changes on
// every write and must be presented to update or remove the document.
type Document struct {
	ID        string
	Rev       string
	Body      json.RawMessage
	UpdatedAt time.Time
}

// Condition matches documents whose field equals Value.
type Condition struct {
	Field string
	Value any
}

type SortKey struct {
	Field   string
	Numeric bool
}

// Query selects documents matching every condition. Without OrderBy the
// result is ordered by id as text.
type Query struct {
	Where   []Condition
	OrderBy []SortKey
}

// Index is a secondary index over one or more document fields.
type Index struct {
	Name   string
	Fields []string
}
