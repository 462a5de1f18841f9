package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteTimeLayout = time.RFC3339Nano
	indexPrefix      = "idx_documents_"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteRepository keeps documents as JSON text in a single SQLite table and
// builds secondary indexes as expression indexes over json_extract.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens or creates the database file at path in WAL mode and
// brings the engine tables up to date. The caller must Close it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := MigrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	repo.path = path
	return repo, nil
}

// Close checkpoints the WAL so the main file is complete, then closes.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	if r.path != "" {
		if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
		}
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *SQLiteRepository) Put(ctx context.Context, doc Document) (string, error) {
	return put(ctx, r.db, doc)
}

// BulkPut writes all documents in one transaction: either every write
// succeeds or none is applied.
func (r *SQLiteRepository) BulkPut(ctx context.Context, docs []Document) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk put: %w", err)
	}
	defer tx.Rollback()

	revs := make([]string, 0, len(docs))
	for _, doc := range docs {
		rev, putErr := put(ctx, tx, doc)
		if putErr != nil {
			return nil, fmt.Errorf("bulk put %s: %w", doc.ID, putErr)
		}
		revs = append(revs, rev)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk put: %w", err)
	}
	return revs, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (Document, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, rev, body, updated_at
		FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: document %s", ErrNotFound, id)
		}
		return Document{}, err
	}
	return doc, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id, rev string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND rev = ?`, id, rev)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return missOrConflict(ctx, r.db, id, rev)
	}
	return nil
}

func (r *SQLiteRepository) AllDocuments(ctx context.Context) ([]Document, error) {
	return r.Find(ctx, Query{})
}

func (r *SQLiteRepository) Find(ctx context.Context, q Query) ([]Document, error) {
	where, args, err := buildWhere(q.Where)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(q.OrderBy)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, rev, body, updated_at FROM documents`+where+` ORDER BY `+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, scanErr := scanDocument(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Count(ctx context.Context, q Query) (int, error) {
	where, args, err := buildWhere(q.Where)
	if err != nil {
		return 0, err
	}
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CreateIndex is idempotent.
func (r *SQLiteRepository) CreateIndex(ctx context.Context, idx Index) error {
	if !namePattern.MatchString(idx.Name) {
		return fmt.Errorf("storage: invalid index name %q", idx.Name)
	}
	if len(idx.Fields) == 0 {
		return fmt.Errorf("storage: index %s has no fields", idx.Name)
	}
	exprs := make([]string, 0, len(idx.Fields))
	for _, field := range idx.Fields {
		expr, err := fieldExpr(field)
		if err != nil {
			return err
		}
		exprs = append(exprs, expr)
	}
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s%s ON documents (%s)",
		indexPrefix, idx.Name, strings.Join(exprs, ", "))
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create index %s: %w", idx.Name, err)
	}
	return nil
}

func (r *SQLiteRepository) Indexes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'index' AND tbl_name = 'documents' AND substr(name, 1, ?) = ?
		ORDER BY name`, len(indexPrefix), indexPrefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimPrefix(name, indexPrefix))
	}
	return out, rows.Err()
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func put(ctx context.Context, q queryer, doc Document) (string, error) {
	if doc.ID == "" {
		return "", errors.New("storage: document id is required")
	}
	if !json.Valid(doc.Body) {
		return "", fmt.Errorf("storage: document %s has an invalid JSON body", doc.ID)
	}
	now := mustTime(time.Now())
	suffix := revisionSuffix()

	var rev string
	if doc.Rev == "" {
		err := q.QueryRowContext(ctx, `
			INSERT INTO documents (id, rev, generation, body, updated_at)
			VALUES (?, '1-' || ?, 1, ?, ?)
			ON CONFLICT(id) DO NOTHING
			RETURNING rev`,
			doc.ID, suffix, string(doc.Body), now,
		).Scan(&rev)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: document %s already exists", ErrConflict, doc.ID)
		}
		return rev, err
	}

	err := q.QueryRowContext(ctx, `
		UPDATE documents
		SET rev = (generation + 1) || '-' || ?, generation = generation + 1, body = ?, updated_at = ?
		WHERE id = ? AND rev = ?
		RETURNING rev`,
		suffix, string(doc.Body), now, doc.ID, doc.Rev,
	).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", missOrConflict(ctx, q, doc.ID, doc.Rev)
	}
	return rev, err
}

// missOrConflict explains why a revision-checked write matched no row.
func missOrConflict(ctx context.Context, q queryer, id, rev string) error {
	var current string
	err := q.QueryRowContext(ctx, `SELECT rev FROM documents WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: document %s is at revision %s, not %s", ErrConflict, id, current, rev)
}

// revisionSuffix makes revisions unique even when two writers produce the
// same generation.
func revisionSuffix() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

func fieldExpr(field string) (string, error) {
	if field == IDField {
		return "id", nil
	}
	if !namePattern.MatchString(field) {
		return "", fmt.Errorf("storage: invalid field name %q", field)
	}
	return fmt.Sprintf("json_extract(body, '$.%s')", field), nil
}

func buildWhere(conds []Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	clauses := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		expr, err := fieldExpr(c.Field)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, expr+" = ?")
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildOrder(keys []SortKey) (string, error) {
	if len(keys) == 0 {
		return "id", nil
	}
	terms := make([]string, 0, len(keys))
	for _, key := range keys {
		expr, err := fieldExpr(key.Field)
		if err != nil {
			return "", err
		}
		if key.Numeric {
			terms = append(terms, fmt.Sprintf("CAST(%s AS INTEGER)", expr))
		}
		terms = append(terms, expr)
	}
	return strings.Join(terms, ", "), nil
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (Document, error) {
	var out Document
	var body string
	var updated string
	if err := s.Scan(&out.ID, &out.Rev, &body, &updated); err != nil {
		return Document{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return Document{}, err
	}
	out.Body = json.RawMessage(body)
	out.UpdatedAt = updatedAt
	return out, nil
}
