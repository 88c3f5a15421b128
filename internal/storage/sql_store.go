package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical/pdf-summarizer/internal/domain"
)

// Dialect selects placeholder style and DDL for a SQL driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SQLStore persists document metadata in a single documents table.
type SQLStore struct {
	db      DB
	dialect Dialect
	closer  func() error
}

// OpenSQL opens a connection pool for dialect and migrates the schema.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string, maxOpenConns int) (*SQLStore, error) {
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := NewSQLStore(db, dialect)
	store.closer = db.Close

	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// NewSQLStore wraps an existing connection. The caller owns db.
func NewSQLStore(db DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Migrate creates the documents table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	timestamp := "TIMESTAMP"
	if s.dialect == DialectPostgres {
		timestamp = "TIMESTAMPTZ"
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			short_summary TEXT NOT NULL,
			medium_summary TEXT NOT NULL,
			long_summary TEXT NOT NULL,
			keywords TEXT NOT NULL,
			processed_at %s NOT NULL
		)
	`, timestamp)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("migrate documents table: %w", err)
	}
	return nil
}

// Insert creates a new record and returns its generated id.
func (s *SQLStore) Insert(ctx context.Context, meta *domain.DocumentMetadata) (string, error) {
	id := meta.ID
	if id == "" {
		id = uuid.NewString()
	}

	keywords, err := encodeKeywords(meta.Keywords)
	if err != nil {
		return "", err
	}

	query := s.rebind(`
		INSERT INTO documents (id, name, short_summary, medium_summary, long_summary, keywords, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		id, meta.Name, meta.ShortSummary, meta.MediumSummary, meta.LongSummary,
		keywords, meta.ProcessedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	meta.ID = id
	return id, nil
}

// Update rewrites the summaries and keywords of the record named name.
func (s *SQLStore) Update(ctx context.Context, name string, update domain.MetadataUpdate) (int64, error) {
	keywords, err := encodeKeywords(update.Keywords)
	if err != nil {
		return 0, err
	}

	query := s.rebind(`
		UPDATE documents
		SET short_summary = ?, medium_summary = ?, long_summary = ?, keywords = ?, processed_at = ?
		WHERE name = ?
	`)
	res, err := s.db.ExecContext(ctx, query,
		update.ShortSummary, update.MediumSummary, update.LongSummary,
		keywords, update.ProcessedAt.UTC(), name,
	)
	if err != nil {
		return 0, fmt.Errorf("update document: %w", err)
	}

	return res.RowsAffected()
}

// FindByName retrieves a record by document name.
func (s *SQLStore) FindByName(ctx context.Context, name string) (*domain.DocumentMetadata, error) {
	query := s.rebind(`
		SELECT id, name, short_summary, medium_summary, long_summary, keywords, processed_at
		FROM documents WHERE name = ?
	`)
	meta, err := scanMetadata(s.db.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return meta, nil
}

// List returns every record ordered by name.
func (s *SQLStore) List(ctx context.Context) ([]*domain.DocumentMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, short_summary, medium_summary, long_summary, keywords, processed_at
		FROM documents ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var out []*domain.DocumentMetadata
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

// Close closes the connection pool when the store opened it.
func (s *SQLStore) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMetadata(row scanner) (*domain.DocumentMetadata, error) {
	var (
		meta     domain.DocumentMetadata
		keywords string
		at       time.Time
	)
	if err := row.Scan(&meta.ID, &meta.Name, &meta.ShortSummary, &meta.MediumSummary,
		&meta.LongSummary, &keywords, &at); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &meta.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	meta.ProcessedAt = at.UTC()
	return &meta, nil
}

func encodeKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}
	return string(data), nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ domain.MetadataStore = (*SQLStore)(nil)
