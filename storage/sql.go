package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	sqlTableName        = "wiki_pages"
	sqlOperationTimeout = 5 * time.Second
)

// Dialect captures the few places SQLite and PostgreSQL differ.
type Dialect struct {
	Name     string
	Driver   string
	BlobType string
	// Numbered placeholders ($1, $2, ...) instead of ?.
	Numbered bool
}

var (
	SQLiteDialect   = Dialect{Name: "sqlite", Driver: "sqlite", BlobType: "BLOB"}
	PostgresDialect = Dialect{Name: "postgres", Driver: "postgres", BlobType: "BYTEA", Numbered: true}
)

// SQL stores every page as a row keyed by (root, slug).
type SQL struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// NewSQLite opens (or creates) a SQLite database at path, ensuring its
// directory exists.
func NewSQLite(path string) (*SQL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, dirPerms); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(SQLiteDialect.Driver, path)
	if err != nil {
		return nil, err
	}
	// WAL lets sitemap readers in other processes proceed while a write is in
	// flight; busy_timeout makes writers wait instead of failing with BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	return newSQL(db, SQLiteDialect)
}

// NewPostgres connects to a PostgreSQL database described by dsn.
func NewPostgres(dsn string) (*SQL, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("storage: postgres dsn is required")
	}
	db, err := sql.Open(PostgresDialect.Driver, dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}
	return newSQL(db, PostgresDialect)
}

func newSQL(db *sql.DB, d Dialect) (*SQL, error) {
	s := &SQL{db: db, dialect: d, table: sqlTableName}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ensure schema: %w", err)
	}
	return s, nil
}

func (s *SQL) ensureSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    root TEXT NOT NULL,
    slug TEXT NOT NULL,
    data %s NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (root, slug)
)`, s.table, s.dialect.BlobType))
	return err
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *SQL) rebind(query string) string {
	if !s.dialect.Numbered {
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

func (s *SQL) Exists(key string) bool {
	loc, err := Resolve(key)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	var one int
	err = s.db.QueryRowContext(ctx,
		s.rebind(fmt.Sprintf(`SELECT 1 FROM %s WHERE root = ? AND slug = ?`, s.table)),
		loc.Root.String(), loc.Key).Scan(&one)
	return err == nil
}

func (s *SQL) Read(key string) ([]byte, error) {
	loc, err := Resolve(key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	data, err := s.read(ctx, s.db, loc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	return data, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQL) read(ctx context.Context, q queryer, loc Location) ([]byte, error) {
	var data []byte
	err := q.QueryRowContext(ctx,
		s.rebind(fmt.Sprintf(`SELECT data FROM %s WHERE root = ? AND slug = ?`, s.table)),
		loc.Root.String(), loc.Key).Scan(&data)
	return data, err
}

func (s *SQL) upsert(ctx context.Context, q queryer, loc Location, data []byte) error {
	_, err := q.ExecContext(ctx, s.rebind(fmt.Sprintf(`
INSERT INTO %s (root, slug, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (root, slug) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`, s.table)),
		loc.Root.String(), loc.Key, data, time.Now().UTC())
	return err
}

func (s *SQL) Write(key string, data []byte) error {
	loc, err := Resolve(key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	return s.upsert(ctx, s.db, loc, data)
}

func (s *SQL) Rename(src, dst string) error {
	return s.transfer(src, dst, true)
}

func (s *SQL) Copy(src, dst string) error {
	return s.transfer(src, dst, false)
}

func (s *SQL) transfer(src, dst string, removeSrc bool) error {
	sl, err := Resolve(src)
	if err != nil {
		return err
	}
	dl, err := Resolve(dst)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	data, err := s.read(ctx, tx, sl)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(src)
		}
		return err
	}
	if err := s.upsert(ctx, tx, dl, data); err != nil {
		_ = tx.Rollback()
		return err
	}
	if removeSrc && sl != dl {
		if _, err := tx.ExecContext(ctx,
			s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE root = ? AND slug = ?`, s.table)),
			sl.Root.String(), sl.Key); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQL) Remove(key string) error {
	loc, err := Resolve(key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx,
		s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE root = ? AND slug = ?`, s.table)),
		loc.Root.String(), loc.Key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(key)
	}
	return nil
}

// List returns the top-level slugs of the pages root ordered by slug.
func (s *SQL) List() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), sqlOperationTimeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx,
		s.rebind(fmt.Sprintf(`SELECT slug FROM %s WHERE root = ? ORDER BY slug`, s.table)),
		RootPages.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		if strings.Contains(slug, "/") {
			continue
		}
		keys = append(keys, slug)
	}
	return keys, rows.Err()
}

func (s *SQL) Close() error {
	return s.db.Close()
}

var _ Backend = (*SQL)(nil)
