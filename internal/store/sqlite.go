package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps cached queries in a single table with a unique query key.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cached_queries (
			query_key    TEXT PRIMARY KEY,
			query        TEXT NOT NULL,
			results      TEXT NOT NULL,
			last_updated INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cached_queries_updated ON cached_queries(last_updated DESC);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindExact(ctx context.Context, query string) (*CachedQuery, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT query, results, last_updated FROM cached_queries WHERE query_key = ?`,
		Key(query))
	return scanCachedQuery(row)
}

func (s *SQLiteStore) FindContaining(ctx context.Context, query string) (*CachedQuery, error) {
	// instr avoids treating % and _ in user input as LIKE wildcards
	row := s.db.QueryRowContext(ctx, `
		SELECT query, results, last_updated FROM cached_queries
		WHERE instr(query_key, ?) > 0
		ORDER BY last_updated DESC
		LIMIT 1`,
		Key(query))
	return scanCachedQuery(row)
}

func (s *SQLiteStore) Upsert(ctx context.Context, cq CachedQuery) error {
	results, err := json.Marshal(cq.Results)
	if err != nil {
		return fmt.Errorf("encoding results for %q: %w", cq.Query, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cached_queries (query_key, query, results, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(query_key) DO UPDATE SET
			query = excluded.query,
			results = excluded.results,
			last_updated = excluded.last_updated`,
		Key(cq.Query), cq.Query, string(results), cq.LastUpdated.UnixMilli())
	if err != nil {
		return fmt.Errorf("upserting cached query %q: %w", cq.Query, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanCachedQuery(row *sql.Row) (*CachedQuery, error) {
	var (
		cq      CachedQuery
		results string
		updated int64
	)
	if err := row.Scan(&cq.Query, &results, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning cached query: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &cq.Results); err != nil {
		return nil, fmt.Errorf("decoding results for %q: %w", cq.Query, err)
	}
	cq.LastUpdated = time.UnixMilli(updated)
	return &cq, nil
}
